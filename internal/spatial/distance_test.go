package spatial

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

func TestHaversineDistance(t *testing.T) {
	assert.Zero(t, HaversineDistance(27.07, -109.44, 27.07, -109.44))

	// one degree of latitude is ~111.2 km
	assert.InDelta(t, 111195, HaversineDistance(27, -109, 28, -109), 50)

	// Navojoa to Huatabampo
	d := HaversineDistance(27.0728, -109.4437, 26.8262, -109.6424)
	assert.InDelta(t, 33760, d, 100)
}

func TestPointDistance(t *testing.T) {
	a := orb.Point{-109.44, 27.07}
	b := orb.Point{-109.40, 27.06}
	assert.Equal(t, HaversineDistance(27.07, -109.44, 27.06, -109.40), PointDistance(a, b))
	assert.Equal(t, PointDistance(a, b), PointDistance(b, a))
}
