package search

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navojoa/electoral-map/internal/models"
)

func people() []models.Person {
	return []models.Person{
		{ID: 1, Name: "María López", ElectoralKey: "LPZMRA80010126M100"},
		{ID: 2, Name: "José Valenzuela", ElectoralKey: "VLZJSE75050326H200"},
		{ID: 3, Name: "Mariana Ruiz"},
	}
}

func TestSuggest_ShortTermYieldsNothing(t *testing.T) {
	assert.Empty(t, Suggest(people(), ""))
	assert.Empty(t, Suggest(people(), "m"))
	assert.Empty(t, Suggest(people(), "á"))
}

func TestSuggest_CaseInsensitiveName(t *testing.T) {
	got := Suggest(people(), "MAR")
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, int64(3), got[1].ID)

	got = Suggest(people(), "lópez")
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ID)
}

func TestSuggest_SpacesAreMatchedAsTyped(t *testing.T) {
	ana := []models.Person{{Name: "Ana Lopez"}}

	got := Suggest(ana, "a ")
	require.Len(t, got, 1)
	assert.Equal(t, "Ana Lopez", got[0].Name)

	assert.Len(t, Suggest(ana, "a l"), 1)
	assert.Empty(t, Suggest(ana, " a"), "a leading space must not be dropped")
	assert.Empty(t, Suggest(ana, "z "))
}

func TestSuggest_ElectoralKey(t *testing.T) {
	got := Suggest(people(), "vlzjse")
	require.Len(t, got, 1)
	assert.Equal(t, "José Valenzuela", got[0].Name)
}

func TestSuggest_CappedAtEight(t *testing.T) {
	var many []models.Person
	for i := 0; i < 20; i++ {
		many = append(many, models.Person{ID: int64(i), Name: fmt.Sprintf("Ciudadano %d", i)})
	}
	got := Suggest(many, "ciudadano")
	require.Len(t, got, MaxSuggestions)
	assert.Equal(t, int64(7), got[7].ID)
}

func TestOverlay_TypeAndEnter(t *testing.T) {
	o := NewOverlay(people())

	o.Type("jo")
	assert.True(t, o.Open())
	require.Len(t, o.Suggestions(), 1)

	sel := o.Enter()
	require.NotNil(t, sel.Person)
	assert.Equal(t, int64(2), sel.Person.ID)
	assert.Equal(t, "José Valenzuela", o.Text())
	assert.False(t, o.Open())
}

func TestOverlay_EnterCommitsRawText(t *testing.T) {
	o := NewOverlay(people())
	o.Type("zz")

	sel := o.Enter()
	assert.Nil(t, sel.Person)
	assert.Equal(t, "zz", sel.Term)
}

func TestOverlay_ControlledValueAndOutsideClick(t *testing.T) {
	o := NewOverlay(people())

	o.SetValue("Mariana")
	assert.Equal(t, "Mariana", o.Text())
	assert.False(t, o.Open(), "a controlled update does not open the list")

	o.Type("Marian")
	assert.Len(t, o.Suggestions(), 1)

	o.OutsideClick()
	assert.Empty(t, o.Suggestions())
	assert.Equal(t, "Marian", o.Text())
}

func TestOverlay_Pick(t *testing.T) {
	o := NewOverlay(people())
	o.Type("mar")

	sel, ok := o.Pick(1)
	require.True(t, ok)
	assert.Equal(t, int64(3), sel.Person.ID)

	_, ok = o.Pick(5)
	assert.False(t, ok)
}
