package models

import "time"

// GeocodeStatus records where a person's coordinates came from
type GeocodeStatus string

const (
	GeocodeUnset     GeocodeStatus = "unset"
	GeocodeAutomatic GeocodeStatus = "automatic"
	GeocodeManual    GeocodeStatus = "manual"
)

// Valid reports whether s is a known geocode status
func (s GeocodeStatus) Valid() bool {
	return s == GeocodeUnset || s == GeocodeAutomatic || s == GeocodeManual
}

// Person is an affiliate record shown on the map
type Person struct {
	ID            int64         `json:"id" db:"id"`
	Name          string        `json:"name" db:"name"`
	Role          Role          `json:"role" db:"role"`
	Lat           *float64      `json:"lat,omitempty" db:"lat"`
	Lng           *float64      `json:"lng,omitempty" db:"lng"`
	Section       *string       `json:"section,omitempty" db:"section"`
	ElectoralKey  string        `json:"electoral_key,omitempty" db:"electoral_key"` // clave de elector
	Neighborhood  string        `json:"neighborhood,omitempty" db:"neighborhood"`   // colonia
	Phone         string        `json:"phone,omitempty" db:"phone"`
	ParentID      *int64        `json:"parent_id,omitempty" db:"parent_id"`
	GeocodeStatus GeocodeStatus `json:"geocode_status" db:"geocode_status"`
	GeocodedAt    *time.Time    `json:"geocoded_at,omitempty" db:"geocoded_at"`
	CreatedAt     *time.Time    `json:"created_at,omitempty" db:"created_at"`
	UpdatedAt     *time.Time    `json:"updated_at,omitempty" db:"updated_at"`
}

// HasLocation reports whether both coordinates are present
func (p *Person) HasLocation() bool {
	return p.Lat != nil && p.Lng != nil
}

// SectionCode returns the section code or "" when unknown
func (p *Person) SectionCode() string {
	if p.Section == nil {
		return ""
	}
	return *p.Section
}

// GeoUpdate is a location correction written back for one person
type GeoUpdate struct {
	Lat           float64       `json:"lat"`
	Lng           float64       `json:"lng"`
	GeocodeStatus GeocodeStatus `json:"geocode_status"`
	GeocodedAt    time.Time     `json:"geocoded_at"`
}

// HierarchyNode is a person with the people they coordinate
type HierarchyNode struct {
	Person   Person           `json:"person"`
	Children []*HierarchyNode `json:"children,omitempty"`
}

// Flatten walks the forest depth first
func Flatten(forest []*HierarchyNode) []Person {
	var out []Person
	var walk func(nodes []*HierarchyNode)
	walk = func(nodes []*HierarchyNode) {
		for _, n := range nodes {
			if n == nil {
				continue
			}
			out = append(out, n.Person)
			walk(n.Children)
		}
	}
	walk(forest)
	return out
}

// PersonSnapshot is an immutable view of the person list at a revision
type PersonSnapshot struct {
	Revision uint64
	Persons  []Person
}

// PersonsResponse is a paginated list of persons
type PersonsResponse struct {
	Data       []Person `json:"data"`
	Total      int64    `json:"total"`
	Page       int      `json:"page"`
	PageSize   int      `json:"pageSize"`
	TotalPages int      `json:"totalPages"`
}
