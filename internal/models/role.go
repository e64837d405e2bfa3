package models

import "fmt"

// Role is the organizing role of an affiliate
type Role string

const (
	RoleLider       Role = "lider"
	RoleBrigadista  Role = "brigadista"
	RoleMovilizador Role = "movilizador"
	RoleCiudadano   Role = "ciudadano"
)

// Roles lists every role in hierarchy order (leaders first)
var Roles = []Role{RoleLider, RoleBrigadista, RoleMovilizador, RoleCiudadano}

// RoleDescriptor names every map artifact that belongs to a role.
// Layers, sources and icons are addressed through this table instead of
// formatting strings at the call site.
type RoleDescriptor struct {
	Role               Role   `json:"role"`
	Plural             string `json:"plural"`
	Label              string `json:"label"`
	Color              string `json:"color"`
	MarkerIcon         string `json:"markerIcon"`
	ClusterIcon        string `json:"clusterIcon"`
	SourceID           string `json:"sourceId"`
	ClusterLayerID     string `json:"clusterLayerId"`
	UnclusteredLayerID string `json:"unclusteredLayerId"`
}

var roleDescriptors = map[Role]RoleDescriptor{
	RoleLider:       newDescriptor(RoleLider, "lideres", "Líderes", "#7C3AED"),
	RoleBrigadista:  newDescriptor(RoleBrigadista, "brigadistas", "Brigadistas", "#2563EB"),
	RoleMovilizador: newDescriptor(RoleMovilizador, "movilizadores", "Movilizadores", "#F59E0B"),
	RoleCiudadano:   newDescriptor(RoleCiudadano, "ciudadanos", "Ciudadanos", "#10B981"),
}

func newDescriptor(r Role, plural, label, color string) RoleDescriptor {
	return RoleDescriptor{
		Role:               r,
		Plural:             plural,
		Label:              label,
		Color:              color,
		MarkerIcon:         "marker-" + string(r),
		ClusterIcon:        "cluster-" + string(r),
		SourceID:           plural + "-source",
		ClusterLayerID:     "clusters-" + plural,
		UnclusteredLayerID: "unclustered-point-" + plural,
	}
}

// Descriptor returns the map artifact names of the role
func (r Role) Descriptor() RoleDescriptor {
	return roleDescriptors[r]
}

// Valid reports whether r is one of the four known roles
func (r Role) Valid() bool {
	_, ok := roleDescriptors[r]
	return ok
}

// ParseRole parses a role name, accepting the plural form too
func ParseRole(s string) (Role, error) {
	if r := Role(s); r.Valid() {
		return r, nil
	}
	for _, d := range roleDescriptors {
		if d.Plural == s {
			return d.Role, nil
		}
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// RoleForLayer resolves which role owns a point layer or source id
func RoleForLayer(layerID string) (Role, bool) {
	for _, d := range roleDescriptors {
		if layerID == d.ClusterLayerID || layerID == d.UnclusteredLayerID || layerID == d.SourceID {
			return d.Role, true
		}
	}
	return "", false
}

// RoleFilter selects which roles are shown on the map
type RoleFilter string

// RoleFilterAll shows every role
const RoleFilterAll RoleFilter = "all"

// Includes reports whether the filter lets r through
func (f RoleFilter) Includes(r Role) bool {
	return f == "" || f == RoleFilterAll || Role(f) == r
}

// Roles returns the roles visible under the filter
func (f RoleFilter) Roles() []Role {
	var out []Role
	for _, r := range Roles {
		if f.Includes(r) {
			out = append(out, r)
		}
	}
	return out
}

// ParseRoleFilter accepts "all" or a role name
func ParseRoleFilter(s string) (RoleFilter, error) {
	if s == "" || s == string(RoleFilterAll) {
		return RoleFilterAll, nil
	}
	r, err := ParseRole(s)
	if err != nil {
		return "", err
	}
	return RoleFilter(r), nil
}
