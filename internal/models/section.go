package models

// SectionStats aggregates the affiliates of one electoral section
type SectionStats struct {
	Section               string `json:"section" yaml:"section"`
	Lideres               int    `json:"lideres" yaml:"lideres"`
	Brigadistas           int    `json:"brigadistas" yaml:"brigadistas"`
	Movilizadores         int    `json:"movilizadores" yaml:"movilizadores"`
	Ciudadanos            int    `json:"ciudadanos" yaml:"ciudadanos"`
	Total                 int    `json:"total" yaml:"total"`
	PrincipalNeighborhood string `json:"principal_neighborhood,omitempty" yaml:"principal_neighborhood,omitempty"`
}

// Add counts one person of role r
func (s *SectionStats) Add(r Role) {
	switch r {
	case RoleLider:
		s.Lideres++
	case RoleBrigadista:
		s.Brigadistas++
	case RoleMovilizador:
		s.Movilizadores++
	case RoleCiudadano:
		s.Ciudadanos++
	default:
		return
	}
	s.Total++
}

// Count returns the number of persons of role r
func (s *SectionStats) Count(r Role) int {
	switch r {
	case RoleLider:
		return s.Lideres
	case RoleBrigadista:
		return s.Brigadistas
	case RoleMovilizador:
		return s.Movilizadores
	case RoleCiudadano:
		return s.Ciudadanos
	}
	return 0
}

// SectionLoadState is the lifecycle of the section polygon document
type SectionLoadState string

const (
	SectionsUnloaded SectionLoadState = "unloaded"
	SectionsLoading  SectionLoadState = "loading"
	SectionsLoaded   SectionLoadState = "loaded"
	SectionsFailed   SectionLoadState = "failed"
)
