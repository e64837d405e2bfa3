package interaction

// Feature-state keys understood by the section layer paint expressions
const (
	StateHover    = "hover"
	StateSelected = "selected"
)

// FeatureFlags are the transient render flags of one feature
type FeatureFlags struct {
	Hover    bool `json:"hover"`
	Selected bool `json:"selected"`
}

// StateSink receives every flag change; the map surface is one
type StateSink interface {
	SetFeatureState(source, id string, state map[string]bool)
}

// FeatureStateStore owns the hover and selected flags of one source.
// At most one id is hovered and at most one is selected at any time.
type FeatureStateStore struct {
	source   string
	sink     StateSink
	flags    map[string]FeatureFlags
	hovered  string
	selected string
}

// NewFeatureStateStore creates an empty store mirroring changes to sink
func NewFeatureStateStore(source string, sink StateSink) *FeatureStateStore {
	return &FeatureStateStore{
		source: source,
		sink:   sink,
		flags:  make(map[string]FeatureFlags),
	}
}

// Hovered returns the hovered id or ""
func (s *FeatureStateStore) Hovered() string { return s.hovered }

// Selected returns the selected id or ""
func (s *FeatureStateStore) Selected() string { return s.selected }

// Flags returns the flags of id
func (s *FeatureStateStore) Flags(id string) FeatureFlags { return s.flags[id] }

// Snapshot copies every id that has a flag set
func (s *FeatureStateStore) Snapshot() map[string]FeatureFlags {
	out := make(map[string]FeatureFlags, len(s.flags))
	for id, f := range s.flags {
		out[id] = f
	}
	return out
}

// SetHover moves the hover flag to id; "" clears it
func (s *FeatureStateStore) SetHover(id string) {
	if id == s.hovered {
		return
	}
	if s.hovered != "" {
		s.set(s.hovered, StateHover, false)
	}
	s.hovered = id
	if id != "" {
		s.set(id, StateHover, true)
	}
}

// ToggleSelected selects id, or clears the selection when id is already selected.
// It returns the id selected afterwards.
func (s *FeatureStateStore) ToggleSelected(id string) string {
	prev := s.selected
	if prev != "" {
		s.set(prev, StateSelected, false)
		s.selected = ""
	}
	if id != "" && id != prev {
		s.set(id, StateSelected, true)
		s.selected = id
	}
	return s.selected
}

// ClearSelected drops the selection
func (s *FeatureStateStore) ClearSelected() {
	if s.selected != "" {
		s.set(s.selected, StateSelected, false)
		s.selected = ""
	}
}

func (s *FeatureStateStore) set(id, key string, on bool) {
	f := s.flags[id]
	switch key {
	case StateHover:
		f.Hover = on
	case StateSelected:
		f.Selected = on
	}
	if f == (FeatureFlags{}) {
		delete(s.flags, id)
	} else {
		s.flags[id] = f
	}
	if s.sink != nil {
		s.sink.SetFeatureState(s.source, id, map[string]bool{key: on})
	}
}
