// Package session hosts one interaction controller per browser map.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/navojoa/electoral-map/internal/interaction"
	"github.com/navojoa/electoral-map/internal/models"
	"github.com/navojoa/electoral-map/internal/report"
	"github.com/navojoa/electoral-map/internal/search"
)

// Event types a browser map posts
const (
	EventMapReady           = "map_ready"
	EventPointerMove        = "pointer_move"
	EventClick              = "click"
	EventDragEnd            = "drag_end"
	EventSetEditMode        = "set_edit_mode"
	EventToggleFullscreen   = "toggle_fullscreen"
	EventKeyDown            = "key_down"
	EventSetRoleFilter      = "set_role_filter"
	EventClosePopup         = "close_popup"
	EventSearchType         = "search_type"
	EventSearchSetValue     = "search_set_value"
	EventSearchEnter        = "search_enter"
	EventSearchOutsideClick = "search_outside_click"
)

// ErrInvalidEvent is returned for an unknown event or one missing its fields
var ErrInvalidEvent = errors.New("invalid event")

// Event is one user interaction on the browser map
type Event struct {
	Type       string                        `json:"type" binding:"required"`
	Point      *interaction.ScreenPoint      `json:"point,omitempty"`
	Hits       []interaction.RenderedFeature `json:"hits,omitempty"`
	Images     []string                      `json:"images,omitempty"`
	Key        string                        `json:"key,omitempty"`
	Enabled    *bool                         `json:"enabled,omitempty"`
	RoleFilter string                        `json:"role_filter,omitempty"`
	PersonID   int64                         `json:"person_id,omitempty"`
	Role       string                        `json:"role,omitempty"`
	Lat        *float64                      `json:"lat,omitempty"`
	Lng        *float64                      `json:"lng,omitempty"`
	Text       string                        `json:"text,omitempty"`
}

// Result is what the browser applies after an event
type Result struct {
	SessionID string                        `json:"session_id"`
	State     interaction.ViewState         `json:"state"`
	Effects   []Effect                      `json:"effects"`
	Markers   []interaction.DraggableMarker `json:"draggable_markers,omitempty"`
	Search    *SearchState                  `json:"search,omitempty"`
	Selection *search.Selection             `json:"selection,omitempty"`
}

// SearchState is the search box after a search event
type SearchState struct {
	Text        string          `json:"text"`
	Open        bool            `json:"open"`
	Suggestions []models.Person `json:"suggestions"`
}

// Deps are the services a session reads from and writes to
type Deps struct {
	Updater   interaction.GeoUpdater
	Expansion ExpansionFunc
	Stats     func(ctx context.Context) (map[string]models.SectionStats, error)
	Persons   func(ctx context.Context) ([]models.Person, error)
	Reporter  report.Reporter
}

// Session is one browser map. Events on a session are serialized.
type Session struct {
	ID        string
	CreatedAt time.Time

	lastSeen atomic.Int64

	mu         sync.Mutex
	deps       Deps
	surface    *recordingSurface
	reporter   report.Reporter
	controller *interaction.Controller
	search     *search.Overlay
}

func newSession(id string, deps Deps, now time.Time) *Session {
	surface := newRecordingSurface(deps.Expansion)
	reporter := &sessionReporter{surface: surface, next: deps.Reporter}
	sess := &Session{
		ID:         id,
		CreatedAt:  now,
		deps:       deps,
		surface:    surface,
		reporter:   reporter,
		controller: interaction.NewController(surface, reporter, deps.Updater),
		search:     search.NewOverlay(nil),
	}
	sess.touch(now)
	return sess
}

func (s *Session) touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

func (s *Session) idleSince() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

// State returns the current view state
func (s *Session) State() interaction.ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.controller.State()
}

// Handle applies ev and returns the resulting state and effects
func (s *Session) Handle(ctx context.Context, ev Event) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.surface.begin(ctx, ev.Hits)
	res := &Result{SessionID: s.ID}
	err := s.apply(ctx, ev, res)
	res.Effects = s.surface.end()
	if res.Effects == nil {
		res.Effects = []Effect{}
	}
	if err != nil {
		return nil, err
	}
	res.State = s.controller.State()
	return res, nil
}

func (s *Session) apply(ctx context.Context, ev Event, res *Result) error {
	c := s.controller
	switch ev.Type {
	case EventMapReady:
		for _, name := range ev.Images {
			s.surface.images[name] = true
		}
		c.MapReady()
		s.refreshStats(ctx)

	case EventPointerMove, EventClick:
		if ev.Point == nil {
			return fmt.Errorf("%w: %s needs a point", ErrInvalidEvent, ev.Type)
		}
		if ev.Type == EventPointerMove {
			c.PointerMove(*ev.Point)
		} else {
			c.Click(*ev.Point)
		}

	case EventDragEnd:
		if ev.Lat == nil || ev.Lng == nil || ev.PersonID == 0 {
			return fmt.Errorf("%w: drag_end needs person_id, lat and lng", ErrInvalidEvent)
		}
		role, err := models.ParseRole(ev.Role)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
		}
		if err := c.DragEnd(ctx, ev.PersonID, role, *ev.Lat, *ev.Lng); errors.Is(err, interaction.ErrNotEditing) {
			return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
		} else if err == nil {
			s.refreshStats(ctx)
		}
		s.markers(ctx, res)

	case EventSetEditMode:
		if ev.Enabled == nil {
			return fmt.Errorf("%w: set_edit_mode needs enabled", ErrInvalidEvent)
		}
		c.SetEditMode(*ev.Enabled)
		s.markers(ctx, res)

	case EventToggleFullscreen:
		c.ToggleFullscreen()

	case EventKeyDown:
		c.KeyDown(ev.Key)

	case EventSetRoleFilter:
		f, err := models.ParseRoleFilter(ev.RoleFilter)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
		}
		c.SetRoleFilter(f)
		s.markers(ctx, res)

	case EventClosePopup:
		c.ClosePopup()

	case EventSearchType, EventSearchSetValue, EventSearchEnter, EventSearchOutsideClick:
		s.handleSearch(ctx, ev, res)

	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, ev.Type)
	}
	return nil
}

func (s *Session) handleSearch(ctx context.Context, ev Event, res *Result) {
	if s.deps.Persons != nil {
		persons, err := s.deps.Persons(ctx)
		if err != nil {
			s.reporter.LogDiagnostic("failed to load persons for search", err)
		} else {
			s.search.SetPersons(persons)
		}
	}

	switch ev.Type {
	case EventSearchType:
		s.search.Type(ev.Text)
	case EventSearchSetValue:
		s.search.SetValue(ev.Text)
	case EventSearchEnter:
		sel := s.search.Enter()
		res.Selection = &sel
	case EventSearchOutsideClick:
		s.search.OutsideClick()
	}

	suggestions := s.search.Suggestions()
	if suggestions == nil {
		suggestions = []models.Person{}
	}
	res.Search = &SearchState{Text: s.search.Text(), Open: s.search.Open(), Suggestions: suggestions}
}

func (s *Session) refreshStats(ctx context.Context) {
	if s.deps.Stats == nil {
		return
	}
	stats, err := s.deps.Stats(ctx)
	if err != nil {
		s.reporter.LogDiagnostic("failed to load section stats", err)
		return
	}
	s.controller.SetSectionStats(stats)
}

func (s *Session) markers(ctx context.Context, res *Result) {
	if !s.controller.EditMode() || s.deps.Persons == nil {
		return
	}
	persons, err := s.deps.Persons(ctx)
	if err != nil {
		s.reporter.LogDiagnostic("failed to load persons for edit mode", err)
		return
	}
	res.Markers = s.controller.DraggableMarkers(persons)
}

// sessionReporter turns user notices into notify effects of the current event
type sessionReporter struct {
	surface *recordingSurface
	next    report.Reporter
}

func (r *sessionReporter) LogDiagnostic(msg string, err error) {
	if r.next != nil {
		r.next.LogDiagnostic(msg, err)
	}
}

func (r *sessionReporter) NotifyUser(msg string) {
	r.surface.notify(msg)
	if r.next != nil {
		r.next.NotifyUser(msg)
	}
}
