package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/navojoa/electoral-map/internal/metrics"
	"github.com/navojoa/electoral-map/internal/models"
	"github.com/navojoa/electoral-map/internal/repository"
	"github.com/navojoa/electoral-map/internal/sections"
)

var (
	ErrPersonNotFound     = errors.New("person not found")
	ErrInvalidRole        = errors.New("invalid role")
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	ErrInvalidPerson      = errors.New("invalid person")
)

// PersonService handles business logic for affiliates
type PersonService struct {
	repo *repository.PersonRepository

	mu       sync.Mutex
	snapshot *models.PersonSnapshot
}

// NewPersonService creates a new person service
func NewPersonService(repo *repository.PersonRepository) *PersonService {
	return &PersonService{repo: repo}
}

// Revision returns the stored person-data revision. It changes on every
// write, including writes made by other processes on the same database.
func (s *PersonService) Revision(ctx context.Context) (uint64, error) {
	return s.repo.Revision(ctx)
}

// Snapshot returns every person at the current revision, reading the
// persons only when the stored revision moved
func (s *PersonService) Snapshot(ctx context.Context) (models.PersonSnapshot, error) {
	rev, err := s.repo.Revision(ctx)
	if err != nil {
		return models.PersonSnapshot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot != nil && s.snapshot.Revision == rev {
		return *s.snapshot, nil
	}
	// rows read after the revision are at least as new; a concurrent write
	// moves the revision again and the next call reloads
	persons, err := s.repo.All(ctx)
	if err != nil {
		return models.PersonSnapshot{}, fmt.Errorf("failed to load persons: %w", err)
	}
	s.snapshot = &models.PersonSnapshot{Revision: rev, Persons: persons}
	return *s.snapshot, nil
}

// GetPersons retrieves persons with filtering and pagination
func (s *PersonService) GetPersons(ctx context.Context, filter models.PersonFilter) (*models.PersonsResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 100
	}
	if filter.PageSize > 1000 {
		filter.PageSize = 1000
	}
	if filter.Role != "" {
		r, err := models.ParseRole(filter.Role)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidRole, filter.Role)
		}
		filter.Role = string(r)
	}

	persons, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to get persons: %w", err)
	}

	return &models.PersonsResponse{
		Data:       persons,
		Total:      total,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalPages: int(math.Ceil(float64(total) / float64(filter.PageSize))),
	}, nil
}

// GetPerson retrieves a single person by ID
func (s *PersonService) GetPerson(ctx context.Context, id int64) (*models.Person, error) {
	p, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrPersonNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get person: %w", err)
	}
	return p, nil
}

// CreatePerson validates and stores a new person
func (s *PersonService) CreatePerson(ctx context.Context, p *models.Person) error {
	if err := normalize(p); err != nil {
		return err
	}
	return s.repo.Create(ctx, p)
}

// UpdatePerson validates and overwrites the person with p.ID
func (s *PersonService) UpdatePerson(ctx context.Context, p *models.Person) error {
	if err := normalize(p); err != nil {
		return err
	}
	if p.ParentID != nil && *p.ParentID == p.ID {
		return fmt.Errorf("%w: a person cannot coordinate themselves", ErrInvalidPerson)
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return notFound(err, p.ID)
	}
	return nil
}

// DeletePerson removes a person; the people they coordinated become roots
func (s *PersonService) DeletePerson(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFound(err, id)
	}
	return nil
}

// GetAllHierarchicalData returns every person arranged as a forest of
// coordinators and the people they coordinate
func (s *PersonService) GetAllHierarchicalData(ctx context.Context) ([]*models.HierarchyNode, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return BuildHierarchy(snap.Persons), nil
}

// BuildHierarchy links persons by parent id. Persons whose parent is missing
// are roots. Order follows the input.
func BuildHierarchy(persons []models.Person) []*models.HierarchyNode {
	nodes := make(map[int64]*models.HierarchyNode, len(persons))
	for _, p := range persons {
		nodes[p.ID] = &models.HierarchyNode{Person: p}
	}

	var roots []*models.HierarchyNode
	for _, p := range persons {
		n := nodes[p.ID]
		if p.ParentID != nil && *p.ParentID != p.ID {
			if parent, ok := nodes[*p.ParentID]; ok {
				parent.Children = append(parent.Children, n)
				continue
			}
		}
		roots = append(roots, n)
	}
	return roots
}

// UpdateGeolocatedPerson stores a location correction. id and role must both match.
func (s *PersonService) UpdateGeolocatedPerson(ctx context.Context, id int64, role models.Role, u models.GeoUpdate) (err error) {
	defer func() {
		result := metrics.ResultOK
		if err != nil {
			result = metrics.ResultError
		}
		metrics.LocationUpdatesTotal.WithLabelValues(result).Inc()
	}()

	if !role.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	if err := validateCoordinates(u.Lat, u.Lng); err != nil {
		return err
	}
	if u.GeocodeStatus == "" {
		u.GeocodeStatus = models.GeocodeManual
	}
	if !u.GeocodeStatus.Valid() {
		return fmt.Errorf("%w: geocode status %q", ErrInvalidPerson, u.GeocodeStatus)
	}
	if u.GeocodedAt.IsZero() {
		u.GeocodedAt = time.Now().UTC()
	}

	if err := s.repo.UpdateLocation(ctx, id, role, u); err != nil {
		return notFound(err, id)
	}
	return nil
}

// AssignResult summarizes a section assignment run
type AssignResult struct {
	Assigned   int `json:"assigned"`
	Unmatched  int `json:"unmatched"`
	NoLocation int `json:"no_location"`
	Skipped    int `json:"skipped"`
}

// AssignSections fills in section codes from the persons' coordinates.
// Persons that already have a section are skipped unless overwrite is set.
func (s *PersonService) AssignSections(ctx context.Context, loc *sections.Locator, fallbackKm float64, overwrite bool) (*AssignResult, error) {
	if loc == nil || loc.Len() == 0 {
		return nil, errors.New("no section polygons loaded")
	}
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	res := &AssignResult{}
	updates := make(map[int64]string)
	for _, p := range snap.Persons {
		if p.SectionCode() != "" && !overwrite {
			res.Skipped++
			continue
		}
		if !p.HasLocation() {
			res.NoLocation++
			continue
		}
		code, ok := loc.Locate(*p.Lat, *p.Lng, fallbackKm)
		if !ok {
			res.Unmatched++
			continue
		}
		if code != p.SectionCode() {
			updates[p.ID] = code
		}
		res.Assigned++
	}

	if err := s.repo.UpdateSections(ctx, updates); err != nil {
		return nil, err
	}
	return res, nil
}

func normalize(p *models.Person) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidPerson)
	}
	r, err := models.ParseRole(string(p.Role))
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidRole, p.Role)
	}
	p.Role = r

	if (p.Lat == nil) != (p.Lng == nil) {
		return fmt.Errorf("%w: lat and lng must be given together", ErrInvalidCoordinates)
	}
	if p.HasLocation() {
		if err := validateCoordinates(*p.Lat, *p.Lng); err != nil {
			return err
		}
	}

	if p.GeocodeStatus == "" {
		p.GeocodeStatus = models.GeocodeUnset
		if p.HasLocation() {
			p.GeocodeStatus = models.GeocodeAutomatic
		}
	}
	if !p.GeocodeStatus.Valid() {
		return fmt.Errorf("%w: geocode status %q", ErrInvalidPerson, p.GeocodeStatus)
	}
	if p.Section != nil {
		code := strings.TrimSpace(*p.Section)
		if code == "" {
			p.Section = nil
		} else {
			p.Section = &code
		}
	}
	p.ElectoralKey = strings.ToUpper(strings.TrimSpace(p.ElectoralKey))
	return nil
}

func validateCoordinates(lat, lng float64) error {
	if math.IsNaN(lat) || math.IsNaN(lng) || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return fmt.Errorf("%w: (%g, %g)", ErrInvalidCoordinates, lat, lng)
	}
	return nil
}

func notFound(err error, id int64) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %d", ErrPersonNotFound, id)
	}
	return err
}
