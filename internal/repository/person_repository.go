package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/navojoa/electoral-map/internal/database"
	"github.com/navojoa/electoral-map/internal/models"
)

// ErrNotFound is returned when no row matches
var ErrNotFound = errors.New("record not found")

const personColumns = `id, name, role, lat, lng, section, electoral_key, neighborhood, phone,
		parent_id, geocode_status, geocoded_at, created_at, updated_at`

// PersonRepository handles database operations for persons
type PersonRepository struct {
	db     *sql.DB
	driver string
}

// NewPersonRepository creates a new person repository
func NewPersonRepository(db *sql.DB, driver string) *PersonRepository {
	return &PersonRepository{db: db, driver: driver}
}

func (r *PersonRepository) q(query string) string {
	return database.Rebind(r.driver, query)
}

// List retrieves persons with filtering and pagination
func (r *PersonRepository) List(ctx context.Context, filter models.PersonFilter) ([]models.Person, int64, error) {
	var conditions []string
	var args []interface{}

	if filter.Role != "" {
		conditions = append(conditions, "role = ?")
		args = append(args, filter.Role)
	}
	if filter.Section != "" {
		conditions = append(conditions, "section = ?")
		args = append(args, filter.Section)
	}
	if filter.GeocodeStatus != "" {
		conditions = append(conditions, "geocode_status = ?")
		args = append(args, filter.GeocodeStatus)
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, r.q("SELECT COUNT(*) FROM persons"+where), args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count persons: %w", err)
	}

	offset := (filter.Page - 1) * filter.PageSize
	query := "SELECT " + personColumns + " FROM persons" + where + " ORDER BY id LIMIT ? OFFSET ?"
	args = append(args, filter.PageSize, offset)

	persons, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return persons, total, nil
}

// All retrieves every person ordered by id
func (r *PersonRepository) All(ctx context.Context) ([]models.Person, error) {
	return r.query(ctx, "SELECT "+personColumns+" FROM persons ORDER BY id")
}

// GetByID retrieves a single person by ID
func (r *PersonRepository) GetByID(ctx context.Context, id int64) (*models.Person, error) {
	persons, err := r.query(ctx, "SELECT "+personColumns+" FROM persons WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(persons) == 0 {
		return nil, ErrNotFound
	}
	return &persons[0], nil
}

// Revision returns the data revision. Every committed write bumps it, so
// processes sharing the database see each other's changes.
func (r *PersonRepository) Revision(ctx context.Context) (uint64, error) {
	var rev int64
	if err := r.db.QueryRowContext(ctx, "SELECT revision FROM data_revision WHERE id = 1").Scan(&rev); err != nil {
		return 0, fmt.Errorf("failed to read data revision: %w", err)
	}
	return uint64(rev), nil
}

// write runs fn and bumps the data revision in the same transaction
func (r *PersonRepository) write(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return database.Transaction(r.db, func(tx *sql.Tx) error {
		if err := fn(tx); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "UPDATE data_revision SET revision = revision + 1 WHERE id = 1"); err != nil {
			return fmt.Errorf("failed to bump data revision: %w", err)
		}
		return nil
	})
}

// Create inserts a person and fills in its ID and timestamps
func (r *PersonRepository) Create(ctx context.Context, p *models.Person) error {
	query := `INSERT INTO persons (name, role, lat, lng, section, electoral_key, neighborhood, phone,
		parent_id, geocode_status, geocoded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id, created_at, updated_at`

	var created, updated string
	err := r.write(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, r.q(query),
			p.Name, string(p.Role), p.Lat, p.Lng, p.Section, p.ElectoralKey, p.Neighborhood, p.Phone,
			p.ParentID, string(p.GeocodeStatus), formatTime(p.GeocodedAt),
		).Scan(&p.ID, &created, &updated)
		if err != nil {
			return fmt.Errorf("failed to create person: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	p.CreatedAt = parseTime(sql.NullString{String: created, Valid: true})
	p.UpdatedAt = parseTime(sql.NullString{String: updated, Valid: true})
	return nil
}

// Update overwrites the editable fields of a person
func (r *PersonRepository) Update(ctx context.Context, p *models.Person) error {
	query := `UPDATE persons
		SET name = ?, role = ?, lat = ?, lng = ?, section = ?, electoral_key = ?, neighborhood = ?,
			phone = ?, parent_id = ?, geocode_status = ?, geocoded_at = ?, updated_at = ?
		WHERE id = ?`

	return r.write(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, r.q(query),
			p.Name, string(p.Role), p.Lat, p.Lng, p.Section, p.ElectoralKey, p.Neighborhood,
			p.Phone, p.ParentID, string(p.GeocodeStatus), formatTime(p.GeocodedAt), now(), p.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update person %d: %w", p.ID, err)
		}
		return expectOne(res, p.ID)
	})
}

// UpdateLocation writes a location correction for the person with id and role
func (r *PersonRepository) UpdateLocation(ctx context.Context, id int64, role models.Role, u models.GeoUpdate) error {
	query := `UPDATE persons
		SET lat = ?, lng = ?, geocode_status = ?, geocoded_at = ?, updated_at = ?
		WHERE id = ? AND role = ?`

	geocodedAt := u.GeocodedAt
	return r.write(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, r.q(query),
			u.Lat, u.Lng, string(u.GeocodeStatus), formatTime(&geocodedAt), now(), id, string(role),
		)
		if err != nil {
			return fmt.Errorf("failed to update location of person %d: %w", id, err)
		}
		return expectOne(res, id)
	})
}

// UpdateSections sets section codes in one transaction
func (r *PersonRepository) UpdateSections(ctx context.Context, sections map[int64]string) error {
	if len(sections) == 0 {
		return nil
	}
	return r.write(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, r.q("UPDATE persons SET section = ?, updated_at = ? WHERE id = ?"))
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		ts := now()
		for id, section := range sections {
			if _, err := stmt.ExecContext(ctx, section, ts, id); err != nil {
				return fmt.Errorf("failed to update section of person %d: %w", id, err)
			}
		}
		return nil
	})
}

// Delete removes a person
func (r *PersonRepository) Delete(ctx context.Context, id int64) error {
	return r.write(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, r.q("DELETE FROM persons WHERE id = ?"), id)
		if err != nil {
			return fmt.Errorf("failed to delete person %d: %w", id, err)
		}
		return expectOne(res, id)
	})
}

func (r *PersonRepository) query(ctx context.Context, query string, args ...interface{}) ([]models.Person, error) {
	rows, err := r.db.QueryContext(ctx, r.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query persons: %w", err)
	}
	defer rows.Close()

	var persons []models.Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		persons = append(persons, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate persons: %w", err)
	}
	return persons, nil
}

func scanPerson(rows *sql.Rows) (models.Person, error) {
	var (
		p                    models.Person
		role, status         string
		lat, lng             sql.NullFloat64
		section              sql.NullString
		parentID             sql.NullInt64
		geocodedAt           sql.NullString
		createdAt, updatedAt sql.NullString
	)
	err := rows.Scan(
		&p.ID, &p.Name, &role, &lat, &lng, &section, &p.ElectoralKey, &p.Neighborhood, &p.Phone,
		&parentID, &status, &geocodedAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return p, fmt.Errorf("failed to scan person: %w", err)
	}

	p.Role = models.Role(role)
	p.GeocodeStatus = models.GeocodeStatus(status)
	if lat.Valid {
		p.Lat = &lat.Float64
	}
	if lng.Valid {
		p.Lng = &lng.Float64
	}
	if section.Valid && section.String != "" {
		p.Section = &section.String
	}
	if parentID.Valid {
		p.ParentID = &parentID.Int64
	}
	p.GeocodedAt = parseTime(geocodedAt)
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return p, nil
}

func expectOne(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("person %d: %w", id, ErrNotFound)
	}
	return nil
}

// Timestamps are stored as RFC 3339 text so both drivers scan them the same way
func formatTime(t *time.Time) interface{} {
	if t == nil || t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return nil
	}
	return &t
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
