// Package importer loads affiliates from CSV exports.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"

	"github.com/navojoa/electoral-map/internal/models"
	"github.com/navojoa/electoral-map/internal/service"
)

// ErrMalformedCSV is returned when the export cannot be parsed
var ErrMalformedCSV = errors.New("malformed csv")

// Row is one line of the affiliate export
type Row struct {
	Nombre           string `csv:"nombre"`
	Rol              string `csv:"rol"`
	Latitud          string `csv:"latitud"`
	Longitud         string `csv:"longitud"`
	Seccion          string `csv:"seccion"`
	ClaveElector     string `csv:"clave_elector"`
	Colonia          string `csv:"colonia"`
	Telefono         string `csv:"telefono"`
	ClaveResponsable string `csv:"clave_responsable"` // electoral key of the coordinator
}

// RowError explains why a line was not imported
type RowError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// Result summarizes an import
type Result struct {
	Imported int        `json:"imported"`
	Linked   int        `json:"linked"`
	Skipped  []RowError `json:"skipped,omitempty"`
}

// Importer writes CSV rows through the person service
type Importer struct {
	persons *service.PersonService
	logger  *zap.Logger
}

// New creates an importer
func New(persons *service.PersonService, logger *zap.Logger) *Importer {
	return &Importer{persons: persons, logger: logger}
}

// Latin1 decodes an ISO-8859-1 export to UTF-8
func Latin1(r io.Reader) io.Reader {
	return charmap.ISO8859_1.NewDecoder().Reader(r)
}

// ReadRows parses the CSV in r; sep is the field separator
func ReadRows(r io.Reader, sep rune) ([]*Row, error) {
	cr := csv.NewReader(r)
	cr.Comma = sep
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	var rows []*Row
	if err := gocsv.UnmarshalCSV(cr, &rows); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCSV, err)
	}
	return rows, nil
}

// ToPerson converts a row; coordinates may use a decimal comma
func (row *Row) ToPerson() (models.Person, error) {
	role, err := models.ParseRole(strings.ToLower(strings.TrimSpace(row.Rol)))
	if err != nil {
		return models.Person{}, err
	}
	p := models.Person{
		Name:         strings.TrimSpace(row.Nombre),
		Role:         role,
		ElectoralKey: row.ClaveElector,
		Neighborhood: strings.TrimSpace(row.Colonia),
		Phone:        strings.TrimSpace(row.Telefono),
	}
	if s := strings.TrimSpace(row.Seccion); s != "" {
		p.Section = &s
	}

	lat, latOK, err := parseCoord(row.Latitud)
	if err != nil {
		return models.Person{}, fmt.Errorf("latitud: %w", err)
	}
	lng, lngOK, err := parseCoord(row.Longitud)
	if err != nil {
		return models.Person{}, fmt.Errorf("longitud: %w", err)
	}
	if latOK && lngOK {
		p.Lat, p.Lng = &lat, &lng
	}
	return p, nil
}

func parseCoord(s string) (float64, bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

// Import creates one person per valid row. Coordinators are resolved by
// electoral key among existing persons and earlier rows of the same file.
func (im *Importer) Import(ctx context.Context, r io.Reader, sep rune) (*Result, error) {
	rows, err := ReadRows(r, sep)
	if err != nil {
		return nil, err
	}

	snap, err := im.persons.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	byKey := make(map[string]int64, len(snap.Persons))
	for _, p := range snap.Persons {
		if p.ElectoralKey != "" {
			byKey[p.ElectoralKey] = p.ID
		}
	}

	res := &Result{}
	for i, row := range rows {
		line := i + 2 // header is line 1
		p, err := row.ToPerson()
		if err != nil {
			res.Skipped = append(res.Skipped, RowError{Line: line, Reason: err.Error()})
			continue
		}
		if key := strings.ToUpper(strings.TrimSpace(row.ClaveResponsable)); key != "" {
			if id, ok := byKey[key]; ok {
				p.ParentID = &id
				res.Linked++
			} else {
				im.logger.Debug("coordinator not found", zap.Int("line", line), zap.String("clave", key))
			}
		}

		if err := im.persons.CreatePerson(ctx, &p); err != nil {
			if isValidation(err) {
				res.Skipped = append(res.Skipped, RowError{Line: line, Reason: err.Error()})
				continue
			}
			return res, fmt.Errorf("line %d: %w", line, err)
		}
		if p.ElectoralKey != "" {
			byKey[p.ElectoralKey] = p.ID
		}
		res.Imported++
	}

	im.logger.Info("import finished",
		zap.Int("imported", res.Imported),
		zap.Int("linked", res.Linked),
		zap.Int("skipped", len(res.Skipped)))
	return res, nil
}

func isValidation(err error) bool {
	return errors.Is(err, service.ErrInvalidPerson) ||
		errors.Is(err, service.ErrInvalidRole) ||
		errors.Is(err, service.ErrInvalidCoordinates)
}
