// Package search implements the affiliate search box.
package search

import (
	"strings"
	"unicode/utf8"

	"github.com/navojoa/electoral-map/internal/models"
)

const (
	// MinTermLength is the shortest term that produces suggestions
	MinTermLength = 2
	// MaxSuggestions caps the suggestion list
	MaxSuggestions = 8
)

// Suggest returns the persons whose name or electoral key contains term,
// ignoring case, in input order. The term is matched as typed, spaces
// included.
func Suggest(persons []models.Person, term string) []models.Person {
	if utf8.RuneCountInString(term) < MinTermLength {
		return nil
	}
	needle := strings.ToLower(term)

	var out []models.Person
	for _, p := range persons {
		if matches(p, needle) {
			out = append(out, p)
			if len(out) == MaxSuggestions {
				break
			}
		}
	}
	return out
}

func matches(p models.Person, needle string) bool {
	return strings.Contains(strings.ToLower(p.Name), needle) ||
		(p.ElectoralKey != "" && strings.Contains(strings.ToLower(p.ElectoralKey), needle))
}

// Selection is what Enter commits: a picked person, or the raw text
type Selection struct {
	Person *models.Person `json:"person,omitempty"`
	Term   string         `json:"term"`
}

// Overlay is the search box state. The text follows the controlled value set
// by the page but can be edited locally.
type Overlay struct {
	persons     []models.Person
	text        string
	open        bool
	suggestions []models.Person
}

// NewOverlay creates a closed overlay over persons
func NewOverlay(persons []models.Person) *Overlay {
	return &Overlay{persons: persons}
}

// SetPersons replaces the searchable list
func (o *Overlay) SetPersons(persons []models.Person) {
	o.persons = persons
	o.refresh()
}

// SetValue mirrors the controlled value
func (o *Overlay) SetValue(v string) {
	o.text = v
	o.refresh()
}

// Type replaces the local text and opens the suggestion list
func (o *Overlay) Type(text string) {
	o.text = text
	o.open = true
	o.refresh()
}

// Text returns the local text
func (o *Overlay) Text() string { return o.text }

// Open reports whether the suggestion list is shown
func (o *Overlay) Open() bool { return o.open }

// Suggestions returns the visible suggestions
func (o *Overlay) Suggestions() []models.Person {
	if !o.open {
		return nil
	}
	return o.suggestions
}

// Enter picks the first suggestion, or commits the raw text when there is none
func (o *Overlay) Enter() Selection {
	o.open = false
	if len(o.suggestions) > 0 {
		p := o.suggestions[0]
		o.text = p.Name
		return Selection{Person: &p, Term: p.Name}
	}
	return Selection{Term: o.text}
}

// Pick selects suggestion i
func (o *Overlay) Pick(i int) (Selection, bool) {
	if i < 0 || i >= len(o.suggestions) {
		return Selection{}, false
	}
	p := o.suggestions[i]
	o.text = p.Name
	o.open = false
	return Selection{Person: &p, Term: p.Name}, true
}

// OutsideClick hides the suggestion list
func (o *Overlay) OutsideClick() {
	o.open = false
}

func (o *Overlay) refresh() {
	o.suggestions = Suggest(o.persons, o.text)
}
