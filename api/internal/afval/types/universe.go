package types

import (
	"fmt"
	"strings"
)

const NoWasteLabel Category = "Geen afval"

// DefaultCategories is the category universe shipped with the service.
var DefaultCategories = []Category{
	"Grofvuil",
	"Restafval",
	"Glas",
	"Papier en karton",
	"Organisch",
	"Textiel",
	"Elektronisch afval",
	"Bouw- en sloopafval",
	"Chemisch afval",
	"Overig",
	NoWasteLabel,
}

// Universe is the closed, ordered set of valid categories. It is built once at
// startup and only read afterwards.
type Universe struct {
	order   []Category
	index   map[Category]int
	noWaste Category
}

func NewUniverse(labels []Category, noWaste Category) (*Universe, error) {
	if len(labels) == 0 {
		return nil, ErrEmptyUniverse
	}
	u := &Universe{
		order:   make([]Category, 0, len(labels)),
		index:   make(map[Category]int, len(labels)),
		noWaste: noWaste,
	}
	for _, l := range labels {
		if strings.TrimSpace(string(l)) == "" {
			return nil, fmt.Errorf("blank category label at position %d", len(u.order))
		}
		if _, dup := u.index[l]; dup {
			return nil, fmt.Errorf("duplicate category %q", l)
		}
		u.index[l] = len(u.order)
		u.order = append(u.order, l)
	}
	if _, ok := u.index[noWaste]; !ok {
		return nil, fmt.Errorf("%w: no-waste sentinel %q", ErrUnknownCategory, noWaste)
	}
	return u, nil
}

func DefaultUniverse() *Universe {
	u, err := NewUniverse(DefaultCategories, NoWasteLabel)
	if err != nil {
		panic(err)
	}
	return u
}

// Categories returns a copy in universe order.
func (u *Universe) Categories() []Category {
	out := make([]Category, len(u.order))
	copy(out, u.order)
	return out
}

func (u *Universe) Len() int { return len(u.order) }

func (u *Universe) Contains(c Category) bool {
	_, ok := u.index[c]
	return ok
}

// Index returns the position of c, or -1.
func (u *Universe) Index(c Category) int {
	if i, ok := u.index[c]; ok {
		return i
	}
	return -1
}

func (u *Universe) NoWaste() Category { return u.noWaste }

// Score builds a ScoredCategory that is guaranteed to belong to the universe.
func (u *Universe) Score(c Category, confidence float64) (ScoredCategory, error) {
	if !u.Contains(c) {
		return ScoredCategory{}, fmt.Errorf("%w: %q", ErrUnknownCategory, c)
	}
	return NewScoredCategory(c, confidence)
}
