package compose

import (
	"github.com/Yo-Self/yo-self.github.io-sub001/internal/database/models"
)

type GapKind string

const (
	GapCategory        GapKind = "category"
	GapComplementGroup GapKind = "complement_group"
	GapLegacyCategory  GapKind = "legacy_category"
)

// Gap is a junction row or legacy key that points at a missing record. Gaps
// are collected, never raised.
type Gap struct {
	Kind   GapKind `json:"kind"`
	DishID string  `json:"dish_id"`
	RefID  string  `json:"ref_id"`
}

// Associations are the lookup maps built from the junction tables.
type Associations struct {
	CategoryNameByID   map[string]string
	CategoriesByDishID map[string][]string
	PositionByDishID   map[string]int
	GroupsByDishID     map[string][]models.ComplementGroup
	Gaps               []Gap
}

// Resolve builds the association maps. dishCategories and dishGroups are
// expected sorted by position; their order is kept per dish. A dish keeps the
// minimum position of its category rows. Dishes without group rows get no
// GroupsByDishID entry.
func Resolve(
	categories []models.Category,
	dishCategories []models.DishCategory,
	groups []models.ComplementGroup,
	dishGroups []models.DishComplementGroup,
) Associations {
	a := Associations{
		CategoryNameByID:   make(map[string]string, len(categories)),
		CategoriesByDishID: make(map[string][]string),
		PositionByDishID:   make(map[string]int),
		GroupsByDishID:     make(map[string][]models.ComplementGroup),
	}

	for _, c := range categories {
		a.CategoryNameByID[c.ID] = c.Name
	}

	for _, dc := range dishCategories {
		name, ok := a.CategoryNameByID[dc.CategoryID]
		if !ok {
			a.Gaps = append(a.Gaps, Gap{Kind: GapCategory, DishID: dc.DishID, RefID: dc.CategoryID})
			continue
		}
		if !contains(a.CategoriesByDishID[dc.DishID], name) {
			a.CategoriesByDishID[dc.DishID] = append(a.CategoriesByDishID[dc.DishID], name)
		}
		if dc.Position != nil {
			if cur, seen := a.PositionByDishID[dc.DishID]; !seen || *dc.Position < cur {
				a.PositionByDishID[dc.DishID] = *dc.Position
			}
		}
	}

	groupsByID := make(map[string]models.ComplementGroup, len(groups))
	for _, g := range groups {
		groupsByID[g.ID] = g
	}

	attached := make(map[string]map[string]bool)
	for _, dg := range dishGroups {
		g, ok := groupsByID[dg.ComplementGroupID]
		if !ok {
			a.Gaps = append(a.Gaps, Gap{Kind: GapComplementGroup, DishID: dg.DishID, RefID: dg.ComplementGroupID})
			continue
		}
		if attached[dg.DishID] == nil {
			attached[dg.DishID] = make(map[string]bool)
		}
		if attached[dg.DishID][g.ID] {
			continue
		}
		attached[dg.DishID][g.ID] = true
		a.GroupsByDishID[dg.DishID] = append(a.GroupsByDishID[dg.DishID], g)
	}

	return a
}

// CategoryStrategy resolves the category names of a dish, reporting whether it
// produced a match.
type CategoryStrategy func(a *Associations, d models.Dish) ([]string, bool)

// FromJunction uses the dish_categories rows.
func FromJunction(a *Associations, d models.Dish) ([]string, bool) {
	names := a.CategoriesByDishID[d.ID]
	return names, len(names) > 0
}

// FromLegacyCategory uses the single category_id column on the dish.
func FromLegacyCategory(a *Associations, d models.Dish) ([]string, bool) {
	if d.CategoryID == nil || *d.CategoryID == "" {
		return nil, false
	}
	name, ok := a.CategoryNameByID[*d.CategoryID]
	if !ok {
		a.Gaps = append(a.Gaps, Gap{Kind: GapLegacyCategory, DishID: d.ID, RefID: *d.CategoryID})
		return nil, false
	}
	return []string{name}, true
}

// DefaultCategoryStrategies is the precedence used by the composer.
var DefaultCategoryStrategies = []CategoryStrategy{FromJunction, FromLegacyCategory}

// CategoriesFor runs strategies in order and returns the first match, or
// fallback alone when none matches.
func (a *Associations) CategoriesFor(d models.Dish, strategies []CategoryStrategy, fallback string) []string {
	for _, s := range strategies {
		if names, ok := s(a, d); ok {
			return append([]string(nil), names...)
		}
	}
	return []string{fallback}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
