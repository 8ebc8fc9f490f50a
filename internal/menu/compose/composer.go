// Package compose turns the flat menu rows of one restaurant into the nested
// view served to clients.
package compose

import (
	"math"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/Yo-Self/yo-self.github.io-sub001/internal/database/models"
	"github.com/Yo-Self/yo-self.github.io-sub001/internal/menu/price"
)

const defaultMaxSelections = 1

type Labels struct {
	NoCategory string
	Featured   string
}

var DefaultLabels = Labels{NoCategory: "Sem categoria", Featured: "Destaque"}

// Input holds every row needed for one restaurant.
type Input struct {
	Restaurant     models.Restaurant
	Categories     []models.Category
	Dishes         []models.Dish
	DishCategories []models.DishCategory
	Groups         []models.ComplementGroup
	Complements    []models.Complement
	DishGroups     []models.DishComplementGroup
}

// Output is the composed restaurant plus the data gaps met on the way.
type Output struct {
	Restaurant Restaurant
	Gaps       []Gap
}

type Composer struct {
	labels     Labels
	locale     language.Tag
	strategies []CategoryStrategy
}

type Option func(*Composer)

func WithLabels(l Labels) Option {
	return func(c *Composer) {
		if l.NoCategory != "" {
			c.labels.NoCategory = l.NoCategory
		}
		if l.Featured != "" {
			c.labels.Featured = l.Featured
		}
	}
}

// WithLocale sets the collation used for name ordering. Unparseable tags keep
// the default.
func WithLocale(tag string) Option {
	return func(c *Composer) {
		if t, err := language.Parse(tag); err == nil {
			c.locale = t
		}
	}
}

func WithCategoryStrategies(s ...CategoryStrategy) Option {
	return func(c *Composer) {
		if len(s) > 0 {
			c.strategies = s
		}
	}
}

func NewComposer(opts ...Option) *Composer {
	c := &Composer{
		labels:     DefaultLabels,
		locale:     language.BrazilianPortuguese,
		strategies: DefaultCategoryStrategies,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type sortable struct {
	item MenuItem
	key  int
}

// Compose is deterministic for a given Input.
func (c *Composer) Compose(in Input) Output {
	assoc := Resolve(in.Categories, in.DishCategories, in.Groups, in.DishGroups)
	complementsByGroup := groupComplements(in.Complements)

	// collators keep internal buffers, so each call gets its own
	col := collate.New(c.locale)

	items := make([]sortable, 0, len(in.Dishes))
	for _, d := range in.Dishes {
		if strings.TrimSpace(d.Name) == "" {
			continue
		}

		categories := assoc.CategoriesFor(d, c.strategies, c.labels.NoCategory)

		key := math.MaxInt
		if pos, ok := assoc.PositionByDishID[d.ID]; ok {
			key = pos
		}

		items = append(items, sortable{
			item: MenuItem{
				ID:               d.ID,
				Name:             d.Name,
				Description:      str(d.Description),
				Price:            price.Format(d.Price),
				Image:            str(d.Image),
				Category:         categories[0],
				Categories:       categories,
				Tags:             tags(d.Tags),
				Ingredients:      str(d.Ingredients),
				Allergens:        str(d.Allergens),
				Portion:          str(d.Portion),
				IsAvailable:      d.Available(),
				IsFeatured:       d.Featured(),
				ComplementGroups: buildGroups(assoc.GroupsByDishID[d.ID], complementsByGroup),
			},
			key: key,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].key != items[j].key {
			return items[i].key < items[j].key
		}
		if cmp := col.CompareString(items[i].item.Name, items[j].item.Name); cmp != 0 {
			return cmp < 0
		}
		return items[i].item.ID < items[j].item.ID
	})

	menuItems := make([]MenuItem, len(items))
	featured := []MenuItem{}
	for i, s := range items {
		menuItems[i] = s.item
		if s.item.IsFeatured && s.item.IsAvailable {
			f := s.item
			if len(f.Tags) == 0 {
				f.Tags = []string{c.labels.Featured}
			}
			featured = append(featured, f)
		}
	}

	r := in.Restaurant
	return Output{
		Restaurant: Restaurant{
			ID:                    r.ID,
			Slug:                  str(r.Slug),
			OrganizationID:        str(r.OrganizationID),
			Name:                  r.Name,
			Description:           str(r.Description),
			WelcomeMessage:        str(r.WelcomeMessage),
			Image:                 str(r.Image),
			WaiterCallEnabled:     boolean(r.WaiterCallEnabled),
			WhatsappEnabled:       boolean(r.WhatsappEnabled),
			WhatsappPhone:         str(r.WhatsappPhone),
			WhatsappCustomMessage: str(r.WhatsappCustomMessage),
			MenuCategories:        categoryNames(in.Categories),
			FeaturedDishes:        featured,
			MenuItems:             menuItems,
		},
		Gaps: assoc.Gaps,
	}
}

func categoryNames(categories []models.Category) []string {
	sorted := append([]models.Category(nil), categories...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return positionOrMax(sorted[i].Position) < positionOrMax(sorted[j].Position)
	})
	names := make([]string, 0, len(sorted))
	for _, c := range sorted {
		names = append(names, c.Name)
	}
	return names
}

func groupComplements(complements []models.Complement) map[string][]models.Complement {
	out := make(map[string][]models.Complement)
	for _, c := range complements {
		if !c.Active() {
			continue
		}
		out[c.GroupID] = append(out[c.GroupID], c)
	}
	for id := range out {
		list := out[id]
		sort.SliceStable(list, func(i, j int) bool {
			return positionOrMax(list[i].Position) < positionOrMax(list[j].Position)
		})
	}
	return out
}

func buildGroups(groups []models.ComplementGroup, complementsByGroup map[string][]models.Complement) []ComplementGroup {
	if len(groups) == 0 {
		return nil
	}
	out := make([]ComplementGroup, 0, len(groups))
	for _, g := range groups {
		maxSel := defaultMaxSelections
		if g.MaxSelections != nil {
			maxSel = *g.MaxSelections
		}
		complements := make([]Complement, 0, len(complementsByGroup[g.ID]))
		for _, c := range complementsByGroup[g.ID] {
			complements = append(complements, Complement{
				ID:          c.ID,
				Name:        c.Name,
				Description: str(c.Description),
				Price:       price.Format(c.Price),
				Image:       str(c.Image),
				Ingredients: str(c.Ingredients),
			})
		}
		out = append(out, ComplementGroup{
			ID:            g.ID,
			Title:         g.Title,
			Description:   str(g.Description),
			Required:      boolean(g.Required),
			MaxSelections: maxSel,
			Complements:   complements,
		})
	}
	return out
}

func positionOrMax(p *int) int {
	if p == nil {
		return math.MaxInt
	}
	return *p
}

func tags(t models.StringArray) []string {
	if len(t) == 0 {
		return []string{}
	}
	return append([]string(nil), t...)
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func boolean(b *bool) bool {
	return b != nil && *b
}
