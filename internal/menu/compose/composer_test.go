package compose_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Yo-Self/yo-self.github.io-sub001/internal/database/models"
	"github.com/Yo-Self/yo-self.github.io-sub001/internal/menu/compose"
)

func boolp(v bool) *bool    { return &v }
func int64p(v int64) *int64 { return &v }

func itemNames(items []compose.MenuItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Name
	}
	return out
}

func fixture() compose.Input {
	return compose.Input{
		Restaurant: models.Restaurant{
			ID:              "r1",
			Slug:            strp("cantina"),
			Name:            "Cantina",
			WelcomeMessage:  strp("Bem-vindo"),
			WhatsappEnabled: boolp(true),
			WhatsappPhone:   strp("5511999999999"),
		},
		Categories: []models.Category{
			{ID: "c2", Name: "Specials", Position: intp(2)},
			{ID: "c3", Name: "Loose", Position: nil},
			{ID: "c1", Name: "Drinks", Position: intp(1)},
		},
		Dishes: []models.Dish{
			{ID: "d1", Name: "Zeta"},
			{ID: "d2", Name: "Beta", Price: int64p(1250), IsFeatured: boolp(true)},
			{ID: "d3", Name: "Alpha", Price: int64p(900), IsFeatured: boolp(true), IsAvailable: boolp(false)},
			{ID: "d4", Name: "   ", IsFeatured: boolp(true)},
			{ID: "d5", Name: "Éclair", Price: int64p(700), Tags: models.StringArray{"doce"}, IsFeatured: boolp(true), CategoryID: strp("c2")},
		},
		DishCategories: []models.DishCategory{
			{DishID: "d2", CategoryID: "c1", Position: intp(1)},
			{DishID: "d3", CategoryID: "c1", Position: intp(1)},
			{DishID: "d3", CategoryID: "c2", Position: intp(7)},
			{DishID: "d4", CategoryID: "c1", Position: intp(0)},
		},
		Groups: []models.ComplementGroup{
			{ID: "g1", Title: "Bebida", Required: boolp(true), MaxSelections: intp(2)},
		},
		DishGroups: []models.DishComplementGroup{
			{DishID: "d2", ComplementGroupID: "g1", Position: intp(1)},
		},
		Complements: []models.Complement{
			{ID: "x2", GroupID: "g1", Name: "Suco", Price: int64p(600), Position: intp(2)},
			{ID: "x1", GroupID: "g1", Name: "Água", Price: int64p(400), Position: intp(1)},
			{ID: "x3", GroupID: "g1", Name: "Off", IsActive: boolp(false), Position: intp(0)},
		},
	}
}

func TestComposeOrdering(t *testing.T) {
	t.Parallel()

	out := compose.NewComposer().Compose(fixture())
	r := out.Restaurant

	// position 1 ties break by name, dishes without a junction position sort last
	assert.Equal(t, []string{"Alpha", "Beta", "Éclair", "Zeta"}, itemNames(r.MenuItems))
	assert.Equal(t, []string{"Drinks", "Specials", "Loose"}, r.MenuCategories)
}

func TestComposeSortDeterminism(t *testing.T) {
	t.Parallel()

	in := compose.Input{
		Restaurant: models.Restaurant{ID: "r1", Name: "R"},
		Categories: []models.Category{{ID: "c1", Name: "Main"}},
		Dishes: []models.Dish{
			{ID: "a", Name: "Zeta"},
			{ID: "b", Name: "Beta"},
			{ID: "c", Name: "Alpha"},
		},
		DishCategories: []models.DishCategory{
			{DishID: "b", CategoryID: "c1", Position: intp(1)},
			{DishID: "c", CategoryID: "c1", Position: intp(1)},
		},
	}

	// Beta and Alpha tie at position 1 and the name breaks the tie, so Alpha
	// comes first. The published sample of this input shows Beta, Alpha, Zeta,
	// which contradicts the name-ascending rule; the rule wins.
	out := compose.NewComposer().Compose(in)
	assert.Equal(t, []string{"Alpha", "Beta", "Zeta"}, itemNames(out.Restaurant.MenuItems))
}

func TestComposeCategoryTiesKeepInputOrder(t *testing.T) {
	t.Parallel()

	in := compose.Input{
		Restaurant: models.Restaurant{ID: "r1", Name: "R"},
		Categories: []models.Category{
			{ID: "c1", Name: "Sobremesas", Position: intp(1)},
			{ID: "c2", Name: "Bebidas", Position: intp(1)},
			{ID: "c3", Name: "Avulsos"},
			{ID: "c4", Name: "Entradas", Position: intp(0)},
		},
	}

	out := compose.NewComposer().Compose(in)
	assert.Equal(t, []string{"Entradas", "Sobremesas", "Bebidas", "Avulsos"}, out.Restaurant.MenuCategories)
}

func TestComposeNameFiltering(t *testing.T) {
	t.Parallel()

	r := compose.NewComposer().Compose(fixture()).Restaurant
	for _, it := range append(r.MenuItems, r.FeaturedDishes...) {
		assert.NotEqual(t, "d4", it.ID)
	}
}

func TestComposeFeatured(t *testing.T) {
	t.Parallel()

	r := compose.NewComposer(compose.WithLabels(compose.Labels{Featured: "Featured"})).Compose(fixture()).Restaurant

	assert.Equal(t, []string{"Beta", "Éclair"}, itemNames(r.FeaturedDishes))
	assert.Equal(t, []string{"Featured"}, r.FeaturedDishes[0].Tags)
	assert.Equal(t, []string{"doce"}, r.FeaturedDishes[1].Tags)

	alpha, ok := r.Item("d3")
	require.True(t, ok, "unavailable featured dish stays on the menu")
	assert.False(t, alpha.IsAvailable)

	beta, _ := r.Item("d2")
	assert.Empty(t, beta.Tags, "placeholder tag only applies to the featured list")

	menuIDs := map[string]bool{}
	for _, it := range r.MenuItems {
		menuIDs[it.ID] = true
	}
	for _, f := range r.FeaturedDishes {
		assert.True(t, menuIDs[f.ID])
		assert.True(t, f.IsFeatured && f.IsAvailable)
	}
}

func TestComposeItemFields(t *testing.T) {
	t.Parallel()

	r := compose.NewComposer().Compose(fixture()).Restaurant

	zeta, _ := r.Item("d1")
	assert.Equal(t, "0,00", zeta.Price)
	assert.Equal(t, "Sem categoria", zeta.Category)
	assert.Equal(t, []string{"Sem categoria"}, zeta.Categories)
	assert.NotNil(t, zeta.Tags)

	alpha, _ := r.Item("d3")
	assert.Equal(t, "9,00", alpha.Price)
	assert.Equal(t, "Drinks", alpha.Category)
	assert.Equal(t, []string{"Drinks", "Specials"}, alpha.Categories)

	eclair, _ := r.Item("d5")
	assert.Equal(t, []string{"Specials"}, eclair.Categories, "legacy category id fallback")

	beta, _ := r.Item("d2")
	require.Len(t, beta.ComplementGroups, 1)
	g := beta.ComplementGroups[0]
	assert.True(t, g.Required)
	assert.Equal(t, 2, g.MaxSelections)
	require.Len(t, g.Complements, 2)
	assert.Equal(t, "Água", g.Complements[0].Name)
	assert.Equal(t, "4,00", g.Complements[0].Price)
	assert.Equal(t, "Suco", g.Complements[1].Name)

	assert.Equal(t, "Bem-vindo", r.WelcomeMessage)
	assert.True(t, r.WhatsappEnabled)
	assert.False(t, r.WaiterCallEnabled)
}

func TestComposeOmitsEmptyComplementGroups(t *testing.T) {
	t.Parallel()

	r := compose.NewComposer().Compose(fixture()).Restaurant

	zeta, _ := r.Item("d1")
	assert.Nil(t, zeta.ComplementGroups)

	b, err := json.Marshal(zeta)
	require.NoError(t, err)
	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(b, &fields))
	_, present := fields["complement_groups"]
	assert.False(t, present)

	beta, _ := r.Item("d2")
	b, err = json.Marshal(beta)
	require.NoError(t, err)
	fields = nil
	require.NoError(t, json.Unmarshal(b, &fields))
	_, present = fields["complement_groups"]
	assert.True(t, present)
}

func TestComposeIdempotent(t *testing.T) {
	t.Parallel()

	c := compose.NewComposer()
	first, err := json.Marshal(c.Compose(fixture()))
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := json.Marshal(c.Compose(fixture()))
		require.NoError(t, err)
		assert.Equal(t, string(first), string(again))
	}
}

func TestComposeReportsGaps(t *testing.T) {
	t.Parallel()

	in := fixture()
	in.DishCategories = append(in.DishCategories, models.DishCategory{DishID: "d1", CategoryID: "ghost"})
	in.DishGroups = append(in.DishGroups, models.DishComplementGroup{DishID: "d1", ComplementGroupID: "gone"})

	out := compose.NewComposer().Compose(in)
	assert.Len(t, out.Gaps, 2)
	assert.Len(t, out.Restaurant.MenuItems, 4)
}

func TestComposeEmpty(t *testing.T) {
	t.Parallel()

	r := compose.NewComposer().Compose(compose.Input{Restaurant: models.Restaurant{ID: "r1", Name: "Empty"}}).Restaurant
	assert.NotNil(t, r.MenuItems)
	assert.NotNil(t, r.FeaturedDishes)
	assert.NotNil(t, r.MenuCategories)
	assert.Empty(t, r.MenuItems)
}
