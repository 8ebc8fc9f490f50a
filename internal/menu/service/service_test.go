package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Yo-Self/yo-self.github.io-sub001/internal/database/models"
	"github.com/Yo-Self/yo-self.github.io-sub001/internal/menu/cache"
	"github.com/Yo-Self/yo-self.github.io-sub001/internal/menu/cart"
	"github.com/Yo-Self/yo-self.github.io-sub001/internal/menu/compose"
	"github.com/Yo-Self/yo-self.github.io-sub001/internal/menu/fetcher"
	"github.com/Yo-Self/yo-self.github.io-sub001/internal/menu/query"
	"github.com/Yo-Self/yo-self.github.io-sub001/internal/menu/service"
)

// ids from fixtures/menu.json
const (
	cantinaID = "aaaaaaaa-0000-4000-8000-000000000001"
	kioskID   = "aaaaaaaa-0000-4000-8000-000000000002"
	padariaID = "aaaaaaaa-0000-4000-8000-000000000003"
	org1ID    = "0a0a0a0a-0000-4000-8000-000000000001"

	feijoadaID   = "dddddddd-0000-4000-8000-000000000001"
	brigadeiroID = "dddddddd-0000-4000-8000-000000000002"
	burgerID     = "dddddddd-0000-4000-8000-000000000003"
	pudimID      = "dddddddd-0000-4000-8000-000000000005"

	drinkGroupID  = "eeeeeeee-0000-4000-8000-000000000001"
	extrasGroupID = "eeeeeeee-0000-4000-8000-000000000002"
	waterID       = "ffffffff-0000-4000-8000-000000000001"
	baconID       = "ffffffff-0000-4000-8000-000000000003"
	eggID         = "ffffffff-0000-4000-8000-000000000004"
)

type flakyQuerier struct {
	inner query.Querier
	mu    sync.Mutex
	fail  map[string]error
	calls map[string]int
}

func (f *flakyQuerier) Select(ctx context.Context, q query.Query) ([]json.RawMessage, error) {
	f.mu.Lock()
	f.calls[q.Table]++
	err := f.fail[q.Table]
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.inner.Select(ctx, q)
}

func (f *flakyQuerier) count(table string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[table]
}

func newService(t *testing.T) (*service.Service, *flakyQuerier) {
	t.Helper()
	mem, err := query.LoadMemoryQuerier("../../../fixtures/menu.json")
	require.NoError(t, err)
	q := &flakyQuerier{inner: mem, fail: map[string]error{}, calls: map[string]int{}}
	f := fetcher.New(q, cache.New(), fetcher.WithChunkSize(2))
	return service.New(f, compose.NewComposer(), nil), q
}

func itemNames(items []compose.MenuItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Name
	}
	return out
}

func TestFetchRestaurantBySlugWithData(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t)

	r, err := svc.FetchRestaurantBySlugWithData(context.Background(), "cantina-da-praca")
	require.NoError(t, err)
	require.NotNil(t, r)

	assert.Equal(t, cantinaID, r.ID)
	assert.Equal(t, []string{"Pratos", "Sobremesas"}, r.MenuCategories)
	assert.Equal(t, []string{"Burger", "Feijoada", "Brigadeiro", "Pudim"}, itemNames(r.MenuItems))
	assert.Equal(t, []string{"Burger", "Feijoada"}, itemNames(r.FeaturedDishes))
	assert.Equal(t, []string{"Destaque"}, r.FeaturedDishes[1].Tags)

	burger, ok := r.Item(burgerID)
	require.True(t, ok)
	assert.Equal(t, "25,90", burger.Price)
	assert.Equal(t, []string{"Pratos"}, burger.Categories)
	require.Len(t, burger.ComplementGroups, 2)
	assert.Equal(t, "Bebida", burger.ComplementGroups[0].Title)
	extras := burger.ComplementGroups[1]
	require.Len(t, extras.Complements, 2)
	assert.Equal(t, baconID, extras.Complements[0].ID)
	assert.Equal(t, eggID, extras.Complements[1].ID)

	brigadeiro, ok := r.Item(brigadeiroID)
	require.True(t, ok)
	assert.Equal(t, "Sobremesas", brigadeiro.Category)
	assert.Nil(t, brigadeiro.ComplementGroups)
}

func TestFetchRestaurantBySlugFallsBackToID(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t)

	r, err := svc.FetchRestaurantBySlugWithData(context.Background(), kioskID)
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, "Quiosque Sem Slug", r.Name)
	assert.Empty(t, r.MenuItems)
	assert.NotNil(t, r.MenuItems)

	r, err = svc.FetchRestaurantBySlugWithData(context.Background(), strings.ToUpper(kioskID))
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, kioskID, r.ID)
}

func TestFetchUnknownRestaurant(t *testing.T) {
	t.Parallel()
	svc, q := newService(t)
	ctx := context.Background()

	r, err := svc.FetchRestaurantBySlugWithData(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, r)

	r, err = svc.FetchRestaurantByIDWithData(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, r)

	r, err = svc.FetchRestaurantByIDWithData(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.Nil(t, r)

	r, err = svc.FetchRestaurantBySlugWithData(ctx, "   ")
	require.NoError(t, err)
	assert.Nil(t, r)

	// "nope" by slug only, the random uuid by id only
	assert.Equal(t, 2, q.count(models.TableRestaurants))
}

// typedIDSource answers like PostgREST over uuid columns: a non-uuid id
// filter is a 22P02 error, every other query matches nothing.
func typedIDSource(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()
	var (
		mu   sync.Mutex
		seen []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.URL.RawQuery)
		mu.Unlock()

		if v := r.URL.Query().Get("id"); strings.HasPrefix(v, "eq.") {
			if _, err := uuid.Parse(strings.TrimPrefix(v, "eq.")); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"code":"22P02","message":"invalid input syntax for type uuid"}`))
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func TestUnknownKeysAgainstTypedSource(t *testing.T) {
	t.Parallel()
	srv, seen := typedIDSource(t)
	rest := query.NewRestClient(srv.URL, "anon", time.Second)
	svc := service.New(fetcher.New(rest, cache.New()), compose.NewComposer(), nil)
	ctx := context.Background()

	r, err := svc.FetchRestaurantBySlugWithData(ctx, "no-such-slug")
	require.NoError(t, err)
	assert.Nil(t, r)

	r, err = svc.FetchRestaurantByIDWithData(ctx, "no-such-id")
	require.NoError(t, err)
	assert.Nil(t, r)

	r, err = svc.FetchRestaurantBySlugWithData(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.Nil(t, r)

	_, err = svc.Invalidate(ctx, "no-such-slug")
	assert.ErrorIs(t, err, service.ErrRestaurantNotFound)

	for _, raw := range *seen {
		assert.NotContains(t, raw, "id=eq.no-such", "non-uuid id must not reach the source")
	}
}

func TestFetchRestaurantByIDWithData(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t)

	r, err := svc.FetchRestaurantByIDWithData(context.Background(), padariaID)
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, []string{"Pão de queijo"}, itemNames(r.MenuItems))
	assert.Equal(t, "6,50", r.MenuItems[0].Price)
}

func TestFetchFullRestaurants(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t)

	all, err := svc.FetchFullRestaurants(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 3)

	byID := map[string]compose.Restaurant{}
	for _, r := range all {
		byID[r.ID] = r
	}
	assert.Len(t, byID[cantinaID].MenuItems, 4)
	assert.Len(t, byID[padariaID].MenuItems, 1)
}

func TestFetchFullRestaurantsIsAllOrNothing(t *testing.T) {
	t.Parallel()
	svc, q := newService(t)
	q.fail[models.TableComplements] = errors.New("connection reset")

	all, err := svc.FetchFullRestaurants(context.Background())
	require.Error(t, err)
	assert.Nil(t, all)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestFetchRestaurantIDs(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t)

	ids, err := svc.FetchRestaurantIDs(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"cantina-da-praca", kioskID, "padaria-central"}, ids)
}

func TestFetchOrganizationRestaurants(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t)

	rs, err := svc.FetchOrganizationRestaurants(context.Background(), org1ID)
	require.NoError(t, err)
	require.Len(t, rs, 2)
	for _, r := range rs {
		assert.Equal(t, org1ID, r.OrganizationID)
	}

	rs, err = svc.FetchOrganizationRestaurants(context.Background(), uuid.NewString())
	require.NoError(t, err)
	assert.Empty(t, rs)
}

func TestQuoteCart(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t)
	ctx := context.Background()

	q, err := svc.QuoteCart(ctx, "cantina-da-praca", []cart.Line{
		{
			DishID: burgerID, Quantity: 1,
			Selections: []cart.Selection{
				{GroupID: drinkGroupID, ComplementIDs: []string{waterID}},
				{GroupID: extrasGroupID, ComplementIDs: []string{baconID}},
			},
		},
		{DishID: brigadeiroID, Quantity: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, "48,90", q.Total)
	assert.Equal(t, 3, q.ItemCount)

	_, err = svc.QuoteCart(ctx, "nope", []cart.Line{{DishID: burgerID, Quantity: 1}})
	assert.ErrorIs(t, err, service.ErrRestaurantNotFound)

	_, err = svc.QuoteCart(ctx, "cantina-da-praca", []cart.Line{{DishID: pudimID, Quantity: 1}})
	var verr *cart.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestInvalidateRefetches(t *testing.T) {
	t.Parallel()
	svc, q := newService(t)
	ctx := context.Background()

	_, err := svc.FetchRestaurantBySlugWithData(ctx, "cantina-da-praca")
	require.NoError(t, err)
	_, err = svc.FetchRestaurantBySlugWithData(ctx, "cantina-da-praca")
	require.NoError(t, err)
	assert.Equal(t, 1, q.count(models.TableDishes))

	res, err := svc.Invalidate(ctx, "cantina-da-praca")
	require.NoError(t, err)
	assert.False(t, res.Degraded())

	_, err = svc.FetchRestaurantBySlugWithData(ctx, "cantina-da-praca")
	require.NoError(t, err)
	assert.Equal(t, 2, q.count(models.TableDishes))

	_, err = svc.Invalidate(ctx, "nope")
	assert.ErrorIs(t, err, service.ErrRestaurantNotFound)
}

func TestCustomLookups(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t)
	calls := 0
	svc.WithLookups(service.Lookup{Name: "none", Find: func(context.Context, string) (*models.Restaurant, error) {
		calls++
		return nil, nil
	}})

	r, err := svc.FetchRestaurantBySlugWithData(context.Background(), "cantina-da-praca")
	require.NoError(t, err)
	assert.Nil(t, r)
	assert.Equal(t, 1, calls)
}

func TestFeijoadaKeepsJunctionCategoryOnly(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t)

	r, err := svc.FetchRestaurantByIDWithData(context.Background(), cantinaID)
	require.NoError(t, err)
	require.NotNil(t, r)

	feijoada, ok := r.Item(feijoadaID)
	require.True(t, ok)
	assert.Equal(t, []string{"Pratos"}, feijoada.Categories)
}
