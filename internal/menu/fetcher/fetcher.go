// Package fetcher issues the per-table reads behind a restaurant composition.
// Every read goes through the row cache; reads filtered by a list of parent
// ids are split into chunks to keep request URLs short.
package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Yo-Self/yo-self.github.io-sub001/internal/database/models"
	"github.com/Yo-Self/yo-self.github.io-sub001/internal/menu/cache"
	"github.com/Yo-Self/yo-self.github.io-sub001/internal/menu/query"
	"github.com/Yo-Self/yo-self.github.io-sub001/internal/metrics"
)

const DefaultChunkSize = 20

// Cache keys. Restaurant-scoped keys start with "<table>:<restaurantID>" so a
// single prefix drops everything cached for one restaurant.
const (
	RESTAURANTS_CACHE_KEY         = "restaurants-list"
	RESTAURANT_IDS_CACHE_KEY      = "restaurant-ids"
	RESTAURANT_CACHE_PREFIX       = "restaurant:"
	RESTAURANT_SLUG_PREFIX        = "restaurant-slug:"
	ORGANIZATION_CACHE_PREFIX     = "organization:"
	CATEGORIES_CACHE_PREFIX       = "categories:"
	DISHES_CACHE_PREFIX           = "dishes:"
	DISH_CATEGORIES_PREFIX        = "dish-categories:"
	COMPLEMENT_GROUPS_PREFIX      = "complement-groups:"
	DISH_COMPLEMENT_GROUPS_PREFIX = "dish-complement-groups:"
	COMPLEMENTS_CACHE_PREFIX      = "complements:"
)

type validator interface {
	Validate() error
}

type Fetcher struct {
	querier   query.Querier
	cache     *cache.Cache
	chunkSize int
	log       *zap.Logger
}

type Option func(*Fetcher)

func WithChunkSize(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.chunkSize = n
		}
	}
}

func WithLogger(l *zap.Logger) Option { return func(f *Fetcher) { f.log = l } }

func New(q query.Querier, c *cache.Cache, opts ...Option) *Fetcher {
	if c == nil {
		c = cache.New()
	}
	f := &Fetcher{
		querier:   q,
		cache:     c,
		chunkSize: DefaultChunkSize,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Fetcher) Cache() *cache.Cache { return f.cache }

func (f *Fetcher) Restaurants(ctx context.Context) ([]models.Restaurant, error) {
	return fetch[models.Restaurant](ctx, f, RESTAURANTS_CACHE_KEY, query.Query{
		Table: models.TableRestaurants,
		Order: []query.Order{query.Asc("name")},
	})
}

func (f *Fetcher) RestaurantRefs(ctx context.Context) ([]models.RestaurantRef, error) {
	return fetch[models.RestaurantRef](ctx, f, RESTAURANT_IDS_CACHE_KEY, query.Query{
		Table:   models.TableRestaurants,
		Columns: []string{"id", "slug"},
		Order:   []query.Order{query.Asc("name")},
	})
}

// RestaurantBySlug returns nil when no restaurant has the slug.
func (f *Fetcher) RestaurantBySlug(ctx context.Context, slug string) (*models.Restaurant, error) {
	return first[models.Restaurant](fetch[models.Restaurant](ctx, f, RESTAURANT_SLUG_PREFIX+slug, query.Query{
		Table:   models.TableRestaurants,
		Filters: []query.Filter{query.Eq("slug", slug)},
		Limit:   1,
	}))
}

// RestaurantByID returns nil when the id is unknown.
func (f *Fetcher) RestaurantByID(ctx context.Context, id string) (*models.Restaurant, error) {
	return first[models.Restaurant](fetch[models.Restaurant](ctx, f, RESTAURANT_CACHE_PREFIX+id, query.Query{
		Table:   models.TableRestaurants,
		Filters: []query.Filter{query.Eq("id", id)},
		Limit:   1,
	}))
}

func (f *Fetcher) RestaurantsByOrganization(ctx context.Context, organizationID string) ([]models.Restaurant, error) {
	return fetch[models.Restaurant](ctx, f, ORGANIZATION_CACHE_PREFIX+organizationID, query.Query{
		Table:   models.TableRestaurants,
		Filters: []query.Filter{query.Eq("organization_id", organizationID)},
		Order:   []query.Order{query.Asc("name")},
	})
}

func (f *Fetcher) Categories(ctx context.Context, restaurantID string) ([]models.Category, error) {
	return fetch[models.Category](ctx, f, CATEGORIES_CACHE_PREFIX+restaurantID, query.Query{
		Table:   models.TableCategories,
		Filters: []query.Filter{query.Eq("restaurant_id", restaurantID)},
		Order:   []query.Order{query.Asc("position"), query.Asc("name")},
	})
}

func (f *Fetcher) Dishes(ctx context.Context, restaurantID string) ([]models.Dish, error) {
	return fetch[models.Dish](ctx, f, DISHES_CACHE_PREFIX+restaurantID, query.Query{
		Table:   models.TableDishes,
		Filters: []query.Filter{query.Eq("restaurant_id", restaurantID)},
		Order:   []query.Order{query.Asc("name")},
	})
}

func (f *Fetcher) ComplementGroups(ctx context.Context, restaurantID string) ([]models.ComplementGroup, error) {
	return fetch[models.ComplementGroup](ctx, f, COMPLEMENT_GROUPS_PREFIX+restaurantID, query.Query{
		Table:   models.TableComplementGroups,
		Filters: []query.Filter{query.Eq("restaurant_id", restaurantID)},
		Order:   []query.Order{query.Asc("title")},
	})
}

// DishCategories returns the junction rows for dishIDs ordered by position
// within each chunk. restaurantID only scopes the cache keys.
func (f *Fetcher) DishCategories(ctx context.Context, restaurantID string, dishIDs []string) ([]models.DishCategory, error) {
	return fetchChunked[models.DishCategory](ctx, f, DISH_CATEGORIES_PREFIX+restaurantID, dishIDs, func(ids []string) query.Query {
		return query.Query{
			Table:   models.TableDishCategories,
			Filters: []query.Filter{query.In("dish_id", ids)},
			Order:   []query.Order{query.Asc("position")},
		}
	})
}

func (f *Fetcher) DishComplementGroups(ctx context.Context, restaurantID string, dishIDs []string) ([]models.DishComplementGroup, error) {
	return fetchChunked[models.DishComplementGroup](ctx, f, DISH_COMPLEMENT_GROUPS_PREFIX+restaurantID, dishIDs, func(ids []string) query.Query {
		return query.Query{
			Table:   models.TableDishComplementGroups,
			Filters: []query.Filter{query.In("dish_id", ids)},
			Order:   []query.Order{query.Asc("position")},
		}
	})
}

// Complements returns the active complements of groupIDs ordered by position.
func (f *Fetcher) Complements(ctx context.Context, restaurantID string, groupIDs []string) ([]models.Complement, error) {
	return fetchChunked[models.Complement](ctx, f, COMPLEMENTS_CACHE_PREFIX+restaurantID, groupIDs, func(ids []string) query.Query {
		return query.Query{
			Table:   models.TableComplements,
			Filters: []query.Filter{query.In("group_id", ids), query.Is("is_active", "true")},
			Order:   []query.Order{query.Asc("position")},
		}
	})
}

// RestaurantPrefixes lists the cache prefixes holding data for one restaurant,
// plus the shared listing keys that embed it. A prefix may also match another
// restaurant whose id extends this one; that only costs a refetch.
func RestaurantPrefixes(r models.Restaurant) []string {
	prefixes := []string{
		RESTAURANTS_CACHE_KEY,
		RESTAURANT_IDS_CACHE_KEY,
		RESTAURANT_CACHE_PREFIX + r.ID,
		CATEGORIES_CACHE_PREFIX + r.ID,
		DISHES_CACHE_PREFIX + r.ID,
		DISH_CATEGORIES_PREFIX + r.ID,
		COMPLEMENT_GROUPS_PREFIX + r.ID,
		DISH_COMPLEMENT_GROUPS_PREFIX + r.ID,
		COMPLEMENTS_CACHE_PREFIX + r.ID,
	}
	if r.Slug != nil && *r.Slug != "" {
		prefixes = append(prefixes, RESTAURANT_SLUG_PREFIX+*r.Slug)
	}
	if r.OrganizationID != nil && *r.OrganizationID != "" {
		prefixes = append(prefixes, ORGANIZATION_CACHE_PREFIX+*r.OrganizationID)
	}
	return prefixes
}

// Chunk splits ids into slices of at most size elements, dropping duplicates
// and empty ids while keeping first-seen order.
func Chunk(ids []string, size int) [][]string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	seen := make(map[string]struct{}, len(ids))
	uniq := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		uniq = append(uniq, id)
	}

	var chunks [][]string
	for start := 0; start < len(uniq); start += size {
		end := start + size
		if end > len(uniq) {
			end = len(uniq)
		}
		chunks = append(chunks, uniq[start:end])
	}
	return chunks
}

func first[T any](rows []T, err error) (*T, error) {
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return &rows[0], nil
}

func fetch[T validator](ctx context.Context, f *Fetcher, key string, q query.Query) ([]T, error) {
	raw, err := f.load(ctx, key, q)
	if err != nil {
		return nil, err
	}
	return decode[T](f, q.Table, raw), nil
}

func fetchChunked[T validator](ctx context.Context, f *Fetcher, scope string, ids []string, build func([]string) query.Query) ([]T, error) {
	chunks := Chunk(ids, f.chunkSize)
	if len(chunks) == 0 {
		return []T{}, nil
	}

	results := make([][]json.RawMessage, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	for i, chunk := range chunks {
		g.Go(func() error {
			raw, err := f.load(gctx, chunkKey(scope, chunk), build(chunk))
			if err != nil {
				return err
			}
			results[i] = raw
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	table := build(nil).Table
	var merged []json.RawMessage
	for _, part := range results {
		merged = append(merged, part...)
	}
	return decode[T](f, table, merged), nil
}

// chunkKey is deterministic for a set of ids regardless of their order.
func chunkKey(scope string, ids []string) string {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	return scope + ":" + strings.Join(sorted, ",")
}

func (f *Fetcher) load(ctx context.Context, key string, q query.Query) ([]json.RawMessage, error) {
	if b, src := f.cache.Get(ctx, key); src != cache.Miss {
		var raw []json.RawMessage
		if err := json.Unmarshal(b, &raw); err == nil {
			metrics.FetchCounter.WithLabelValues(q.Table, "cached").Inc()
			return raw, nil
		}
		f.cache.Delete(ctx, key)
	}

	raw, err := f.querier.Select(ctx, q)
	if err != nil {
		metrics.FetchCounter.WithLabelValues(q.Table, "error").Inc()
		return nil, fmt.Errorf("failed to fetch %s: %w", q.Table, err)
	}
	metrics.FetchCounter.WithLabelValues(q.Table, "ok").Inc()

	if b, err := json.Marshal(raw); err == nil {
		f.cache.Set(ctx, key, b, 0)
	}
	return raw, nil
}

// decode converts raw rows into T, skipping rows that do not parse or fail
// validation.
func decode[T validator](f *Fetcher, table string, raw []json.RawMessage) []T {
	out := make([]T, 0, len(raw))
	skipped := 0
	for _, r := range raw {
		var row T
		if err := json.Unmarshal(r, &row); err != nil {
			skipped++
			continue
		}
		if err := row.Validate(); err != nil {
			skipped++
			continue
		}
		out = append(out, row)
	}
	if skipped > 0 {
		metrics.SkippedRowsCounter.WithLabelValues(table).Add(float64(skipped))
		f.log.Warn("skipped malformed rows", zap.String("table", table), zap.Int("skipped", skipped))
	}
	return out
}
