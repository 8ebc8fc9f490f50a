// Package service exposes the restaurant read operations used by the
// gateway: list, lookup by slug or id, and the id listing for route
// enumeration, plus cart quotes and cache invalidation.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Yo-Self/yo-self.github.io-sub001/internal/database/models"
	"github.com/Yo-Self/yo-self.github.io-sub001/internal/menu/cache"
	"github.com/Yo-Self/yo-self.github.io-sub001/internal/menu/cart"
	"github.com/Yo-Self/yo-self.github.io-sub001/internal/menu/compose"
	"github.com/Yo-Self/yo-self.github.io-sub001/internal/menu/fetcher"
	"github.com/Yo-Self/yo-self.github.io-sub001/internal/metrics"
)

const maxParallelCompositions = 4

var ErrRestaurantNotFound = errors.New("restaurant not found")

// Lookup is one way of finding a restaurant from a caller-supplied key. It
// returns nil when the key does not match.
type Lookup struct {
	Name string
	Find func(ctx context.Context, key string) (*models.Restaurant, error)
}

type Service struct {
	fetcher  *fetcher.Fetcher
	composer *compose.Composer
	lookups  []Lookup
	log      *zap.Logger
}

func New(f *fetcher.Fetcher, c *compose.Composer, log *zap.Logger) *Service {
	if c == nil {
		c = compose.NewComposer()
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{fetcher: f, composer: c, log: log}
	s.lookups = []Lookup{
		{Name: "slug", Find: f.RestaurantBySlug},
		{Name: "id", Find: s.restaurantByID},
	}
	return s
}

// WithLookups replaces the slug-then-id precedence used by the *BySlug operations.
func (s *Service) WithLookups(lookups ...Lookup) *Service {
	s.lookups = lookups
	return s
}

// FetchFullRestaurants composes every restaurant. Any failure fails the whole call.
func (s *Service) FetchFullRestaurants(ctx context.Context) ([]compose.Restaurant, error) {
	restaurants, err := s.fetcher.Restaurants(ctx)
	if err != nil {
		return nil, err
	}
	return s.composeAll(ctx, restaurants)
}

// FetchOrganizationRestaurants composes every restaurant of one organization.
func (s *Service) FetchOrganizationRestaurants(ctx context.Context, organizationID string) ([]compose.Restaurant, error) {
	restaurants, err := s.fetcher.RestaurantsByOrganization(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	return s.composeAll(ctx, restaurants)
}

// FetchRestaurantBySlugWithData resolves key by slug, then by id. It returns
// nil without error when nothing matches.
func (s *Service) FetchRestaurantBySlugWithData(ctx context.Context, key string) (*compose.Restaurant, error) {
	r, err := s.resolve(ctx, key)
	if err != nil || r == nil {
		return nil, err
	}
	return s.compose(ctx, *r)
}

// FetchRestaurantByIDWithData returns nil without error for an unknown or malformed id.
func (s *Service) FetchRestaurantByIDWithData(ctx context.Context, id string) (*compose.Restaurant, error) {
	r, err := s.restaurantByID(ctx, strings.TrimSpace(id))
	if err != nil || r == nil {
		return nil, err
	}
	return s.compose(ctx, *r)
}

// FetchRestaurantIDs lists each restaurant by slug, or by id when it has none.
func (s *Service) FetchRestaurantIDs(ctx context.Context) ([]string, error) {
	refs, err := s.fetcher.RestaurantRefs(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		if ref.Slug != nil && strings.TrimSpace(*ref.Slug) != "" {
			ids = append(ids, *ref.Slug)
			continue
		}
		ids = append(ids, ref.ID)
	}
	return ids, nil
}

// QuoteCart prices lines against the current menu of the restaurant found by key.
func (s *Service) QuoteCart(ctx context.Context, key string, lines []cart.Line) (*cart.Quote, error) {
	r, err := s.FetchRestaurantBySlugWithData(ctx, key)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, ErrRestaurantNotFound
	}
	q, err := cart.Build(r, lines)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// Invalidate drops every cached row of the restaurant found by key. Durable
// tier failures are reported in the result, not as an error.
func (s *Service) Invalidate(ctx context.Context, key string) (cache.Result, error) {
	r, err := s.resolve(ctx, key)
	if err != nil {
		return cache.Result{}, err
	}
	if r == nil {
		return cache.Result{}, ErrRestaurantNotFound
	}
	res := s.fetcher.Cache().Invalidate(ctx, fetcher.RestaurantPrefixes(*r)...)
	s.log.Info("restaurant cache invalidated",
		zap.String("restaurant_id", r.ID),
		zap.Bool("degraded", res.Degraded()))
	return res, nil
}

// restaurantByID treats a non-uuid id as unknown. Restaurant ids are uuid
// columns and the remote sources answer other values with a type error.
func (s *Service) restaurantByID(ctx context.Context, id string) (*models.Restaurant, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, nil
	}
	return s.fetcher.RestaurantByID(ctx, parsed.String())
}

func (s *Service) resolve(ctx context.Context, key string) (*models.Restaurant, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	for _, l := range s.lookups {
		r, err := l.Find(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("restaurant lookup by %s: %w", l.Name, err)
		}
		if r != nil {
			return r, nil
		}
	}
	return nil, nil
}

func (s *Service) composeAll(ctx context.Context, restaurants []models.Restaurant) ([]compose.Restaurant, error) {
	out := make([]compose.Restaurant, len(restaurants))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelCompositions)
	for i, r := range restaurants {
		g.Go(func() error {
			composed, err := s.compose(gctx, r)
			if err != nil {
				return err
			}
			out[i] = *composed
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// compose loads every row of r and builds its menu. Reads without data
// dependencies run concurrently; junction and complement reads wait for the
// dish and group ids.
func (s *Service) compose(ctx context.Context, r models.Restaurant) (*compose.Restaurant, error) {
	start := time.Now()
	in := compose.Input{Restaurant: r}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		in.Categories, err = s.fetcher.Categories(gctx, r.ID)
		return err
	})
	g.Go(func() (err error) {
		in.Dishes, err = s.fetcher.Dishes(gctx, r.ID)
		return err
	})
	g.Go(func() (err error) {
		in.Groups, err = s.fetcher.ComplementGroups(gctx, r.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, s.failed(r, start, err)
	}

	dishIDs := make([]string, len(in.Dishes))
	for i, d := range in.Dishes {
		dishIDs[i] = d.ID
	}
	groupIDs := make([]string, len(in.Groups))
	for i, grp := range in.Groups {
		groupIDs[i] = grp.ID
	}

	g, gctx = errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		in.DishCategories, err = s.fetcher.DishCategories(gctx, r.ID, dishIDs)
		return err
	})
	g.Go(func() (err error) {
		in.DishGroups, err = s.fetcher.DishComplementGroups(gctx, r.ID, dishIDs)
		return err
	})
	g.Go(func() (err error) {
		in.Complements, err = s.fetcher.Complements(gctx, r.ID, groupIDs)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, s.failed(r, start, err)
	}

	out := s.composer.Compose(in)
	if len(out.Gaps) > 0 {
		s.log.Warn("menu has dangling references",
			zap.String("restaurant_id", r.ID),
			zap.Int("gaps", len(out.Gaps)),
			zap.Any("sample", out.Gaps[0]))
	}

	elapsed := time.Since(start)
	metrics.CompositionDuration.WithLabelValues("ok").Observe(elapsed.Seconds())
	s.log.Debug("restaurant composed",
		zap.String("restaurant_id", r.ID),
		zap.Int("menu_items", len(out.Restaurant.MenuItems)),
		zap.Duration("duration", elapsed))

	return &out.Restaurant, nil
}

func (s *Service) failed(r models.Restaurant, start time.Time, err error) error {
	metrics.CompositionDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
	s.log.Error("restaurant composition failed", zap.String("restaurant_id", r.ID), zap.Error(err))
	return fmt.Errorf("compose restaurant %s: %w", r.ID, err)
}
