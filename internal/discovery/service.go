// Package discovery serves the shopper-facing product, stand and farm
// listings.  Reads go through the cache; on a miss the spatial store is
// queried with a bounded retry and the serialized result is cached in the
// background.  Store failures degrade to empty lists, never to errors.
package discovery

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/localmarket/internal/cache"
	"github.com/iliyamo/localmarket/internal/model"
	"github.com/iliyamo/localmarket/internal/repository"
)

var tracer = otel.Tracer("github.com/iliyamo/localmarket/internal/discovery")

// SpatialStore runs the radius searches.  *repository.SpatialRepo is the
// production implementation.
type SpatialStore interface {
	NearbyProducts(ctx context.Context, q repository.SpatialQuery) ([]model.SpatialProduct, error)
	NearbyStands(ctx context.Context, q repository.SpatialQuery) ([]model.SpatialPlace, error)
	NearbyFarms(ctx context.Context, q repository.SpatialQuery) ([]model.SpatialPlace, error)
}

// ZoneStore loads single delivery zones.
type ZoneStore interface {
	ZoneByID(ctx context.Context, id string) (*model.DeliveryZone, error)
}

// Options bound queries and set cache lifetimes.
type Options struct {
	HomeTTL         time.Duration
	PlacesTTL       time.Duration
	ZoneTTL         time.Duration
	Attempts        int
	Backoff         time.Duration
	DefaultRadiusKm float64
	MaxRadiusKm     float64
	DefaultLimit    int
	MaxLimit        int
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{
		HomeTTL:         5 * time.Minute,
		PlacesTTL:       5 * time.Minute,
		ZoneTTL:         15 * time.Minute,
		Attempts:        3,
		Backoff:         100 * time.Millisecond,
		DefaultRadiusKm: 160.934,
		MaxRadiusKm:     500,
		DefaultLimit:    50,
		MaxLimit:        200,
	}
}

type Service struct {
	store SpatialStore
	zones ZoneStore
	cache *cache.Client
	opts  Options
}

func NewService(store SpatialStore, zones ZoneStore, c *cache.Client, opts Options) *Service {
	return &Service{store: store, zones: zones, cache: c, opts: opts}
}

// HomeQuery is a home page product search.  Coordinates are optional;
// without them the ZIP code, and failing that recency, decides.
type HomeQuery struct {
	Lat      *float64
	Lng      *float64
	ZipCode  string
	RadiusKm float64
	Limit    int
}

// PlaceQuery is a stand or farm search.
type PlaceQuery struct {
	Lat      *float64
	Lng      *float64
	RadiusKm float64
	Limit    int
}

func (s *Service) bounds(radiusKm float64, limit int) (float64, int) {
	if radiusKm <= 0 {
		radiusKm = s.opts.DefaultRadiusKm
	}
	if s.opts.MaxRadiusKm > 0 && radiusKm > s.opts.MaxRadiusKm {
		radiusKm = s.opts.MaxRadiusKm
	}
	if limit <= 0 {
		limit = s.opts.DefaultLimit
	}
	if s.opts.MaxLimit > 0 && limit > s.opts.MaxLimit {
		limit = s.opts.MaxLimit
	}
	return radiusKm, limit
}

// HomeProducts returns serialized products for the query.  The result is
// never nil; on store failure it is empty and the failure is logged.
func (s *Service) HomeProducts(ctx context.Context, q HomeQuery) []ProductDTO {
	ctx, span := tracer.Start(ctx, "discovery.HomeProducts")
	defer span.End()

	q.RadiusKm, q.Limit = s.bounds(q.RadiusKm, q.Limit)
	q.ZipCode = model.NormalizeZip(q.ZipCode)
	if q.Lat == nil || q.Lng == nil {
		q.Lat, q.Lng = nil, nil
	}
	key := cache.HomeProductsKey(q.Lat, q.Lng, q.ZipCode, q.RadiusKm, q.Limit)
	span.SetAttributes(attribute.String("cache.key", key))

	out, err := cache.CacheAside(ctx, s.cache, key, s.opts.HomeTTL, func(ctx context.Context) ([]ProductDTO, error) {
		rows, err := withRetry(ctx, s.opts.Attempts, s.opts.Backoff, "products",
			func(ctx context.Context) ([]model.SpatialProduct, error) {
				return s.store.NearbyProducts(ctx, repository.SpatialQuery{
					Lat: q.Lat, Lng: q.Lng, ZipCode: q.ZipCode, RadiusKm: q.RadiusKm, Limit: q.Limit,
				})
			})
		if err != nil {
			return nil, err
		}
		return SerializeProducts(rows), nil
	})
	if err != nil || out == nil {
		if err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Str("key", key).Msg("home products unavailable")
		}
		return []ProductDTO{}
	}
	return out
}

// NearbyStands returns serialized market stands; never nil.
func (s *Service) NearbyStands(ctx context.Context, q PlaceQuery) []PlaceDTO {
	return s.nearbyPlaces(ctx, model.PlaceStand, q)
}

// NearbyFarms returns serialized farms; never nil.
func (s *Service) NearbyFarms(ctx context.Context, q PlaceQuery) []PlaceDTO {
	return s.nearbyPlaces(ctx, model.PlaceFarm, q)
}

func (s *Service) nearbyPlaces(ctx context.Context, kind model.PlaceKind, q PlaceQuery) []PlaceDTO {
	q.RadiusKm, q.Limit = s.bounds(q.RadiusKm, q.Limit)
	if q.Lat == nil || q.Lng == nil {
		q.Lat, q.Lng = nil, nil
	}
	load := s.store.NearbyStands
	if kind == model.PlaceFarm {
		load = s.store.NearbyFarms
	}
	key := cache.NearbyPlacesKey(kind, q.Lat, q.Lng, q.RadiusKm, q.Limit)

	out, err := cache.CacheAside(ctx, s.cache, key, s.opts.PlacesTTL, func(ctx context.Context) ([]PlaceDTO, error) {
		rows, err := withRetry(ctx, s.opts.Attempts, s.opts.Backoff, string(kind),
			func(ctx context.Context) ([]model.SpatialPlace, error) {
				return load(ctx, repository.SpatialQuery{Lat: q.Lat, Lng: q.Lng, RadiusKm: q.RadiusKm, Limit: q.Limit})
			})
		if err != nil {
			return nil, err
		}
		return SerializePlaces(rows), nil
	})
	if err != nil || out == nil {
		if err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Str("key", key).Msg("nearby places unavailable")
		}
		return []PlaceDTO{}
	}
	return out
}

// DiscoverQuery combines a search with the filters to compose it with.
type DiscoverQuery struct {
	HomeQuery
	Filter FilterState
}

// Discover loads the families the view needs concurrently and composes
// them.
func (s *Service) Discover(ctx context.Context, q DiscoverQuery) []ResultItem {
	ctx, span := tracer.Start(ctx, "discovery.Discover")
	defer span.End()

	var (
		products      = []ProductDTO{}
		stands, farms = []PlaceDTO{}, []PlaceDTO{}
		view          = q.Filter.View
		place         = PlaceQuery{Lat: q.Lat, Lng: q.Lng, RadiusKm: q.RadiusKm, Limit: q.Limit}
	)
	if view == "" {
		view = ViewAll
	}

	g, gctx := errgroup.WithContext(ctx)
	if view == ViewAll || view == ViewProducts {
		g.Go(func() error { products = s.HomeProducts(gctx, q.HomeQuery); return nil })
	}
	if view == ViewAll || view == ViewStands {
		g.Go(func() error { stands = s.NearbyStands(gctx, place); return nil })
	}
	if view == ViewAll || view == ViewFarms {
		g.Go(func() error { farms = s.NearbyFarms(gctx, place); return nil })
	}
	_ = g.Wait()

	return Compose(products, stands, farms, q.Filter)
}

// ZoneInfo returns a delivery zone, cached.  repository.ErrZoneNotFound is
// passed through and never cached.
func (s *Service) ZoneInfo(ctx context.Context, id string) (ZoneDTO, error) {
	return cache.CacheAside(ctx, s.cache, cache.ZoneKey(id), s.opts.ZoneTTL, func(ctx context.Context) (ZoneDTO, error) {
		z, err := s.zones.ZoneByID(ctx, id)
		if err != nil {
			return ZoneDTO{}, err
		}
		return SerializeZone(z), nil
	})
}
