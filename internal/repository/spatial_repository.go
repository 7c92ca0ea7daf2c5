package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/iliyamo/localmarket/internal/geo"
	"github.com/iliyamo/localmarket/internal/metrics"
	"github.com/iliyamo/localmarket/internal/model"
)

var tracer = otel.Tracer("github.com/iliyamo/localmarket/internal/repository")

// SpatialQuery selects products, stands or farms around a point and/or for
// a delivery ZIP code.  Lat and Lng are used only when both are set.
type SpatialQuery struct {
	Lat      *float64
	Lng      *float64
	ZipCode  string
	RadiusKm float64
	Limit    int
}

func (q SpatialQuery) center() (geo.Point, bool) {
	if q.Lat == nil || q.Lng == nil {
		return geo.Point{}, false
	}
	return geo.Point{Lat: *q.Lat, Lng: *q.Lng}, true
}

// SpatialRepo runs the radius and delivery-coverage searches against the
// MySQL catalog.  market_stands.location and farms.location are POINT SRID
// 4326 columns with a SPATIAL INDEX; the bounding box predicate is what lets
// MySQL use it, the sphere distance then trims the box to the circle.
type SpatialRepo struct {
	db *sql.DB
}

func NewSpatialRepo(db *sql.DB) *SpatialRepo { return &SpatialRepo{db: db} }

// geometry literal in the axis order geo emits WKT in
const geomArg = "ST_GeomFromText(?, 4326, 'axis-order=long-lat')"

// sphereDistanceKm uses the same earth radius as geo.Haversine so database
// and in-process distances agree.
func sphereDistanceKm(col string) string {
	return "ST_Distance_Sphere(" + col + ", " + geomArg + ", 6371000) / 1000"
}

const productColumns = `p.id, p.name, p.price, p.images, p.inventory, p.tags, p.delivery_available,
		p.available_from, p.available_until, p.created_at, p.delivery_zone_id,
		s.id, s.name, s.latitude, s.longitude, s.location_name`

// buildNearbyProducts assembles the product search.  Three shapes:
//
//	coords (+zip)  stands inside the radius, OR zone covering the zip
//	zip only       zone covering the zip
//	neither        newest active products
func buildNearbyProducts(q SpatialQuery) (string, []any) {
	center, hasCoords := q.center()
	zip := model.NormalizeZip(q.ZipCode)

	var selectArgs, joinArgs, whereArgs []any
	distance := "NULL"
	zoneCols := "NULL, NULL"
	zoneJoin := ""
	where := []string{"p.is_active = 1"}
	orderBy := "p.created_at DESC, p.id ASC"

	if hasCoords {
		distance = sphereDistanceKm("s.location")
		selectArgs = append(selectArgs, geo.PointWKT(center))
		orderBy = "distance_km IS NULL, distance_km ASC, p.id ASC"
	}
	if zip != "" {
		zoneCols = "z.id, z.delivery_fee"
		zoneJoin = `
		LEFT JOIN delivery_zones z
		       ON z.id = p.delivery_zone_id
		      AND z.is_active = 1
		      AND p.delivery_available = 1
		      AND JSON_CONTAINS(z.zip_codes, JSON_QUOTE(?))`
		joinArgs = append(joinArgs, zip)
	}

	switch {
	case hasCoords:
		inRadius := "(s.id IS NOT NULL" +
			" AND MBRContains(" + geomArg + ", s.location)" +
			" AND ST_Distance_Sphere(s.location, " + geomArg + ", 6371000) <= ?)"
		whereArgs = append(whereArgs,
			geo.BoundingBox(center, q.RadiusKm).WKT(),
			geo.PointWKT(center),
			q.RadiusKm*1000,
		)
		if zip != "" {
			inRadius = "(" + inRadius + " OR z.id IS NOT NULL)"
		}
		where = append(where, inRadius)
	case zip != "":
		where = append(where, "z.id IS NOT NULL")
	}

	query := `SELECT ` + productColumns + `,
		` + distance + ` AS distance_km,
		` + zoneCols + `
		FROM products p
		LEFT JOIN market_stands s ON s.id = p.market_stand_id AND s.is_active = 1` + zoneJoin + `
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY ` + orderBy + `
		LIMIT ?`

	args := make([]any, 0, len(selectArgs)+len(joinArgs)+len(whereArgs)+1)
	args = append(args, selectArgs...)
	args = append(args, joinArgs...)
	args = append(args, whereArgs...)
	args = append(args, q.Limit)
	return query, args
}

// NearbyProducts returns products near the query point and/or deliverable
// to the query ZIP, nearest first with distance-less rows last.  Without
// coordinates and ZIP it falls back to the newest products.
func (r *SpatialRepo) NearbyProducts(ctx context.Context, q SpatialQuery) ([]model.SpatialProduct, error) {
	ctx, span := tracer.Start(ctx, "SpatialRepo.NearbyProducts")
	defer span.End()
	_, hasCoords := q.center()
	span.SetAttributes(
		attribute.Bool("geo.has_coords", hasCoords),
		attribute.Bool("geo.has_zip", q.ZipCode != ""),
		attribute.Float64("geo.radius_km", q.RadiusKm),
		attribute.Int("limit", q.Limit),
	)
	timer := prometheus.NewTimer(metrics.SpatialQueryDuration.WithLabelValues("products"))
	defer timer.ObserveDuration()

	query, args := buildNearbyProducts(q)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, errors.Wrap(err, "query nearby products")
	}
	defer rows.Close()

	out := make([]model.SpatialProduct, 0, q.Limit)
	for rows.Next() {
		p, err := scanSpatialProduct(rows)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, errors.Wrap(err, "scan nearby product")
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, errors.Wrap(err, "iterate nearby products")
	}
	return out, nil
}

func scanSpatialProduct(rows *sql.Rows) (model.SpatialProduct, error) {
	var (
		p                  model.SpatialProduct
		images, tags       StringList
		from, until        sql.NullTime
		zoneID             sql.NullString
		standID, standName sql.NullString
		standLat, standLng sql.NullFloat64
		standLocation      sql.NullString
		distance           sql.NullFloat64
		matchedZone        sql.NullString
		matchedFee         sql.NullInt64
	)
	if err := rows.Scan(
		&p.ID,
		&p.Name,
		&p.Price,
		&images,
		&p.Inventory,
		&tags,
		&p.DeliveryAvailable,
		&from,
		&until,
		&p.CreatedAt,
		&zoneID,
		&standID,
		&standName,
		&standLat,
		&standLng,
		&standLocation,
		&distance,
		&matchedZone,
		&matchedFee,
	); err != nil {
		return p, err
	}
	p.Images = images
	p.Tags = tags
	if p.Inventory < 0 {
		p.Inventory = 0
	}
	if from.Valid {
		p.AvailableFrom = &from.Time
	}
	if until.Valid {
		p.AvailableUntil = &until.Time
	}
	if zoneID.Valid {
		p.DeliveryZoneID = &zoneID.String
	}
	if standID.Valid {
		p.MarketStand = &model.StandRef{
			ID:           standID.String,
			Name:         standName.String,
			Latitude:     standLat.Float64,
			Longitude:    standLng.Float64,
			LocationName: standLocation.String,
		}
	}
	if distance.Valid {
		p.DistanceKm = &distance.Float64
	}
	if matchedZone.Valid {
		p.Delivery = &model.DeliveryMatch{ZoneID: matchedZone.String, DeliveryFee: matchedFee.Int64}
	}
	return p, nil
}

// NearbyStands returns active market stands within the radius, nearest
// first, or the newest stands when the query has no coordinates.
func (r *SpatialRepo) NearbyStands(ctx context.Context, q SpatialQuery) ([]model.SpatialPlace, error) {
	return r.nearbyPlaces(ctx, model.PlaceStand, q)
}

// NearbyFarms is NearbyStands over the farms table.
func (r *SpatialRepo) NearbyFarms(ctx context.Context, q SpatialQuery) ([]model.SpatialPlace, error) {
	return r.nearbyPlaces(ctx, model.PlaceFarm, q)
}

func placeTable(kind model.PlaceKind) string {
	if kind == model.PlaceFarm {
		return "farms"
	}
	return "market_stands"
}

func buildNearbyPlaces(kind model.PlaceKind, q SpatialQuery) (string, []any) {
	var args []any
	distance := "NULL"
	cond := "t.is_active = 1"
	orderBy := "t.created_at DESC, t.id ASC"
	if center, ok := q.center(); ok {
		distance = sphereDistanceKm("t.location")
		cond += " AND MBRContains(" + geomArg + ", t.location)" +
			" AND ST_Distance_Sphere(t.location, " + geomArg + ", 6371000) <= ?"
		orderBy = "distance_km ASC, t.id ASC"
		args = append(args,
			geo.PointWKT(center),
			geo.BoundingBox(center, q.RadiusKm).WKT(),
			geo.PointWKT(center),
			q.RadiusKm*1000,
		)
	}
	query := `SELECT t.id, t.name, COALESCE(t.description, ''), COALESCE(t.location_name, ''),
		t.latitude, t.longitude, t.images, t.tags,
		` + distance + ` AS distance_km
		FROM ` + placeTable(kind) + ` t
		WHERE ` + cond + `
		ORDER BY ` + orderBy + `
		LIMIT ?`
	return query, append(args, q.Limit)
}

func (r *SpatialRepo) nearbyPlaces(ctx context.Context, kind model.PlaceKind, q SpatialQuery) ([]model.SpatialPlace, error) {
	ctx, span := tracer.Start(ctx, "SpatialRepo.NearbyPlaces")
	defer span.End()
	span.SetAttributes(attribute.String("place.kind", string(kind)), attribute.Int("limit", q.Limit))
	timer := prometheus.NewTimer(metrics.SpatialQueryDuration.WithLabelValues(string(kind)))
	defer timer.ObserveDuration()

	query, args := buildNearbyPlaces(kind, q)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, errors.Wrapf(err, "query nearby %s", placeTable(kind))
	}
	defer rows.Close()

	out := make([]model.SpatialPlace, 0, q.Limit)
	for rows.Next() {
		pl := model.SpatialPlace{Kind: kind}
		var (
			images, tags StringList
			distance     sql.NullFloat64
		)
		if err := rows.Scan(
			&pl.ID,
			&pl.Name,
			&pl.Description,
			&pl.LocationName,
			&pl.Latitude,
			&pl.Longitude,
			&images,
			&tags,
			&distance,
		); err != nil {
			return nil, errors.Wrapf(err, "scan nearby %s", placeTable(kind))
		}
		pl.Images = images
		pl.Tags = tags
		if distance.Valid {
			pl.DistanceKm = &distance.Float64
		}
		out = append(out, pl)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "iterate nearby %s", placeTable(kind))
	}
	return out, nil
}
