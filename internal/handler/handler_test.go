package handler

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/localmarket/internal/cache"
	"github.com/iliyamo/localmarket/internal/delivery"
	"github.com/iliyamo/localmarket/internal/discovery"
	"github.com/iliyamo/localmarket/internal/model"
	"github.com/iliyamo/localmarket/internal/repository"
)

type MockDiscovery struct {
	mock.Mock
}

func (m *MockDiscovery) HomeProducts(ctx context.Context, q discovery.HomeQuery) []discovery.ProductDTO {
	return m.Called(ctx, q).Get(0).([]discovery.ProductDTO)
}

func (m *MockDiscovery) Discover(ctx context.Context, q discovery.DiscoverQuery) []discovery.ResultItem {
	return m.Called(ctx, q).Get(0).([]discovery.ResultItem)
}

func (m *MockDiscovery) ZoneInfo(ctx context.Context, id string) (discovery.ZoneDTO, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(discovery.ZoneDTO), args.Error(1)
}

type MockChecker struct {
	mock.Mock
}

func (m *MockChecker) Check(ctx context.Context, req delivery.Request) (delivery.Result, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(delivery.Result), args.Error(1)
}

type MockInvalidator struct {
	mock.Mock
}

func (m *MockInvalidator) Apply(ctx context.Context, ch model.EntityChange) (int, error) {
	args := m.Called(ctx, ch)
	return args.Int(0), args.Error(1)
}

func PtrTo[T any](v T) *T {
	return &v
}

func serve(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func newEcho(d *MockDiscovery, chk *MockChecker, inv *MockInvalidator) *echo.Echo {
	e := echo.New()
	dh, del, adm := NewDiscoveryHandler(d), NewDeliveryHandler(chk), NewAdminCacheHandler(inv)
	e.GET("/v1/products/home", dh.HomeProducts)
	e.GET("/v1/discover", dh.Discover)
	e.GET("/v1/delivery-zones/:id", dh.ZoneInfo)
	e.POST("/v1/products/:id/delivery-eligibility", del.CheckEligibility)
	e.POST("/v1/admin/cache/invalidate", adm.Invalidate)
	return e
}

func decodeFields(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "validation_error", body.Error)
	return body.Fields
}

func TestHomeProducts_ParsesQuery(t *testing.T) {
	d := new(MockDiscovery)
	e := newEcho(d, nil, nil)
	d.On("HomeProducts", mock.Anything, mock.MatchedBy(func(q discovery.HomeQuery) bool {
		return q.Lat != nil && *q.Lat == 37.77 && q.Lng != nil && *q.Lng == -122.41 &&
			q.ZipCode == "94110" && math.Abs(q.RadiusKm-16.0934) < 1e-9 && q.Limit == 20
	})).Return([]discovery.ProductDTO{{ID: "p1", Images: []string{}, Tags: []string{}}}).Once()

	rec := serve(e, http.MethodGet, "/v1/products/home?lat=37.77&lng=-122.41&source=zipcode&zip=94110-1234&radius_miles=10&limit=20", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data  []discovery.ProductDTO `json:"data"`
		Total int                    `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Total)
	assert.Equal(t, "p1", body.Data[0].ID)
	d.AssertExpectations(t)
}

func TestHomeProducts_NoParametersIsAllowed(t *testing.T) {
	d := new(MockDiscovery)
	e := newEcho(d, nil, nil)
	d.On("HomeProducts", mock.Anything, discovery.HomeQuery{}).Return([]discovery.ProductDTO{}).Once()

	rec := serve(e, http.MethodGet, "/v1/products/home", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":[],"total":0}`, rec.Body.String())
}

func TestHomeProducts_ValidationErrors(t *testing.T) {
	tests := []struct {
		query string
		want  map[string]string
	}{
		{"lat=91&lng=0", map[string]string{"lat": "latitude"}},
		{"lat=10&lng=-181", map[string]string{"lng": "longitude"}},
		{"lat=10", map[string]string{"lng": "required_with"}},
		{"lat=1&lng=2&source=gps", map[string]string{"source": "oneof"}},
		{"lat=abc&lng=2", map[string]string{"lat": "number"}},
		{"zip=9411", map[string]string{"zip": "zipcode"}},
		{"radius_km=-1&limit=x", map[string]string{"radius_km": "min", "limit": "number"}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			d := new(MockDiscovery)
			rec := serve(newEcho(d, nil, nil), http.MethodGet, "/v1/products/home?"+tt.query, "")

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.want, decodeFields(t, rec))
			d.AssertNotCalled(t, "HomeProducts", mock.Anything, mock.Anything)
		})
	}
}

func TestDiscover_ParsesFilters(t *testing.T) {
	d := new(MockDiscovery)
	e := newEcho(d, nil, nil)
	d.On("Discover", mock.Anything, discovery.DiscoverQuery{
		HomeQuery: discovery.HomeQuery{Lat: PtrTo(40.7), Lng: PtrTo(-74.0)},
		Filter: discovery.FilterState{
			View:             discovery.ViewProducts,
			Categories:       []string{"vegetables", "fruit", "honey"},
			MaxDistanceMiles: PtrTo(25.0),
			MinPrice:         PtrTo(1.5),
			MaxPrice:         PtrTo(20.0),
			Fulfillment:      []string{"pickup", "delivery"},
		},
	}).Return([]discovery.ResultItem{}).Once()

	rec := serve(e, http.MethodGet, "/v1/discover?lat=40.7&lng=-74.0&view=Products"+
		"&categories=vegetables,fruit&categories=honey&max_distance_miles=25&min_price=1.5&max_price=20"+
		"&fulfillment=pickup,DELIVERY", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":[],"total":0,"view":"products"}`, rec.Body.String())
	d.AssertExpectations(t)
}

func TestDiscover_RejectsBadFilters(t *testing.T) {
	d := new(MockDiscovery)
	rec := serve(newEcho(d, nil, nil), http.MethodGet, "/v1/discover?view=map&fulfillment=drone&min_price=5&max_price=2", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, map[string]string{
		"view":        "oneof",
		"fulfillment": "oneof",
		"min_price":   "ltefield",
	}, decodeFields(t, rec))
}

func TestZoneInfo(t *testing.T) {
	d := new(MockDiscovery)
	e := newEcho(d, nil, nil)
	d.On("ZoneInfo", mock.Anything, "z1").Return(discovery.ZoneDTO{ID: "z1", Name: "Mission"}, nil)
	d.On("ZoneInfo", mock.Anything, "missing").Return(discovery.ZoneDTO{}, repository.ErrZoneNotFound)
	d.On("ZoneInfo", mock.Anything, "broken").Return(discovery.ZoneDTO{}, errors.New("db down"))

	rec := serve(e, http.MethodGet, "/v1/delivery-zones/z1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"Mission"`)

	assert.Equal(t, http.StatusNotFound, serve(e, http.MethodGet, "/v1/delivery-zones/missing", "").Code)
	assert.Equal(t, http.StatusInternalServerError, serve(e, http.MethodGet, "/v1/delivery-zones/broken", "").Code)
}

func TestCheckEligibility(t *testing.T) {
	chk := new(MockChecker)
	e := newEcho(nil, chk, nil)
	chk.On("Check", mock.Anything, delivery.Request{
		ProductID: "p1", UserZipCode: "94110", OrderSubtotal: PtrTo(int64(5000)),
	}).Return(delivery.Result{Status: delivery.StatusEligible, IsEligible: true}, nil).Once()

	rec := serve(e, http.MethodPost, "/v1/products/p1/delivery-eligibility", `{"userZipCode":"94110","orderSubtotal":5000}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ELIGIBLE"`)
	chk.AssertExpectations(t)
}

func TestCheckEligibility_NotEligibleIsStillOK(t *testing.T) {
	chk := new(MockChecker)
	e := newEcho(nil, chk, nil)
	chk.On("Check", mock.Anything, mock.Anything).
		Return(delivery.Result{Status: delivery.StatusNotFound, Reason: "Product not found"}, nil)

	rec := serve(e, http.MethodPost, "/v1/products/nope/delivery-eligibility", `{}`)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCheckEligibility_Errors(t *testing.T) {
	chk := new(MockChecker)
	e := newEcho(nil, chk, nil)
	chk.On("Check", mock.Anything, mock.MatchedBy(func(r delivery.Request) bool { return r.ProductID == "bad" })).
		Return(delivery.Result{}, &delivery.ValidationError{Fields: map[string]string{"userZipCode": "zipcode"}})
	chk.On("Check", mock.Anything, mock.MatchedBy(func(r delivery.Request) bool { return r.ProductID == "boom" })).
		Return(delivery.Result{}, errors.New("connection reset"))

	rec := serve(e, http.MethodPost, "/v1/products/bad/delivery-eligibility", `{"userZipCode":"12"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, map[string]string{"userZipCode": "zipcode"}, decodeFields(t, rec))

	rec = serve(e, http.MethodPost, "/v1/products/bad/delivery-eligibility", `{"userZipCode":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(e, http.MethodPost, "/v1/products/boom/delivery-eligibility", `{}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal_error"}`, rec.Body.String())
}

func TestInvalidate(t *testing.T) {
	inv := new(MockInvalidator)
	e := newEcho(nil, nil, inv)
	inv.On("Apply", mock.Anything, mock.MatchedBy(func(ch model.EntityChange) bool {
		return ch.Entity == "delivery_zone" && ch.ID == "z1" && ch.Action == "updated"
	})).Return(3, nil).Once()

	rec := serve(e, http.MethodPost, "/v1/admin/cache/invalidate", `{"entity":"Delivery_Zone","id":"z1"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"removed":3}`, rec.Body.String())
	inv.AssertExpectations(t)
}

func TestInvalidate_ValidationErrors(t *testing.T) {
	inv := new(MockInvalidator)
	e := newEcho(nil, nil, inv)

	rec := serve(e, http.MethodPost, "/v1/admin/cache/invalidate", `{"entity":"seat"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, map[string]string{"entity": "oneof"}, decodeFields(t, rec))

	rec = serve(e, http.MethodPost, "/v1/admin/cache/invalidate", `{"entity":"user"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, map[string]string{"id": "required_if"}, decodeFields(t, rec))

	inv.AssertNotCalled(t, "Apply", mock.Anything, mock.Anything)
}

func TestInvalidate_UnknownEntityFromInvalidator(t *testing.T) {
	inv := new(MockInvalidator)
	e := newEcho(nil, nil, inv)
	inv.On("Apply", mock.Anything, mock.Anything).Return(0, cache.ErrUnknownEntity)

	rec := serve(e, http.MethodPost, "/v1/admin/cache/invalidate", `{"entity":"product"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type fakePinger struct{ err error }

func (f fakePinger) PingContext(context.Context) error { return f.err }

func TestHealth(t *testing.T) {
	e := echo.New()
	up := &HealthHandler{DB: fakePinger{}, CacheEnabled: true}
	down := &HealthHandler{DB: fakePinger{err: errors.New("refused")}}
	e.GET("/up", up.Health)
	e.GET("/down", down.Health)

	rec := serve(e, http.MethodGet, "/up", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","db":"up","cache":"enabled"}`, rec.Body.String())

	rec = serve(e, http.MethodGet, "/down", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"unavailable","db":"down","cache":"disabled"}`, rec.Body.String())
}
