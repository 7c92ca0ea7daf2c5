package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/localmarket/internal/model"
)

func ids(items []ResultItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func composeFixture() ([]ProductDTO, []PlaceDTO, []PlaceDTO) {
	products := []ProductDTO{
		{ID: "tomatoes", Price: 450, Tags: []string{"Vegetables"}, Distance: PtrTo(3.0), MarketStand: &StandDTO{ID: "s1"}},
		{ID: "honey", Price: 1299, Tags: []string{"honey"}, DeliveryInfo: &DeliveryInfoDTO{IsAvailable: true, ZoneID: "z1"}},
		{ID: "eggs", Price: 600, Tags: []string{"eggs", "dairy"}, Distance: PtrTo(40.0), MarketStand: &StandDTO{ID: "s2"}},
	}
	stands := []PlaceDTO{
		{Type: model.PlaceStand, ID: "stand-a", Tags: []string{"organic vegetables"}, Distance: PtrTo(1.0)},
	}
	farms := []PlaceDTO{
		{Type: model.PlaceFarm, ID: "farm-a", Tags: []string{"dairy"}, Distance: PtrTo(12.0)},
		{Type: model.PlaceFarm, ID: "farm-b", Tags: []string{}},
	}
	return products, stands, farms
}

func TestCompose_ViewAllSortsByDistanceWithUnknownLast(t *testing.T) {
	p, s, f := composeFixture()

	got := Compose(p, s, f, FilterState{})

	assert.Equal(t, []string{"stand-a", "tomatoes", "farm-a", "eggs", "honey", "farm-b"}, ids(got))
	assert.Equal(t, ItemStand, got[0].Type)
	assert.NotNil(t, got[0].Place)
	assert.Nil(t, got[0].Product)
	assert.Equal(t, ItemProduct, got[1].Type)
	assert.NotNil(t, got[1].Product)
}

func TestCompose_Views(t *testing.T) {
	p, s, f := composeFixture()

	tests := []struct {
		view View
		want []string
	}{
		{ViewProducts, []string{"tomatoes", "eggs", "honey"}},
		{ViewStands, []string{"stand-a"}},
		{ViewFarms, []string{"farm-a", "farm-b"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.view), func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Compose(p, s, f, FilterState{View: tt.view})))
		})
	}
}

func TestCompose_CategoriesMatchLooselyInBothDirections(t *testing.T) {
	p, s, f := composeFixture()

	// "vegetable" is contained in "Vegetables" and "organic vegetables".
	// Untagged items never match a category.
	got := Compose(p, s, f, FilterState{Categories: []string{"vegetable"}})
	assert.Equal(t, []string{"stand-a", "tomatoes"}, ids(got))

	// A tag contained in the selected category also matches.
	got = Compose(p, s, f, FilterState{View: ViewProducts, Categories: []string{"farm fresh eggs"}})
	assert.Equal(t, []string{"eggs"}, ids(got))

	// Blank selections do not filter.
	got = Compose(p, s, f, FilterState{View: ViewStands, Categories: []string{"  "}})
	assert.Equal(t, []string{"stand-a"}, ids(got))
}

func TestCompose_MaxDistanceKeepsUnknownDistances(t *testing.T) {
	p, s, f := composeFixture()

	// 10 miles is about 16.09 km.
	got := Compose(p, s, f, FilterState{MaxDistanceMiles: PtrTo(10.0)})

	assert.Equal(t, []string{"stand-a", "tomatoes", "farm-a", "honey", "farm-b"}, ids(got))
}

func TestCompose_PriceBoundsApplyToProductsOnly(t *testing.T) {
	p, s, f := composeFixture()

	got := Compose(p, s, f, FilterState{MinPrice: PtrTo(4.50), MaxPrice: PtrTo(6.00)})

	assert.Equal(t, []string{"stand-a", "tomatoes", "farm-a", "eggs", "farm-b"}, ids(got))
}

func TestCompose_PriceBoundsCompareInCents(t *testing.T) {
	products := []ProductDTO{{ID: "a", Price: 1999}}

	assert.Len(t, Compose(products, nil, nil, FilterState{MaxPrice: PtrTo(19.99)}), 1)
	assert.Len(t, Compose(products, nil, nil, FilterState{MinPrice: PtrTo(19.99)}), 1)
	assert.Empty(t, Compose(products, nil, nil, FilterState{MaxPrice: PtrTo(19.98)}))
}

func TestCompose_FulfillmentIsAnyOf(t *testing.T) {
	p, s, f := composeFixture()

	pickup := Compose(p, s, f, FilterState{View: ViewProducts, Fulfillment: []string{FulfillmentPickup}})
	assert.Equal(t, []string{"tomatoes", "eggs"}, ids(pickup))

	delivery := Compose(p, s, f, FilterState{View: ViewProducts, Fulfillment: []string{"Delivery"}})
	assert.Equal(t, []string{"honey"}, ids(delivery))

	both := Compose(p, s, f, FilterState{View: ViewProducts, Fulfillment: []string{FulfillmentPickup, FulfillmentDelivery}})
	assert.Equal(t, []string{"tomatoes", "eggs", "honey"}, ids(both))

	places := Compose(p, s, f, FilterState{View: ViewStands, Fulfillment: []string{FulfillmentDelivery}})
	assert.Equal(t, []string{"stand-a"}, ids(places))
}

func TestCompose_EqualDistancesKeepInputOrder(t *testing.T) {
	products := []ProductDTO{
		{ID: "b", Distance: PtrTo(2.0)},
		{ID: "a", Distance: PtrTo(2.0)},
		{ID: "c"},
		{ID: "d"},
	}

	assert.Equal(t, []string{"b", "a", "c", "d"}, ids(Compose(products, nil, nil, FilterState{})))
}

func TestCompose_DoesNotMutateInputs(t *testing.T) {
	p, s, f := composeFixture()
	before := ids(Compose(p, s, f, FilterState{}))

	_ = Compose(p, s, f, FilterState{Categories: []string{"dairy"}, MaxDistanceMiles: PtrTo(1.0)})

	assert.Equal(t, "tomatoes", p[0].ID)
	assert.Equal(t, before, ids(Compose(p, s, f, FilterState{})))
}

func TestCompose_EmptyInputsGiveEmptyList(t *testing.T) {
	got := Compose(nil, nil, nil, FilterState{})

	assert.NotNil(t, got)
	assert.Empty(t, got)
}
