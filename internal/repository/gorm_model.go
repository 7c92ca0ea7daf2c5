package repository

// deliveryProductRow is the slice of the products table an eligibility
// check needs, with its zone and weekday listings preloaded.
type deliveryProductRow struct {
	ID                string `gorm:"primaryKey"`
	Name              string
	IsActive          bool
	DeliveryAvailable bool
	Inventory         int
	DeliveryZoneID    *string
	DeliveryType      *string
	DeliveryDates     StringList `gorm:"type:json"`

	Zone     *deliveryZoneRow `gorm:"foreignKey:DeliveryZoneID"`
	Listings []listingRow     `gorm:"foreignKey:ProductID"`
}

func (deliveryProductRow) TableName() string { return "products" }

type deliveryZoneRow struct {
	ID                    string `gorm:"primaryKey"`
	Name                  string
	ZipCodes              StringList `gorm:"type:json"`
	Cities                StringList `gorm:"type:json"`
	States                StringList `gorm:"type:json"`
	DeliveryFee           int64
	FreeDeliveryThreshold *int64
	MinimumOrder          *int64
	DeliveryDays          StringList `gorm:"type:json"`
	DeliveryTimeWindows   RawJSON    `gorm:"type:json"`
	IsActive              bool
}

func (deliveryZoneRow) TableName() string { return "delivery_zones" }

// listingRow is one weekday's delivery stock for a product.
type listingRow struct {
	ID        uint64 `gorm:"primaryKey"`
	ProductID string
	DayOfWeek string
	Inventory int
}

func (listingRow) TableName() string { return "product_delivery_listings" }
