package models

// Property types accepted in the catalog.
const (
	PropertyTypeCondo        = "Condo"
	PropertyTypeSingleFamily = "Single Family Home"
)

// FinancialInfo holds the optional cost details of a listing
type FinancialInfo struct {
	MonthlyGroundRent *float64 `json:"monthly_ground_rent,omitempty"`
	LeaseType         string   `json:"lease_type,omitempty"`
	MonthlyHOAFees    *float64 `json:"monthly_hoa_fees,omitempty"`
}

type OpenHouse struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

// Property is the canonical listing record. Alias fields from the source data
// (beds, baths, sqft, features) are resolved before a Property is built.
type Property struct {
	ID            string         `json:"id"`
	Type          string         `json:"type,omitempty"`
	Price         int            `json:"price"`
	Description   string         `json:"description,omitempty"`
	Address       string         `json:"address"`
	City          string         `json:"city,omitempty"`
	State         string         `json:"state,omitempty"`
	Zip           string         `json:"zip,omitempty"`
	Bedrooms      int            `json:"bedrooms"`
	Bathrooms     int            `json:"bathrooms"`
	SquareFootage int            `json:"square_footage"`
	LotSize       *int           `json:"lot_size,omitempty"`
	HouseAge      *int           `json:"house_age,omitempty"`
	HazardZones   []string       `json:"hazard_zones,omitempty"`
	OpenHouse     *OpenHouse     `json:"open_house_info,omitempty"`
	View          string         `json:"view,omitempty"`
	Financial     *FinancialInfo `json:"financial,omitempty"`
	Amenities     []string       `json:"amenities,omitempty"`
	Image         string         `json:"image,omitempty"`
	Latitude      *float64       `json:"latitude,omitempty"`
	Longitude     *float64       `json:"longitude,omitempty"`
}

// HasCoordinates reports whether the listing carries its own location
func (p *Property) HasCoordinates() bool {
	return p.Latitude != nil && p.Longitude != nil
}
