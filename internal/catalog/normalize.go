package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"homekeys/server/internal/models"
)

// listingID accepts both string and numeric ids from the source data
type listingID string

func (id *listingID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = listingID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or a number: %w", err)
	}
	*id = listingID(canonicalNumber(n))
	return nil
}

// canonicalNumber spells integral numbers the way strconv does, so 7, 7.0
// and 7e0 all become "7"
func canonicalNumber(n json.Number) string {
	if i, err := n.Int64(); err == nil {
		return strconv.FormatInt(i, 10)
	}
	f, err := n.Float64()
	if err == nil && f == math.Trunc(f) && math.Abs(f) < 1<<63 {
		return strconv.FormatInt(int64(f), 10)
	}
	return n.String()
}

type rawFinancial struct {
	MonthlyGroundRent *float64 `json:"monthly_ground_rent"`
	LeaseType         *string  `json:"lease_type"`
	MonthlyHOAFees    *float64 `json:"monthly_hoa_fees"`
}

// rawProperty mirrors the source document, both naming schemes included
type rawProperty struct {
	ID            listingID         `json:"id"`
	Type          *string           `json:"type"`
	Price         float64           `json:"price"`
	Description   *string           `json:"description"`
	Address       string            `json:"address"`
	City          *string           `json:"city"`
	State         *string           `json:"state"`
	Zip           *string           `json:"zip"`
	Bedrooms      *int              `json:"bedrooms"`
	Beds          *int              `json:"beds"`
	Bathrooms     *int              `json:"bathrooms"`
	Baths         *int              `json:"baths"`
	SquareFootage *int              `json:"square_footage"`
	Sqft          *int              `json:"sqft"`
	LotSize       *int              `json:"lot_size"`
	HouseAge      *int              `json:"house_age"`
	HazardZones   []string          `json:"hazard_zones"`
	OpenHouse     *models.OpenHouse `json:"open_house_info"`
	View          *string           `json:"view"`
	Financial     *rawFinancial     `json:"financial"`
	Amenities     []string          `json:"amenities"`
	Features      []string          `json:"features"`
	Image         *string           `json:"image"`
	Latitude      *float64          `json:"latitude"`
	Longitude     *float64          `json:"longitude"`
}

type rawCatalog struct {
	Properties []rawProperty `json:"properties"`
}

// preferInt resolves a dual-named count: the fully spelled field wins when
// present (even if zero), then the alias, else zero.
func preferInt(full, alias *int) int {
	if full != nil {
		return *full
	}
	if alias != nil {
		return *alias
	}
	return 0
}

func preferStrings(full, alias []string) []string {
	if full != nil {
		return dedupe(full)
	}
	return dedupe(alias)
}

// dedupe keeps first occurrences so the set keeps its source order
func dedupe(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

// normalize resolves a source record into the canonical shape
func (r rawProperty) normalize() models.Property {
	p := models.Property{
		ID:            string(r.ID),
		Type:          deref(r.Type),
		Price:         int(math.Round(r.Price)),
		Description:   deref(r.Description),
		Address:       strings.TrimSpace(r.Address),
		City:          deref(r.City),
		State:         deref(r.State),
		Zip:           deref(r.Zip),
		Bedrooms:      preferInt(r.Bedrooms, r.Beds),
		Bathrooms:     preferInt(r.Bathrooms, r.Baths),
		SquareFootage: preferInt(r.SquareFootage, r.Sqft),
		LotSize:       r.LotSize,
		HouseAge:      r.HouseAge,
		HazardZones:   dedupe(r.HazardZones),
		OpenHouse:     r.OpenHouse,
		View:          deref(r.View),
		Amenities:     preferStrings(r.Amenities, r.Features),
		Image:         deref(r.Image),
	}

	if r.Financial != nil {
		f := &models.FinancialInfo{
			MonthlyGroundRent: r.Financial.MonthlyGroundRent,
			LeaseType:         deref(r.Financial.LeaseType),
			MonthlyHOAFees:    r.Financial.MonthlyHOAFees,
		}
		if f.MonthlyGroundRent != nil || f.LeaseType != "" || f.MonthlyHOAFees != nil {
			p.Financial = f
		}
	}

	// Coordinates only count as a pair
	if r.Latitude != nil && r.Longitude != nil {
		p.Latitude = r.Latitude
		p.Longitude = r.Longitude
	}

	return p
}
