// Package mapview turns catalog listings into map markers, viewport bounds,
// GeoJSON and geohash clusters.
package mapview

import (
	"fmt"
	"math"

	"homekeys/server/internal/models"

	"github.com/paulmach/orb"
)

const (
	SourceListing  = "listing"
	SourceGeocoded = "geocoded"
)

// Locator resolves coordinates for listings that carry none. It must not
// block on the network.
type Locator interface {
	Locate(p models.Property) (lat, lng float64, ok bool)
}

type Marker struct {
	ID        string  `json:"id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Price     int     `json:"price"`
	Label     string  `json:"label"`
	Address   string  `json:"address"`
	Selected  bool    `json:"selected"`
	Source    string  `json:"source"`
}

// Point returns the marker position as an orb point (lng, lat)
func (m Marker) Point() orb.Point {
	return orb.Point{m.Longitude, m.Latitude}
}

// Viewport is the map area to frame
type Viewport struct {
	South     float64 `json:"south"`
	West      float64 `json:"west"`
	North     float64 `json:"north"`
	East      float64 `json:"east"`
	CenterLat float64 `json:"center_lat"`
	CenterLng float64 `json:"center_lng"`
	Zoom      int     `json:"zoom,omitempty"`
}

// ViewportFromBound converts an orb bound into a viewport
func ViewportFromBound(b orb.Bound, zoom int) Viewport {
	c := b.Center()
	return Viewport{
		South:     b.Min.Lat(),
		West:      b.Min.Lon(),
		North:     b.Max.Lat(),
		East:      b.Max.Lon(),
		CenterLat: c.Lat(),
		CenterLng: c.Lon(),
		Zoom:      zoom,
	}
}

// Layer is everything the map needs for one selection state
type Layer struct {
	Markers  []Marker `json:"markers"`
	Unplaced []string `json:"unplaced"`
	Bounds   Viewport `json:"bounds"`
}

// PriceLabel renders the short pin label, e.g. 550000 -> "$550k"
func PriceLabel(price int) string {
	return fmt.Sprintf("$%dk", int(math.Round(float64(price)/1000)))
}

// Build places every property it can and reports the rest as unplaced.
// fallback frames the map when nothing is placed.
func Build(properties []models.Property, selectedID string, locator Locator, fallback Viewport) Layer {
	layer := Layer{
		Markers:  make([]Marker, 0, len(properties)),
		Unplaced: make([]string, 0),
	}

	for _, p := range properties {
		m := Marker{
			ID:       p.ID,
			Price:    p.Price,
			Label:    PriceLabel(p.Price),
			Address:  p.Address,
			Selected: selectedID != "" && p.ID == selectedID,
		}

		switch {
		case p.HasCoordinates():
			m.Latitude, m.Longitude = *p.Latitude, *p.Longitude
			m.Source = SourceListing
		case locator != nil:
			lat, lng, ok := locator.Locate(p)
			if !ok {
				layer.Unplaced = append(layer.Unplaced, p.ID)
				continue
			}
			m.Latitude, m.Longitude = lat, lng
			m.Source = SourceGeocoded
		default:
			layer.Unplaced = append(layer.Unplaced, p.ID)
			continue
		}

		layer.Markers = append(layer.Markers, m)
	}

	layer.Bounds = bounds(layer.Markers, fallback)
	return layer
}

func bounds(markers []Marker, fallback Viewport) Viewport {
	if len(markers) == 0 {
		return fallback
	}
	mp := make(orb.MultiPoint, 0, len(markers))
	for _, m := range markers {
		mp = append(mp, m.Point())
	}
	return ViewportFromBound(mp.Bound(), 0)
}
