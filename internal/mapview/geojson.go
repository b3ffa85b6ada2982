package mapview

import (
	"github.com/paulmach/orb/geojson"
)

// FeatureCollection renders the placed markers as GeoJSON points
func FeatureCollection(layer Layer) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, m := range layer.Markers {
		f := geojson.NewFeature(m.Point())
		f.ID = m.ID
		f.Properties["id"] = m.ID
		f.Properties["price"] = m.Price
		f.Properties["label"] = m.Label
		f.Properties["address"] = m.Address
		f.Properties["selected"] = m.Selected
		f.Properties["source"] = m.Source
		fc.Append(f)
	}
	fc.ExtraMembers = geojson.Properties{
		"unplaced": layer.Unplaced,
	}
	return fc
}
