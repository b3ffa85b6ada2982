package mapview

import (
	"sort"

	"github.com/mmcloughlin/geohash"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

const (
	MinPrecision     = 1
	MaxPrecision     = 12
	DefaultPrecision = 5
)

// Cluster groups markers that share a geohash prefix
type Cluster struct {
	Geohash   string   `json:"geohash"`
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Count     int      `json:"count"`
	IDs       []string `json:"ids"`
	Selected  bool     `json:"selected"`
}

// Clusters buckets markers by geohash cell. Precision outside 1..12 is clamped.
func Clusters(markers []Marker, precision int) []Cluster {
	if precision < MinPrecision {
		precision = MinPrecision
	}
	if precision > MaxPrecision {
		precision = MaxPrecision
	}

	type bucket struct {
		points   orb.MultiPoint
		ids      []string
		selected bool
	}
	buckets := make(map[string]*bucket)

	for _, m := range markers {
		hash := geohash.EncodeWithPrecision(m.Latitude, m.Longitude, uint(precision))
		b, ok := buckets[hash]
		if !ok {
			b = &bucket{}
			buckets[hash] = b
		}
		b.points = append(b.points, m.Point())
		b.ids = append(b.ids, m.ID)
		b.selected = b.selected || m.Selected
	}

	out := make([]Cluster, 0, len(buckets))
	for hash, b := range buckets {
		centroid, _ := planar.CentroidArea(b.points)
		out = append(out, Cluster{
			Geohash:   hash,
			Latitude:  centroid.Lat(),
			Longitude: centroid.Lon(),
			Count:     len(b.ids),
			IDs:       b.ids,
			Selected:  b.selected,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Geohash < out[j].Geohash })
	return out
}
