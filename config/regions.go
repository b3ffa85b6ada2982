package config

// Region is a map area the front end can frame when listings carry no
// usable coordinates
type Region struct {
	Name      string    `json:"name"`
	Center    []float64 `json:"center"`
	ZoomLevel int       `json:"zoom_level"`
	// South, west, north, east
	Bounds []float64 `json:"bounds"`
}

// SupportedRegions is a list of regions supported by the application
var SupportedRegions = []Region{
	{
		Name:      "bay-area",
		Center:    []float64{37.4419, -122.1430},
		ZoomLevel: 11,
		Bounds:    []float64{37.2, -122.55, 37.85, -121.85},
	},
	{
		Name:      "peninsula",
		Center:    []float64{37.4275, -122.1697},
		ZoomLevel: 13,
		Bounds:    []float64{37.35, -122.25, 37.50, -122.05},
	},
	{
		Name:      "san-francisco",
		Center:    []float64{37.7749, -122.4194},
		ZoomLevel: 12,
		Bounds:    []float64{37.70, -122.52, 37.83, -122.35},
	},
}

// GetRegionNames returns a list of supported region names
func GetRegionNames() []string {
	names := make([]string, len(SupportedRegions))
	for i, region := range SupportedRegions {
		names[i] = region.Name
	}
	return names
}

// GetRegionByName returns a region configuration by name
func GetRegionByName(name string) *Region {
	for i := range SupportedRegions {
		if SupportedRegions[i].Name == name {
			region := SupportedRegions[i]
			return &region
		}
	}
	return nil
}
