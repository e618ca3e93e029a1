package domain

// BoundingBox is the rectangular region a city's deliveries must fall in.
type BoundingBox struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

func (b BoundingBox) Contains(c Coordinate) bool {
	return c.Lat >= b.MinLat && c.Lat <= b.MaxLat && c.Lon >= b.MinLon && c.Lon <= b.MaxLon
}

// City is a supported in-city delivery region.
type City struct {
	Name     string
	Centroid Coordinate
	Bounds   BoundingBox
}

// cityBoxDegrees is the half-size of a city's bounding box around its
// centroid. Large enough to cover the metro area of the supported cities.
const cityBoxDegrees = 0.35

func newCity(name string, lat, lon float64) City {
	return City{
		Name:     name,
		Centroid: Coordinate{Lat: lat, Lon: lon},
		Bounds: BoundingBox{
			MinLat: lat - cityBoxDegrees,
			MaxLat: lat + cityBoxDegrees,
			MinLon: lon - cityBoxDegrees,
			MaxLon: lon + cityBoxDegrees,
		},
	}
}

// cities lists the supported delivery regions keyed by public city name.
var cities = map[string]City{
	"Casablanca": newCity("Casablanca", 33.5731, -7.6163),
	"Rabat":      newCity("Rabat", 34.0209, -6.8498),
	"Marrakech":  newCity("Marrakech", 31.6295, -7.9811),
	"Fès":        newCity("Fès", 34.0181, -4.9998),
	"Tanger":     newCity("Tanger", 35.7595, -5.8137),
	"Agadir":     newCity("Agadir", 30.4278, -9.5981),
	"Meknès":     newCity("Meknès", 33.8935, -5.5471),
	"Oujda":      newCity("Oujda", 34.6867, -1.9085),
	"Kenitra":    newCity("Kenitra", 34.2610, -6.5802),
	"Tétouan":    newCity("Tétouan", 35.5889, -5.3684),
}

// LookupCity resolves a city by name.
func LookupCity(name string) (City, bool) {
	c, ok := cities[name]
	return c, ok
}

// CityNames returns the supported city names (unordered).
func CityNames() []string {
	names := make([]string, 0, len(cities))
	for n := range cities {
		names = append(names, n)
	}
	return names
}
