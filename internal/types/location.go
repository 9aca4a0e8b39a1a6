package types

// Category is the small fixed enumeration a location belongs to.
type Category string

const (
	CategoryLandmark   Category = "landmark"
	CategoryMuseum     Category = "museum"
	CategoryPark       Category = "park"
	CategoryRestaurant Category = "restaurant"
	CategoryCafe       Category = "cafe"
	CategoryShopping   Category = "shopping"
	CategoryNightlife  Category = "nightlife"
)

// Categories lists every known category, in display order.
var Categories = []Category{
	CategoryLandmark,
	CategoryMuseum,
	CategoryPark,
	CategoryRestaurant,
	CategoryCafe,
	CategoryShopping,
	CategoryNightlife,
}

func (c Category) IsValid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Location is a point of interest. Immutable for the session; owned by the catalog.
type Location struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
	Latitude    float64  `json:"latitude"`
	Longitude   float64  `json:"longitude"`
	Images      []string `json:"images,omitempty"`
}

// Bounds is the geographic viewport currently visible on the map.
type Bounds struct {
	SouthLat float64 `json:"south_lat"`
	WestLng  float64 `json:"west_lng"`
	NorthLat float64 `json:"north_lat"`
	EastLng  float64 `json:"east_lng"`
}

// Contains reports whether the coordinate pair falls inside the bounds.
// Bounds crossing the antimeridian wrap west-to-east.
func (b Bounds) Contains(lat, lng float64) bool {
	if lat < b.SouthLat || lat > b.NorthLat {
		return false
	}
	if b.WestLng <= b.EastLng {
		return lng >= b.WestLng && lng <= b.EastLng
	}
	return lng >= b.WestLng || lng <= b.EastLng
}

// BoundsAround returns the smallest bounds containing every location.
// The second return is false when the slice is empty.
func BoundsAround(locations []Location) (Bounds, bool) {
	if len(locations) == 0 {
		return Bounds{}, false
	}
	b := Bounds{
		SouthLat: locations[0].Latitude,
		NorthLat: locations[0].Latitude,
		WestLng:  locations[0].Longitude,
		EastLng:  locations[0].Longitude,
	}
	for _, loc := range locations[1:] {
		if loc.Latitude < b.SouthLat {
			b.SouthLat = loc.Latitude
		}
		if loc.Latitude > b.NorthLat {
			b.NorthLat = loc.Latitude
		}
		if loc.Longitude < b.WestLng {
			b.WestLng = loc.Longitude
		}
		if loc.Longitude > b.EastLng {
			b.EastLng = loc.Longitude
		}
	}
	return b, true
}
