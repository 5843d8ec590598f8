package worldmap

// DefaultVendorHours is applied when the editor leaves opening hours blank.
const DefaultVendorHours = "Unknown"

// Vendor is a trader or service operating inside a location.
//
// A vendor's lifetime is bounded by its location: deleting the location
// removes every vendor trading there. Vendors carry no publish flag — they
// are visible exactly when their location is.
type Vendor struct {
	ID          string   `json:"id"`
	LocationID  string   `json:"locationId"`
	Name        string   `json:"name"`
	Description *string  `json:"description"`
	Hours       string   `json:"hours"`
	Services    []string `json:"services"`
}
