package worldmap

// LocationType is the closed set of point-of-interest categories.
//
// The storage layer keeps it as text, but the API boundary rejects anything
// outside this set instead of silently defaulting.
type LocationType string

const (
	TypeSettlement LocationType = "settlement"
	TypeDungeon    LocationType = "dungeon"
	TypeLandmark   LocationType = "landmark"
	TypeTrader     LocationType = "trader"
	TypeFaction    LocationType = "faction"
)

// LocationTypes lists every valid type, in display order.
var LocationTypes = []LocationType{TypeSettlement, TypeDungeon, TypeLandmark, TypeTrader, TypeFaction}

// Valid reports whether t is a member of the closed type set.
func (t LocationType) Valid() bool {
	switch t {
	case TypeSettlement, TypeDungeon, TypeLandmark, TypeTrader, TypeFaction:
		return true
	default:
		return false
	}
}

// DefaultIcon returns the marker icon used when the editor supplies none.
func (t LocationType) DefaultIcon() string {
	switch t {
	case TypeSettlement:
		return "home"
	case TypeDungeon:
		return "skull-crossbones"
	case TypeLandmark:
		return "landmark"
	case TypeTrader:
		return "store"
	case TypeFaction:
		return "shield"
	default:
		return "map-pin"
	}
}

// Default field values applied at creation time.
const (
	DefaultSafetyRating = 3
	MinSafetyRating     = 1
	MaxSafetyRating     = 5
	MinCoordinate       = 0.0
	MaxCoordinate       = 100.0
)

// Location is a named point of interest on the map.
//
// Coordinates are percentages of the map space so the client canvas can scale
// freely. IsPublished controls visibility on the public feed only; the admin
// view always sees every location.
type Location struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Type         LocationType `json:"type"`
	Description  *string      `json:"description"`
	X            float64      `json:"x"`
	Y            float64      `json:"y"`
	Icon         string       `json:"icon"`
	SafetyRating int          `json:"safetyRating"`
	IsPublished  bool         `json:"isPublished"`
}

// LocationWithVendors is the composed read model returned by the API: a
// location enriched with every vendor trading there.
//
// Vendors is always non-nil so the JSON field marshals as [] rather than null.
type LocationWithVendors struct {
	Location
	Vendors []*Vendor `json:"vendors"`
}

// JSON field names used in validation errors.
const (
	FieldName           = "name"
	FieldType           = "type"
	FieldX              = "x"
	FieldY              = "y"
	FieldSafetyRating   = "safetyRating"
	FieldCode           = "code"
	FieldFromLocationID = "fromLocationId"
	FieldToLocationID   = "toLocationId"
	FieldVendorName     = "vendors.name"
)
