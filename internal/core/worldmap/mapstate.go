package worldmap

import "time"

// StateID is the fixed primary key of the map_state singleton row.
const StateID = "singleton"

// MapState is the process-wide singleton record: the current admin code
// (stored as a bcrypt hash, never serialized) and the instant of the last
// bulk publish. It is created lazily on first access and never deleted.
type MapState struct {
	ID              string     `json:"id"`
	LastPublishedAt *time.Time `json:"lastPublishedAt"`
	AdminCodeHash   string     `json:"-"`
}

// MapData is the composite view served to map clients: locations enriched
// with their vendors, the roads connecting them, and the last publish
// instant. The public variant carries only published entities; the admin
// variant carries everything.
type MapData struct {
	Locations       []*LocationWithVendors `json:"locations"`
	Roads           []*Road                `json:"roads"`
	LastPublishedAt *time.Time             `json:"lastPublishedAt,omitempty"`
}
