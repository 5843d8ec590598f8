package schema

// MapStateTable represents the 'map_state' singleton table
type MapStateTable struct {
	Table           string
	ID              string
	LastPublishedAt string
	AdminCodeHash   string
}

// MapState is the schema definition for map_state
var MapState = MapStateTable{
	Table:           "map_state",
	ID:              "id",
	LastPublishedAt: "last_published_at",
	AdminCodeHash:   "admin_code_hash",
}

func (t MapStateTable) Columns() []string {
	return []string{t.ID, t.LastPublishedAt, t.AdminCodeHash}
}
