package schema

// RoadTable represents the 'roads' table
type RoadTable struct {
	Table          string
	ID             string
	FromLocationID string
	ToLocationID   string
	PathData       string
	IsPublished    string
}

// Road is the schema definition for roads
var Road = RoadTable{
	Table:          "roads",
	ID:             "id",
	FromLocationID: "from_location_id",
	ToLocationID:   "to_location_id",
	PathData:       "path_data",
	IsPublished:    "is_published",
}

func (t RoadTable) Columns() []string {
	return []string{t.ID, t.FromLocationID, t.ToLocationID, t.PathData, t.IsPublished}
}
