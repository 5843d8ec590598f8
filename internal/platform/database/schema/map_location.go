package schema

// LocationTable represents the 'locations' table
type LocationTable struct {
	Table        string
	ID           string
	Name         string
	Type         string
	Description  string
	X            string
	Y            string
	Icon         string
	SafetyRating string
	IsPublished  string
}

// Location is the schema definition for locations
var Location = LocationTable{
	Table:        "locations",
	ID:           "id",
	Name:         "name",
	Type:         "type",
	Description:  "description",
	X:            "x",
	Y:            "y",
	Icon:         "icon",
	SafetyRating: "safety_rating",
	IsPublished:  "is_published",
}

func (t LocationTable) Columns() []string {
	return []string{t.ID, t.Name, t.Type, t.Description, t.X, t.Y, t.Icon, t.SafetyRating, t.IsPublished}
}
