package schema

// VendorTable represents the 'vendors' table
type VendorTable struct {
	Table       string
	ID          string
	LocationID  string
	Name        string
	Description string
	Hours       string
	Services    string
}

// Vendor is the schema definition for vendors
var Vendor = VendorTable{
	Table:       "vendors",
	ID:          "id",
	LocationID:  "location_id",
	Name:        "name",
	Description: "description",
	Hours:       "hours",
	Services:    "services",
}

func (t VendorTable) Columns() []string {
	return []string{t.ID, t.LocationID, t.Name, t.Description, t.Hours, t.Services}
}
