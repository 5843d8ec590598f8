package worldmap

// Road is a drawn connection between two locations.
//
// PathData is the serialized SVG curve the client renders. It is computed
// server-side from the endpoint coordinates when the editor does not supply
// one. Both endpoints must reference existing locations; deleting either
// endpoint removes the road.
type Road struct {
	ID             string `json:"id"`
	FromLocationID string `json:"fromLocationId"`
	ToLocationID   string `json:"toLocationId"`
	PathData       string `json:"pathData"`
	IsPublished    bool   `json:"isPublished"`
}
