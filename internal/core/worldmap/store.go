package worldmap

import (
	"context"
	"time"
)

// Repository is the storage contract for the world map.
//
// Two implementations exist: [PostgresRepository] for production and
// [MemoryRepository] for tests and local development. The implementation is
// selected by dependency injection at startup; business logic never knows
// which one it is talking to.
//
// # Atomicity contract
//
// DeleteLocation, ReplaceVendors and PublishAll are multi-row operations and
// must behave as a single unit: a concurrent reader observes either the full
// before-state or the full after-state, never a partial mix.
type Repository interface {
	// Locations
	ListLocations(ctx context.Context) ([]*LocationWithVendors, error)
	ListPublishedLocations(ctx context.Context) ([]*LocationWithVendors, error)
	GetLocation(ctx context.Context, id string) (*LocationWithVendors, error)
	CreateLocation(ctx context.Context, location *Location) error
	UpdateLocation(ctx context.Context, location *Location) error
	// DeleteLocation cascades: it removes the location's vendors, every road
	// touching the location, and finally the location itself.
	DeleteLocation(ctx context.Context, id string) error
	SetLocationPublished(ctx context.Context, id string, published bool) error

	// Vendors
	ListVendorsByLocation(ctx context.Context, locationID string) ([]*Vendor, error)
	CreateVendor(ctx context.Context, vendor *Vendor) error
	UpdateVendor(ctx context.Context, vendor *Vendor) error
	DeleteVendor(ctx context.Context, id string) error
	// ReplaceVendors swaps a location's entire vendor set in one unit
	// (delete-all-then-recreate, the editor's PUT contract).
	ReplaceVendors(ctx context.Context, locationID string, vendors []*Vendor) error

	// Roads
	ListRoads(ctx context.Context) ([]*Road, error)
	ListPublishedRoads(ctx context.Context) ([]*Road, error)
	GetRoad(ctx context.Context, id string) (*Road, error)
	CreateRoad(ctx context.Context, road *Road) error
	UpdateRoad(ctx context.Context, road *Road) error
	DeleteRoad(ctx context.Context, id string) error
	SetRoadPublished(ctx context.Context, id string, published bool) error

	// Map state
	// MapState returns the singleton row, creating it with the seed admin
	// code hash on first access.
	MapState(ctx context.Context) (*MapState, error)
	UpdateAdminCodeHash(ctx context.Context, hash string) error
	// PublishAll marks every location and road published and stamps
	// last_published_at, all in one unit.
	PublishAll(ctx context.Context, publishedAt time.Time) error
}
