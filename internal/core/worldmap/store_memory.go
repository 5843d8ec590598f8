package worldmap

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wastelandblues/atlas/internal/platform/apperr"
)

// MemoryRepository is the in-process implementation of [Repository].
//
// It backs unit tests and local development (STORAGE_DRIVER=memory). A single
// RWMutex guards all four collections, which trivially satisfies the
// atomicity contract: cascade deletes and publish-all hold the write lock for
// their whole duration, so readers see all-or-nothing.
type MemoryRepository struct {
	mu        sync.RWMutex
	locations map[string]*Location
	vendors   map[string]*Vendor
	roads     map[string]*Road
	state     *MapState

	seedAdminCodeHash string
}

// NewMemoryRepository creates an empty in-memory repository.
//
// seedAdminCodeHash is used to materialize the map state singleton on first
// access, mirroring the lazy-create behavior of the durable store.
func NewMemoryRepository(seedAdminCodeHash string) *MemoryRepository {
	return &MemoryRepository{
		locations:         make(map[string]*Location),
		vendors:           make(map[string]*Vendor),
		roads:             make(map[string]*Road),
		seedAdminCodeHash: seedAdminCodeHash,
	}
}

// # Locations

func (repository *MemoryRepository) ListLocations(ctx context.Context) ([]*LocationWithVendors, error) {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	return repository.composeLocations(func(*Location) bool { return true }), nil
}

func (repository *MemoryRepository) ListPublishedLocations(ctx context.Context) ([]*LocationWithVendors, error) {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	return repository.composeLocations(func(location *Location) bool { return location.IsPublished }), nil
}

func (repository *MemoryRepository) GetLocation(ctx context.Context, id string) (*LocationWithVendors, error) {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	location, ok := repository.locations[id]
	if !ok {
		return nil, apperr.NotFound("Location")
	}

	return repository.composeLocation(location), nil
}

func (repository *MemoryRepository) CreateLocation(ctx context.Context, location *Location) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	if _, exists := repository.locations[location.ID]; exists {
		return apperr.Conflict("Location already exists")
	}

	repository.locations[location.ID] = cloneLocation(location)
	return nil
}

func (repository *MemoryRepository) UpdateLocation(ctx context.Context, location *Location) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	if _, ok := repository.locations[location.ID]; !ok {
		return apperr.NotFound("Location")
	}

	repository.locations[location.ID] = cloneLocation(location)
	return nil
}

func (repository *MemoryRepository) DeleteLocation(ctx context.Context, id string) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	if _, ok := repository.locations[id]; !ok {
		return apperr.NotFound("Location")
	}

	// Cascade: vendors first, then roads touching either end, then the
	// location itself. The write lock makes the whole cascade one unit.
	for vendorID, vendor := range repository.vendors {
		if vendor.LocationID == id {
			delete(repository.vendors, vendorID)
		}
	}
	for roadID, road := range repository.roads {
		if road.FromLocationID == id || road.ToLocationID == id {
			delete(repository.roads, roadID)
		}
	}
	delete(repository.locations, id)

	return nil
}

func (repository *MemoryRepository) SetLocationPublished(ctx context.Context, id string, published bool) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	location, ok := repository.locations[id]
	if !ok {
		return apperr.NotFound("Location")
	}

	location.IsPublished = published
	return nil
}

// # Vendors

func (repository *MemoryRepository) ListVendorsByLocation(ctx context.Context, locationID string) ([]*Vendor, error) {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	return repository.vendorsOf(locationID), nil
}

func (repository *MemoryRepository) CreateVendor(ctx context.Context, vendor *Vendor) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	if _, ok := repository.locations[vendor.LocationID]; !ok {
		return apperr.NotFound("Location")
	}

	repository.vendors[vendor.ID] = cloneVendor(vendor)
	return nil
}

func (repository *MemoryRepository) UpdateVendor(ctx context.Context, vendor *Vendor) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	if _, ok := repository.vendors[vendor.ID]; !ok {
		return apperr.NotFound("Vendor")
	}

	repository.vendors[vendor.ID] = cloneVendor(vendor)
	return nil
}

func (repository *MemoryRepository) DeleteVendor(ctx context.Context, id string) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	if _, ok := repository.vendors[id]; !ok {
		return apperr.NotFound("Vendor")
	}

	delete(repository.vendors, id)
	return nil
}

func (repository *MemoryRepository) ReplaceVendors(ctx context.Context, locationID string, vendors []*Vendor) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	if _, ok := repository.locations[locationID]; !ok {
		return apperr.NotFound("Location")
	}

	for vendorID, vendor := range repository.vendors {
		if vendor.LocationID == locationID {
			delete(repository.vendors, vendorID)
		}
	}
	for _, vendor := range vendors {
		repository.vendors[vendor.ID] = cloneVendor(vendor)
	}

	return nil
}

// # Roads

func (repository *MemoryRepository) ListRoads(ctx context.Context) ([]*Road, error) {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	return repository.composeRoads(func(*Road) bool { return true }), nil
}

func (repository *MemoryRepository) ListPublishedRoads(ctx context.Context) ([]*Road, error) {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	return repository.composeRoads(func(road *Road) bool { return road.IsPublished }), nil
}

func (repository *MemoryRepository) GetRoad(ctx context.Context, id string) (*Road, error) {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	road, ok := repository.roads[id]
	if !ok {
		return nil, apperr.NotFound("Road")
	}

	clone := *road
	return &clone, nil
}

func (repository *MemoryRepository) CreateRoad(ctx context.Context, road *Road) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	if _, ok := repository.locations[road.FromLocationID]; !ok {
		return apperr.NotFound("Location")
	}
	if _, ok := repository.locations[road.ToLocationID]; !ok {
		return apperr.NotFound("Location")
	}

	clone := *road
	repository.roads[road.ID] = &clone
	return nil
}

func (repository *MemoryRepository) UpdateRoad(ctx context.Context, road *Road) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	if _, ok := repository.roads[road.ID]; !ok {
		return apperr.NotFound("Road")
	}

	clone := *road
	repository.roads[road.ID] = &clone
	return nil
}

func (repository *MemoryRepository) DeleteRoad(ctx context.Context, id string) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	if _, ok := repository.roads[id]; !ok {
		return apperr.NotFound("Road")
	}

	delete(repository.roads, id)
	return nil
}

func (repository *MemoryRepository) SetRoadPublished(ctx context.Context, id string, published bool) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	road, ok := repository.roads[id]
	if !ok {
		return apperr.NotFound("Road")
	}

	road.IsPublished = published
	return nil
}

// # Map State

func (repository *MemoryRepository) MapState(ctx context.Context) (*MapState, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	if repository.state == nil {
		repository.state = &MapState{
			ID:            StateID,
			AdminCodeHash: repository.seedAdminCodeHash,
		}
	}

	clone := *repository.state
	return &clone, nil
}

func (repository *MemoryRepository) UpdateAdminCodeHash(ctx context.Context, hash string) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	repository.ensureState()
	repository.state.AdminCodeHash = hash
	return nil
}

func (repository *MemoryRepository) PublishAll(ctx context.Context, publishedAt time.Time) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	for _, location := range repository.locations {
		location.IsPublished = true
	}
	for _, road := range repository.roads {
		road.IsPublished = true
	}

	repository.ensureState()
	repository.state.LastPublishedAt = &publishedAt

	return nil
}

// # Internals

// ensureState materializes the singleton. Callers must hold the write lock.
func (repository *MemoryRepository) ensureState() {
	if repository.state == nil {
		repository.state = &MapState{
			ID:            StateID,
			AdminCodeHash: repository.seedAdminCodeHash,
		}
	}
}

// composeLocations builds vendor-enriched copies of all locations matching
// the filter, sorted by name for stable output. Callers must hold a lock.
func (repository *MemoryRepository) composeLocations(include func(*Location) bool) []*LocationWithVendors {
	result := make([]*LocationWithVendors, 0, len(repository.locations))
	for _, location := range repository.locations {
		if include(location) {
			result = append(result, repository.composeLocation(location))
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

func (repository *MemoryRepository) composeLocation(location *Location) *LocationWithVendors {
	return &LocationWithVendors{
		Location: *cloneLocation(location),
		Vendors:  repository.vendorsOf(location.ID),
	}
}

func (repository *MemoryRepository) vendorsOf(locationID string) []*Vendor {
	vendors := make([]*Vendor, 0)
	for _, vendor := range repository.vendors {
		if vendor.LocationID == locationID {
			vendors = append(vendors, cloneVendor(vendor))
		}
	}

	sort.Slice(vendors, func(i, j int) bool { return vendors[i].Name < vendors[j].Name })
	return vendors
}

func (repository *MemoryRepository) composeRoads(include func(*Road) bool) []*Road {
	result := make([]*Road, 0, len(repository.roads))
	for _, road := range repository.roads {
		if include(road) {
			clone := *road
			result = append(result, &clone)
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// cloneLocation copies a location, including its pointer fields, so callers
// can never mutate stored state through a returned reference.
func cloneLocation(location *Location) *Location {
	clone := *location
	if location.Description != nil {
		description := *location.Description
		clone.Description = &description
	}
	return &clone
}

func cloneVendor(vendor *Vendor) *Vendor {
	clone := *vendor
	if vendor.Description != nil {
		description := *vendor.Description
		clone.Description = &description
	}
	clone.Services = append([]string(nil), vendor.Services...)
	return &clone
}
