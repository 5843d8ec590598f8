package worldmap

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/wastelandblues/atlas/internal/platform/apperr"
	"github.com/wastelandblues/atlas/internal/platform/constants"
	"github.com/wastelandblues/atlas/internal/platform/metrics"
	"github.com/wastelandblues/atlas/internal/platform/sec"
	"github.com/wastelandblues/atlas/internal/platform/validate"
	"github.com/wastelandblues/atlas/pkg/mappath"
	"github.com/wastelandblues/atlas/pkg/pointer"
	"github.com/wastelandblues/atlas/pkg/slug"
	"github.com/wastelandblues/atlas/pkg/uuidv7"
)

// Service implements the editor and viewer business rules on top of a
// [Repository] and an optional [MapCache].
//
// All defaulting (icons, safety ratings, vendor hours, road paths) happens
// here, so both storage drivers persist fully-resolved records.
type Service struct {
	repo   Repository
	cache  MapCache // nil when Redis is not configured
	tokens *sec.TokenService
	logger *slog.Logger
}

func NewService(repo Repository, cache MapCache, tokens *sec.TokenService, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		cache:  cache,
		tokens: tokens,
		logger: logger,
	}
}

// LocationInput is the editor payload for creating or updating a location.
//
// Every field is a pointer so updates can distinguish "leave unchanged" from
// "set to zero". Vendors follows the replace contract: when present, it
// replaces the location's entire vendor set; when nil, vendors are untouched.
type LocationInput struct {
	Name         *string       `json:"name"`
	Type         *string       `json:"type"`
	Description  *string       `json:"description"`
	X            *float64      `json:"x"`
	Y            *float64      `json:"y"`
	Icon         *string       `json:"icon"`
	SafetyRating *int          `json:"safetyRating"`
	IsPublished  *bool         `json:"isPublished"`
	Vendors      []VendorInput `json:"vendors"`
}

// VendorInput is the editor payload for a vendor inside a location payload.
type VendorInput struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Hours       *string  `json:"hours"`
	Services    []string `json:"services"`
}

// RoadInput is the editor payload for creating or updating a road.
type RoadInput struct {
	FromLocationID *string `json:"fromLocationId"`
	ToLocationID   *string `json:"toLocationId"`
	PathData       *string `json:"pathData"`
	IsPublished    *bool   `json:"isPublished"`
}

// # Locations

func (service *Service) ListLocations(ctx context.Context) ([]*LocationWithVendors, error) {
	return service.repo.ListLocations(ctx)
}

func (service *Service) GetLocation(ctx context.Context, id string) (*LocationWithVendors, error) {
	return service.repo.GetLocation(ctx, id)
}

func (service *Service) CreateLocation(ctx context.Context, input *LocationInput) (*LocationWithVendors, error) {
	name := pointer.Val(input.Name)
	locationType := LocationType(pointer.Val(input.Type))

	validator := &validate.Validator{}
	validator.Required(FieldName, name).MaxLen(FieldName, name, 200)
	validator.Custom(FieldType, !locationType.Valid(), "Unknown location type")
	validator.RangeFloat(FieldX, pointer.Val(input.X), MinCoordinate, MaxCoordinate)
	validator.RangeFloat(FieldY, pointer.Val(input.Y), MinCoordinate, MaxCoordinate)
	if input.SafetyRating != nil {
		validator.Range(FieldSafetyRating, *input.SafetyRating, MinSafetyRating, MaxSafetyRating)
	}
	vendors, validator := service.buildVendors("", input.Vendors, validator)
	if err := validator.Err(); err != nil {
		return nil, err
	}

	location := &Location{
		ID:           service.locationID(ctx, name),
		Name:         name,
		Type:         locationType,
		Description:  input.Description,
		X:            pointer.Val(input.X),
		Y:            pointer.Val(input.Y),
		Icon:         pointer.Fallback(input.Icon, locationType.DefaultIcon()),
		SafetyRating: pointer.Fallback(input.SafetyRating, DefaultSafetyRating),
		IsPublished:  pointer.Val(input.IsPublished),
	}

	if err := service.repo.CreateLocation(ctx, location); err != nil {
		return nil, err
	}

	for _, vendor := range vendors {
		vendor.LocationID = location.ID
		if err := service.repo.CreateVendor(ctx, vendor); err != nil {
			return nil, err
		}
	}

	service.invalidateFeed(ctx)
	service.logger.Info("location_created",
		slog.String("location_id", location.ID),
		slog.String("type", string(location.Type)),
	)

	return &LocationWithVendors{Location: *location, Vendors: vendors}, nil
}

func (service *Service) UpdateLocation(ctx context.Context, id string, input *LocationInput) (*LocationWithVendors, error) {
	existing, err := service.repo.GetLocation(ctx, id)
	if err != nil {
		return nil, err
	}

	// Merge: absent fields keep their stored value. The id never changes,
	// even when the name does — roads and vendors reference it.
	merged := existing.Location
	merged.Name = pointer.Fallback(input.Name, merged.Name)
	merged.Type = LocationType(pointer.Fallback(input.Type, string(merged.Type)))
	if input.Description != nil {
		merged.Description = input.Description
	}
	merged.X = pointer.Fallback(input.X, merged.X)
	merged.Y = pointer.Fallback(input.Y, merged.Y)
	merged.Icon = pointer.Fallback(input.Icon, merged.Icon)
	merged.SafetyRating = pointer.Fallback(input.SafetyRating, merged.SafetyRating)
	merged.IsPublished = pointer.Fallback(input.IsPublished, merged.IsPublished)

	validator := &validate.Validator{}
	validator.Required(FieldName, merged.Name).MaxLen(FieldName, merged.Name, 200)
	validator.Custom(FieldType, !merged.Type.Valid(), "Unknown location type")
	validator.RangeFloat(FieldX, merged.X, MinCoordinate, MaxCoordinate)
	validator.RangeFloat(FieldY, merged.Y, MinCoordinate, MaxCoordinate)
	validator.Range(FieldSafetyRating, merged.SafetyRating, MinSafetyRating, MaxSafetyRating)
	vendors, validator := service.buildVendors(id, input.Vendors, validator)
	if err := validator.Err(); err != nil {
		return nil, err
	}

	if err := service.repo.UpdateLocation(ctx, &merged); err != nil {
		return nil, err
	}

	if input.Vendors != nil {
		if err := service.repo.ReplaceVendors(ctx, id, vendors); err != nil {
			return nil, err
		}
	} else {
		vendors = existing.Vendors
	}

	service.invalidateFeed(ctx)
	service.logger.Info("location_updated", slog.String("location_id", id))

	return &LocationWithVendors{Location: merged, Vendors: vendors}, nil
}

func (service *Service) DeleteLocation(ctx context.Context, id string) error {
	if err := service.repo.DeleteLocation(ctx, id); err != nil {
		return err
	}

	service.invalidateFeed(ctx)
	service.logger.Warn("location_deleted", slog.String("location_id", id))
	return nil
}

func (service *Service) SetLocationPublished(ctx context.Context, id string, published bool) error {
	if err := service.repo.SetLocationPublished(ctx, id, published); err != nil {
		return err
	}

	service.invalidateFeed(ctx)
	service.logger.Info("location_publish_toggled",
		slog.String("location_id", id),
		slog.Bool("published", published),
	)
	return nil
}

// locationID derives a human-readable id from the location name, appending a
// short uuid suffix when the slug is already taken (or unusable).
func (service *Service) locationID(ctx context.Context, name string) string {
	base := slug.From(name)
	if base == "" {
		return uuidv7.New()
	}

	// Only a confirmed NOT_FOUND proves the slug is free. Any other lookup
	// error (a persistence failure) gets the suffix: a redundant suffix is
	// harmless, a duplicate key is not.
	_, err := service.repo.GetLocation(ctx, base)
	if appErr := apperr.As(err); appErr != nil && appErr.HTTPStatus == http.StatusNotFound {
		return base
	}
	return base + "-" + uuidv7.Short()
}

// buildVendors validates vendor inputs and materializes them with defaults
// applied and fresh ids. The location id may be empty when the parent is not
// created yet; the caller fills it in afterwards.
func (service *Service) buildVendors(locationID string, inputs []VendorInput, validator *validate.Validator) ([]*Vendor, *validate.Validator) {
	vendors := make([]*Vendor, 0, len(inputs))
	for _, input := range inputs {
		name := pointer.Val(input.Name)
		validator.Required(FieldVendorName, name).MaxLen(FieldVendorName, name, 200)

		services := input.Services
		if services == nil {
			services = []string{}
		}

		vendors = append(vendors, &Vendor{
			ID:          uuidv7.New(),
			LocationID:  locationID,
			Name:        name,
			Description: input.Description,
			Hours:       pointer.Fallback(input.Hours, DefaultVendorHours),
			Services:    services,
		})
	}
	return vendors, validator
}

// # Roads

func (service *Service) ListRoads(ctx context.Context) ([]*Road, error) {
	return service.repo.ListRoads(ctx)
}

func (service *Service) GetRoad(ctx context.Context, id string) (*Road, error) {
	return service.repo.GetRoad(ctx, id)
}

func (service *Service) CreateRoad(ctx context.Context, input *RoadInput) (*Road, error) {
	fromID := pointer.Val(input.FromLocationID)
	toID := pointer.Val(input.ToLocationID)

	validator := &validate.Validator{}
	validator.Required(FieldFromLocationID, fromID)
	validator.Required(FieldToLocationID, toID)
	validator.Custom(FieldToLocationID, fromID != "" && fromID == toID, "Road endpoints must differ")
	if err := validator.Err(); err != nil {
		return nil, err
	}

	from, to, err := service.resolveEndpoints(ctx, fromID, toID)
	if err != nil {
		return nil, err
	}

	road := &Road{
		ID:             uuidv7.New(),
		FromLocationID: fromID,
		ToLocationID:   toID,
		PathData:       pointer.Val(input.PathData),
		IsPublished:    pointer.Val(input.IsPublished),
	}
	if road.PathData == "" {
		road.PathData = mappath.RoadPath(
			mappath.Point{X: from.X, Y: from.Y},
			mappath.Point{X: to.X, Y: to.Y},
		)
	}

	if err := service.repo.CreateRoad(ctx, road); err != nil {
		return nil, err
	}

	service.invalidateFeed(ctx)
	service.logger.Info("road_created",
		slog.String("road_id", road.ID),
		slog.String("from", fromID),
		slog.String("to", toID),
	)
	return road, nil
}

func (service *Service) UpdateRoad(ctx context.Context, id string, input *RoadInput) (*Road, error) {
	existing, err := service.repo.GetRoad(ctx, id)
	if err != nil {
		return nil, err
	}

	merged := *existing
	merged.FromLocationID = pointer.Fallback(input.FromLocationID, merged.FromLocationID)
	merged.ToLocationID = pointer.Fallback(input.ToLocationID, merged.ToLocationID)
	merged.IsPublished = pointer.Fallback(input.IsPublished, merged.IsPublished)

	validator := &validate.Validator{}
	validator.Custom(FieldToLocationID, merged.FromLocationID == merged.ToLocationID, "Road endpoints must differ")
	if err := validator.Err(); err != nil {
		return nil, err
	}

	from, to, err := service.resolveEndpoints(ctx, merged.FromLocationID, merged.ToLocationID)
	if err != nil {
		return nil, err
	}

	endpointsChanged := merged.FromLocationID != existing.FromLocationID ||
		merged.ToLocationID != existing.ToLocationID

	switch {
	case input.PathData != nil:
		merged.PathData = *input.PathData
	case endpointsChanged:
		// Rewiring a road invalidates its old geometry.
		merged.PathData = mappath.RoadPath(
			mappath.Point{X: from.X, Y: from.Y},
			mappath.Point{X: to.X, Y: to.Y},
		)
	}

	if err := service.repo.UpdateRoad(ctx, &merged); err != nil {
		return nil, err
	}

	service.invalidateFeed(ctx)
	service.logger.Info("road_updated", slog.String("road_id", id))
	return &merged, nil
}

func (service *Service) DeleteRoad(ctx context.Context, id string) error {
	if err := service.repo.DeleteRoad(ctx, id); err != nil {
		return err
	}

	service.invalidateFeed(ctx)
	service.logger.Warn("road_deleted", slog.String("road_id", id))
	return nil
}

func (service *Service) SetRoadPublished(ctx context.Context, id string, published bool) error {
	if err := service.repo.SetRoadPublished(ctx, id, published); err != nil {
		return err
	}

	service.invalidateFeed(ctx)
	service.logger.Info("road_publish_toggled",
		slog.String("road_id", id),
		slog.Bool("published", published),
	)
	return nil
}

// resolveEndpoints loads both road endpoints, turning a missing location into
// a field-level 400. A road referencing a ghost location is a bad request,
// not a missing road.
func (service *Service) resolveEndpoints(ctx context.Context, fromID, toID string) (*LocationWithVendors, *LocationWithVendors, error) {
	from, err := service.repo.GetLocation(ctx, fromID)
	if err != nil {
		return nil, nil, validate.RequiredError(FieldFromLocationID, "Referenced location does not exist")
	}
	to, err := service.repo.GetLocation(ctx, toID)
	if err != nil {
		return nil, nil, validate.RequiredError(FieldToLocationID, "Referenced location does not exist")
	}
	return from, to, nil
}

// # Admin access

// VerifyAdminCode checks a submitted code against the stored hash. On a
// match it issues a session token; a mismatch is a normal false result, not
// an error.
func (service *Service) VerifyAdminCode(ctx context.Context, code string) (bool, string, error) {
	state, err := service.repo.MapState(ctx)
	if err != nil {
		return false, "", err
	}

	if !sec.CheckCodeHash(code, state.AdminCodeHash) {
		service.logger.Warn("admin_code_rejected")
		return false, "", nil
	}

	token, err := service.tokens.GenerateAdminToken(constants.AdminSessionTTL)
	if err != nil {
		return false, "", err
	}

	service.logger.Info("admin_code_verified")
	return true, token, nil
}

// UpdateAdminCode rotates the shared admin code. Tokens issued before the
// rotation stay valid until they expire; only future verifications are
// affected.
func (service *Service) UpdateAdminCode(ctx context.Context, code string) error {
	// bcrypt rejects input over 72 bytes, so longer codes must fail
	// validation here rather than surface as a hashing error.
	validator := &validate.Validator{}
	validator.Required(FieldCode, code).MinLen(FieldCode, code, 4)
	validator.Custom(FieldCode, len(code) > 72, "Maximum 72 bytes")
	if err := validator.Err(); err != nil {
		return err
	}

	hash, err := sec.HashCode(code)
	if err != nil {
		return err
	}

	if err := service.repo.UpdateAdminCodeHash(ctx, hash); err != nil {
		return err
	}

	service.logger.Warn("admin_code_rotated")
	return nil
}

// # Publishing

// PublishAllChanges flips every location and road to published and stamps
// the publish instant, all in one storage transaction.
func (service *Service) PublishAllChanges(ctx context.Context) error {
	if err := service.repo.PublishAll(ctx, time.Now().UTC()); err != nil {
		return err
	}

	metrics.RecordPublish()
	service.invalidateFeed(ctx)
	service.logger.Info("map_published")
	return nil
}

// # Map data assembly

// PublishedMapData returns the public feed: published locations (each with
// all of its vendors), published roads, and the last publish instant. The
// result is served through the cache when one is configured.
func (service *Service) PublishedMapData(ctx context.Context) (*MapData, error) {
	if service.cache != nil {
		cached, err := service.cache.GetPublished(ctx)
		if err != nil {
			service.logger.Warn("map_cache_read_failed", slog.Any("error", err))
		} else if cached != nil {
			metrics.RecordCacheHit()
			return cached, nil
		}
		metrics.RecordCacheMiss()
	}

	data, err := service.assembleMapData(ctx, true)
	if err != nil {
		return nil, err
	}

	if service.cache != nil {
		if err := service.cache.SetPublished(ctx, data); err != nil {
			service.logger.Warn("map_cache_write_failed", slog.Any("error", err))
		}
	}
	return data, nil
}

// AdminMapData returns the full draft view. It is never cached: editors must
// always see their own writes immediately.
func (service *Service) AdminMapData(ctx context.Context) (*MapData, error) {
	return service.assembleMapData(ctx, false)
}

func (service *Service) assembleMapData(ctx context.Context, publishedOnly bool) (*MapData, error) {
	var (
		locations []*LocationWithVendors
		roads     []*Road
		err       error
	)

	if publishedOnly {
		locations, err = service.repo.ListPublishedLocations(ctx)
	} else {
		locations, err = service.repo.ListLocations(ctx)
	}
	if err != nil {
		return nil, err
	}

	if publishedOnly {
		roads, err = service.repo.ListPublishedRoads(ctx)
	} else {
		roads, err = service.repo.ListRoads(ctx)
	}
	if err != nil {
		return nil, err
	}

	state, err := service.repo.MapState(ctx)
	if err != nil {
		return nil, err
	}

	return &MapData{
		Locations:       locations,
		Roads:           roads,
		LastPublishedAt: state.LastPublishedAt,
	}, nil
}

// invalidateFeed drops the cached public feed after any write that could
// change it. Cache failures are logged and swallowed: the TTL bounds the
// staleness window.
func (service *Service) invalidateFeed(ctx context.Context) {
	if service.cache == nil {
		return
	}
	if err := service.cache.Invalidate(ctx); err != nil {
		service.logger.Warn("map_cache_invalidate_failed", slog.Any("error", err))
	}
}
