package worldmap_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wastelandblues/atlas/internal/core/worldmap"
	"github.com/wastelandblues/atlas/internal/platform/apperr"
	"github.com/wastelandblues/atlas/internal/platform/sec"
	"github.com/wastelandblues/atlas/pkg/pointer"
)

const testAdminCode = "HOUSE-ALWAYS-WINS"

// testSecret must satisfy the minimum HMAC key length.
const testSecret = "0123456789abcdef0123456789abcdef"

func newTestService(t *testing.T) (*worldmap.Service, *worldmap.MemoryRepository) {
	t.Helper()

	seedHash, err := sec.HashCode(testAdminCode)
	require.NoError(t, err)

	tokens, err := sec.NewTokenService(testSecret, "test-issuer")
	require.NoError(t, err)

	repo := worldmap.NewMemoryRepository(seedHash)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return worldmap.NewService(repo, nil, tokens, logger), repo
}

func createLocation(t *testing.T, service *worldmap.Service, name string, locationType string) *worldmap.LocationWithVendors {
	t.Helper()

	location, err := service.CreateLocation(context.Background(), &worldmap.LocationInput{
		Name: pointer.To(name),
		Type: pointer.To(locationType),
		X:    pointer.To(25.0),
		Y:    pointer.To(75.0),
	})
	require.NoError(t, err)
	return location
}

/*
TestCreateLocation_Defaults verifies that a minimal payload resolves every
defaulted field: slug id, type icon, safety rating, vendor hours and services.
*/
func TestCreateLocation_Defaults(t *testing.T) {
	service, _ := newTestService(t)

	location, err := service.CreateLocation(context.Background(), &worldmap.LocationInput{
		Name: pointer.To("Goodsprings"),
		Type: pointer.To("settlement"),
		X:    pointer.To(10.0),
		Y:    pointer.To(20.0),
		Vendors: []worldmap.VendorInput{
			{Name: pointer.To("Chet's General Store")},
		},
	})
	require.NoError(t, err)

	// 1. Identity: the id is the slug of the name.
	assert.Equal(t, "goodsprings", location.ID)

	// 2. Defaults
	assert.Equal(t, "home", location.Icon)
	assert.Equal(t, worldmap.DefaultSafetyRating, location.SafetyRating)
	assert.False(t, location.IsPublished)

	// 3. Vendor defaults
	require.Len(t, location.Vendors, 1)
	assert.Equal(t, worldmap.DefaultVendorHours, location.Vendors[0].Hours)
	assert.Equal(t, []string{}, location.Vendors[0].Services)
	assert.Equal(t, "goodsprings", location.Vendors[0].LocationID)
	assert.NotEmpty(t, location.Vendors[0].ID)
}

/*
TestCreateLocation_IconPerType verifies the type→icon default table.
*/
func TestCreateLocation_IconPerType(t *testing.T) {
	tests := []struct {
		locationType string
		expectedIcon string
	}{
		{"settlement", "home"},
		{"dungeon", "skull-crossbones"},
		{"landmark", "landmark"},
		{"trader", "store"},
		{"faction", "shield"},
	}

	service, _ := newTestService(t)

	for _, tc := range tests {
		t.Run(tc.locationType, func(t *testing.T) {
			location := createLocation(t, service, "Test "+tc.locationType, tc.locationType)
			assert.Equal(t, tc.expectedIcon, location.Icon)
		})
	}
}

/*
TestCreateLocation_SlugCollision verifies that a second location with the
same name still gets a unique, slug-prefixed id.
*/
func TestCreateLocation_SlugCollision(t *testing.T) {
	service, _ := newTestService(t)

	first := createLocation(t, service, "Goodsprings", "settlement")
	second := createLocation(t, service, "Goodsprings", "settlement")

	assert.Equal(t, "goodsprings", first.ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Regexp(t, `^goodsprings-[0-9a-f]{8}$`, second.ID)
}

// unreachableLookupRepo simulates a store whose reads fail with a
// persistence error rather than a clean NOT_FOUND.
type unreachableLookupRepo struct {
	*worldmap.MemoryRepository
}

func (repo *unreachableLookupRepo) GetLocation(ctx context.Context, id string) (*worldmap.LocationWithVendors, error) {
	return nil, apperr.Internal(errors.New("connection reset"))
}

/*
TestCreateLocation_SlugCheckFailure verifies that an inconclusive slug
availability check falls back to a suffixed id instead of claiming the bare
slug, so a lookup outage can never mint a duplicate key.
*/
func TestCreateLocation_SlugCheckFailure(t *testing.T) {
	seedHash, err := sec.HashCode(testAdminCode)
	require.NoError(t, err)
	tokens, err := sec.NewTokenService(testSecret, "test-issuer")
	require.NoError(t, err)

	repo := &unreachableLookupRepo{MemoryRepository: worldmap.NewMemoryRepository(seedHash)}
	service := worldmap.NewService(repo, nil, tokens, slog.New(slog.NewTextHandler(io.Discard, nil)))

	location, err := service.CreateLocation(context.Background(), &worldmap.LocationInput{
		Name: pointer.To("Goodsprings"),
		Type: pointer.To("settlement"),
		X:    pointer.To(10.0),
		Y:    pointer.To(20.0),
	})
	require.NoError(t, err)
	assert.Regexp(t, `^goodsprings-[0-9a-f]{8}$`, location.ID)
}

/*
TestCreateLocation_Validation verifies that a broken payload reports every
failing field at once as a 400 validation error.
*/
func TestCreateLocation_Validation(t *testing.T) {
	service, _ := newTestService(t)

	_, err := service.CreateLocation(context.Background(), &worldmap.LocationInput{
		Type:         pointer.To("casino"), // not a valid type
		X:            pointer.To(150.0),    // out of range
		Y:            pointer.To(50.0),
		SafetyRating: pointer.To(9),
	})
	require.Error(t, err)

	appErr := apperr.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
	assert.Equal(t, 400, appErr.HTTPStatus)

	fields := make([]string, 0, len(appErr.Details))
	for _, detail := range appErr.Details {
		fields = append(fields, detail.Field)
	}
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "type")
	assert.Contains(t, fields, "x")
	assert.Contains(t, fields, "safetyRating")
}

/*
TestUpdateLocation_Merge verifies partial-update semantics: absent fields
keep their stored values, and the id never changes with the name.
*/
func TestUpdateLocation_Merge(t *testing.T) {
	service, _ := newTestService(t)
	created := createLocation(t, service, "Goodsprings", "settlement")

	updated, err := service.UpdateLocation(context.Background(), created.ID, &worldmap.LocationInput{
		Name:         pointer.To("New Goodsprings"),
		SafetyRating: pointer.To(5),
	})
	require.NoError(t, err)

	assert.Equal(t, "goodsprings", updated.ID)
	assert.Equal(t, "New Goodsprings", updated.Name)
	assert.Equal(t, 5, updated.SafetyRating)
	// Untouched fields survive the merge.
	assert.Equal(t, 25.0, updated.X)
	assert.Equal(t, 75.0, updated.Y)
	assert.Equal(t, worldmap.TypeSettlement, updated.Type)
}

/*
TestUpdateLocation_VendorReplace verifies the replace contract: a vendors
field in the payload swaps the entire set, an absent field leaves it alone.
*/
func TestUpdateLocation_VendorReplace(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	created, err := service.CreateLocation(ctx, &worldmap.LocationInput{
		Name: pointer.To("Novac"),
		Type: pointer.To("settlement"),
		X:    pointer.To(40.0),
		Y:    pointer.To(60.0),
		Vendors: []worldmap.VendorInput{
			{Name: pointer.To("Cliff Briscoe")},
			{Name: pointer.To("Old Lady Gibson")},
		},
	})
	require.NoError(t, err)
	require.Len(t, created.Vendors, 2)

	// 1. Update without vendors keeps the existing set.
	afterRename, err := service.UpdateLocation(ctx, created.ID, &worldmap.LocationInput{
		Name: pointer.To("Novac Motel"),
	})
	require.NoError(t, err)
	assert.Len(t, afterRename.Vendors, 2)

	// 2. Update with vendors replaces the set wholesale.
	afterReplace, err := service.UpdateLocation(ctx, created.ID, &worldmap.LocationInput{
		Vendors: []worldmap.VendorInput{
			{Name: pointer.To("No-bark Noonan"), Hours: pointer.To("Nights only")},
		},
	})
	require.NoError(t, err)
	require.Len(t, afterReplace.Vendors, 1)
	assert.Equal(t, "No-bark Noonan", afterReplace.Vendors[0].Name)
	assert.Equal(t, "Nights only", afterReplace.Vendors[0].Hours)

	stored, err := service.GetLocation(ctx, created.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Vendors, 1)
}

/*
TestUpdateLocation_NotFound verifies a 404 for an unknown id.
*/
func TestUpdateLocation_NotFound(t *testing.T) {
	service, _ := newTestService(t)

	_, err := service.UpdateLocation(context.Background(), "nowhere", &worldmap.LocationInput{
		Name: pointer.To("Nowhere"),
	})
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperr.As(err).Code)
}

/*
TestDeleteLocation_Cascade verifies the core integrity invariant: deleting a
location removes its vendors and every road touching it, in one unit.
*/
func TestDeleteLocation_Cascade(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	goodsprings, err := service.CreateLocation(ctx, &worldmap.LocationInput{
		Name: pointer.To("Goodsprings"),
		Type: pointer.To("settlement"),
		X:    pointer.To(10.0),
		Y:    pointer.To(20.0),
		Vendors: []worldmap.VendorInput{
			{Name: pointer.To("Chet's General Store")},
		},
	})
	require.NoError(t, err)

	primm := createLocation(t, service, "Primm", "settlement")
	novac := createLocation(t, service, "Novac", "settlement")

	// Road touching the doomed location and one that survives.
	doomed, err := service.CreateRoad(ctx, &worldmap.RoadInput{
		FromLocationID: pointer.To(goodsprings.ID),
		ToLocationID:   pointer.To(primm.ID),
	})
	require.NoError(t, err)

	survivor, err := service.CreateRoad(ctx, &worldmap.RoadInput{
		FromLocationID: pointer.To(primm.ID),
		ToLocationID:   pointer.To(novac.ID),
	})
	require.NoError(t, err)

	require.NoError(t, service.DeleteLocation(ctx, goodsprings.ID))

	// 1. The location is gone.
	_, err = service.GetLocation(ctx, goodsprings.ID)
	assert.Equal(t, "NOT_FOUND", apperr.As(err).Code)

	// 2. Its road is gone, the unrelated road survives.
	_, err = service.GetRoad(ctx, doomed.ID)
	assert.Equal(t, "NOT_FOUND", apperr.As(err).Code)

	remaining, err := service.ListRoads(ctx)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, survivor.ID, remaining[0].ID)
}

/*
TestCreateRoad verifies endpoint resolution and server-side path generation.
*/
func TestCreateRoad(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	from := createLocation(t, service, "Primm", "settlement")
	to := createLocation(t, service, "Nipton", "settlement")

	road, err := service.CreateRoad(ctx, &worldmap.RoadInput{
		FromLocationID: pointer.To(from.ID),
		ToLocationID:   pointer.To(to.ID),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, road.ID)
	assert.Regexp(t, `^M .+ Q .+$`, road.PathData)
	assert.False(t, road.IsPublished)
}

/*
TestCreateRoad_BadEndpoints verifies that a missing or self-referential
endpoint is a 400 validation error, not a 404.
*/
func TestCreateRoad_BadEndpoints(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	primm := createLocation(t, service, "Primm", "settlement")

	// 1. Ghost endpoint
	_, err := service.CreateRoad(ctx, &worldmap.RoadInput{
		FromLocationID: pointer.To(primm.ID),
		ToLocationID:   pointer.To("nowhere"),
	})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_ERROR", apperr.As(err).Code)

	// 2. Both ends on the same location
	_, err = service.CreateRoad(ctx, &worldmap.RoadInput{
		FromLocationID: pointer.To(primm.ID),
		ToLocationID:   pointer.To(primm.ID),
	})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_ERROR", apperr.As(err).Code)
}

/*
TestUpdateRoad_RecomputesPath verifies that rewiring a road regenerates its
geometry unless the caller supplies an explicit path.
*/
func TestUpdateRoad_RecomputesPath(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	a := createLocation(t, service, "Alpha", "landmark")
	b := createLocation(t, service, "Bravo", "landmark")
	c, err := service.CreateLocation(ctx, &worldmap.LocationInput{
		Name: pointer.To("Charlie"),
		Type: pointer.To("landmark"),
		X:    pointer.To(90.0),
		Y:    pointer.To(5.0),
	})
	require.NoError(t, err)

	road, err := service.CreateRoad(ctx, &worldmap.RoadInput{
		FromLocationID: pointer.To(a.ID),
		ToLocationID:   pointer.To(b.ID),
	})
	require.NoError(t, err)

	rewired, err := service.UpdateRoad(ctx, road.ID, &worldmap.RoadInput{
		ToLocationID: pointer.To(c.ID),
	})
	require.NoError(t, err)

	assert.Equal(t, c.ID, rewired.ToLocationID)
	assert.NotEqual(t, road.PathData, rewired.PathData)

	// An explicit path is taken verbatim.
	custom, err := service.UpdateRoad(ctx, road.ID, &worldmap.RoadInput{
		PathData: pointer.To("M 0% 0% Q 1% 1% 2% 2%"),
	})
	require.NoError(t, err)
	assert.Equal(t, "M 0% 0% Q 1% 1% 2% 2%", custom.PathData)
}

/*
TestPublishAllChanges verifies the atomic publish: every draft flips to
published and the publish instant is stamped.
*/
func TestPublishAllChanges(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	a := createLocation(t, service, "Alpha", "settlement")
	b := createLocation(t, service, "Bravo", "dungeon")
	_, err := service.CreateRoad(ctx, &worldmap.RoadInput{
		FromLocationID: pointer.To(a.ID),
		ToLocationID:   pointer.To(b.ID),
	})
	require.NoError(t, err)

	before, err := service.PublishedMapData(ctx)
	require.NoError(t, err)
	assert.Empty(t, before.Locations)
	assert.Empty(t, before.Roads)
	assert.Nil(t, before.LastPublishedAt)

	require.NoError(t, service.PublishAllChanges(ctx))

	after, err := service.PublishedMapData(ctx)
	require.NoError(t, err)
	assert.Len(t, after.Locations, 2)
	assert.Len(t, after.Roads, 1)
	require.NotNil(t, after.LastPublishedAt)

	// Publishing again is idempotent.
	require.NoError(t, service.PublishAllChanges(ctx))
	again, err := service.PublishedMapData(ctx)
	require.NoError(t, err)
	assert.Len(t, again.Locations, 2)
}

/*
TestPublishedMapData_Filter verifies the public view: only published
locations and roads appear, and a published location carries all of its
vendors regardless of any publish state.
*/
func TestPublishedMapData_Filter(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	published, err := service.CreateLocation(ctx, &worldmap.LocationInput{
		Name:        pointer.To("Live Town"),
		Type:        pointer.To("settlement"),
		X:           pointer.To(10.0),
		Y:           pointer.To(10.0),
		IsPublished: pointer.To(true),
		Vendors: []worldmap.VendorInput{
			{Name: pointer.To("Open Vendor")},
		},
	})
	require.NoError(t, err)

	createLocation(t, service, "Draft Town", "settlement")

	data, err := service.PublishedMapData(ctx)
	require.NoError(t, err)

	require.Len(t, data.Locations, 1)
	assert.Equal(t, published.ID, data.Locations[0].ID)
	assert.Len(t, data.Locations[0].Vendors, 1)

	// The admin view sees everything.
	adminData, err := service.AdminMapData(ctx)
	require.NoError(t, err)
	assert.Len(t, adminData.Locations, 2)
}

/*
TestPerEntityPublishToggle verifies the single-entity publish/unpublish path.
*/
func TestPerEntityPublishToggle(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	location := createLocation(t, service, "Sloan", "settlement")

	require.NoError(t, service.SetLocationPublished(ctx, location.ID, true))
	data, err := service.PublishedMapData(ctx)
	require.NoError(t, err)
	assert.Len(t, data.Locations, 1)

	require.NoError(t, service.SetLocationPublished(ctx, location.ID, false))
	data, err = service.PublishedMapData(ctx)
	require.NoError(t, err)
	assert.Empty(t, data.Locations)
}

/*
TestVerifyAdminCode verifies the access guard: correct code yields a session
token carrying the admin role, wrong code is a clean false, never an error.
*/
func TestVerifyAdminCode(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	// 1. Wrong code
	valid, token, err := service.VerifyAdminCode(ctx, "PATROLLING-THE-MOJAVE")
	require.NoError(t, err)
	assert.False(t, valid)
	assert.Empty(t, token)

	// 2. Correct code
	valid, token, err = service.VerifyAdminCode(ctx, testAdminCode)
	require.NoError(t, err)
	assert.True(t, valid)
	require.NotEmpty(t, token)

	tokens, err := sec.NewTokenService(testSecret, "test-issuer")
	require.NoError(t, err)
	claims, err := tokens.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, sec.RoleAdmin, claims.Role)
}

/*
TestUpdateAdminCode verifies code rotation: the new code takes effect for
future verifications while tokens issued before the rotation stay valid.
*/
func TestUpdateAdminCode(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	valid, oldToken, err := service.VerifyAdminCode(ctx, testAdminCode)
	require.NoError(t, err)
	require.True(t, valid)

	require.NoError(t, service.UpdateAdminCode(ctx, "RING-A-DING-BABY"))

	// 1. Old code no longer verifies, new one does.
	valid, _, err = service.VerifyAdminCode(ctx, testAdminCode)
	require.NoError(t, err)
	assert.False(t, valid)

	valid, _, err = service.VerifyAdminCode(ctx, "RING-A-DING-BABY")
	require.NoError(t, err)
	assert.True(t, valid)

	// 2. The pre-rotation session survives.
	tokens, err := sec.NewTokenService(testSecret, "test-issuer")
	require.NoError(t, err)
	_, err = tokens.VerifyToken(oldToken)
	assert.NoError(t, err)

	// 3. A trivially weak code is rejected.
	err = service.UpdateAdminCode(ctx, "ab")
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_ERROR", apperr.As(err).Code)

	// 4. A code beyond bcrypt's 72-byte input limit is a structured 400,
	// never a hashing failure.
	err = service.UpdateAdminCode(ctx, strings.Repeat("A", 80))
	require.Error(t, err)
	require.NotNil(t, apperr.As(err))
	assert.Equal(t, "VALIDATION_ERROR", apperr.As(err).Code)

	// The 72-byte boundary itself still rotates cleanly.
	require.NoError(t, service.UpdateAdminCode(ctx, strings.Repeat("A", 72)))
}
