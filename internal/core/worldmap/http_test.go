package worldmap_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wastelandblues/atlas/internal/core/worldmap"
	"github.com/wastelandblues/atlas/internal/platform/middleware"
	"github.com/wastelandblues/atlas/internal/platform/sec"
)

// newTestRouter builds the /api subtree exactly as the server does: the
// Authenticate middleware in front, the worldmap routes mounted under /api.
func newTestRouter(t *testing.T) (http.Handler, *worldmap.Service, *sec.TokenService) {
	t.Helper()

	service, _ := newTestService(t)
	tokens, err := sec.NewTokenService(testSecret, "test-issuer")
	require.NoError(t, err)

	router := chi.NewRouter()
	router.Use(middleware.Authenticate(tokens))
	router.Route("/api", func(api chi.Router) {
		worldmap.NewHandler(service).RegisterRoutes(api)
	})

	return router, service, tokens
}

func doRequest(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	request := httptest.NewRequest(method, path, reader)
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	return recorder
}

func adminToken(t *testing.T, tokens *sec.TokenService) string {
	t.Helper()

	token, err := tokens.GenerateAdminToken(time.Hour)
	require.NoError(t, err)
	return token
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), target))
}

/*
TestHTTP_AdminGate verifies that every editor route rejects anonymous and
malformed credentials with 401 before any handler logic runs.
*/
func TestHTTP_AdminGate(t *testing.T) {
	router, _, tokens := newTestRouter(t)

	gated := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/map/admin"},
		{http.MethodGet, "/api/locations"},
		{http.MethodPost, "/api/admin/publish"},
		{http.MethodDelete, "/api/locations/goodsprings"},
		{http.MethodGet, "/api/roads"},
	}

	for _, route := range gated {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			// 1. Anonymous
			recorder := doRequest(t, router, route.method, route.path, "", nil)
			assert.Equal(t, http.StatusUnauthorized, recorder.Code)

			// 2. Garbage token
			recorder = doRequest(t, router, route.method, route.path, "not-a-jwt", nil)
			assert.Equal(t, http.StatusUnauthorized, recorder.Code)
		})
	}

	// 3. A valid admin token opens the gate.
	recorder := doRequest(t, router, http.MethodGet, "/api/locations", adminToken(t, tokens), nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
}

/*
TestHTTP_VerifyAdminCode verifies both verification outcomes over the wire:
a wrong code is a 200 with isValid=false, the right one carries a token.
*/
func TestHTTP_VerifyAdminCode(t *testing.T) {
	router, _, _ := newTestRouter(t)

	// 1. Wrong code
	recorder := doRequest(t, router, http.MethodPost, "/api/admin/verify", "", map[string]string{
		"code": "WRONG-CODE",
	})
	require.Equal(t, http.StatusOK, recorder.Code)

	var body struct {
		IsValid bool   `json:"isValid"`
		Token   string `json:"token"`
	}
	decodeBody(t, recorder, &body)
	assert.False(t, body.IsValid)
	assert.Empty(t, body.Token)

	// 2. Correct code
	recorder = doRequest(t, router, http.MethodPost, "/api/admin/verify", "", map[string]string{
		"code": testAdminCode,
	})
	require.Equal(t, http.StatusOK, recorder.Code)

	decodeBody(t, recorder, &body)
	assert.True(t, body.IsValid)
	assert.NotEmpty(t, body.Token)

	// 3. The issued token works on a gated route.
	recorder = doRequest(t, router, http.MethodGet, "/api/map/admin", body.Token, nil)
	assert.Equal(t, http.StatusOK, recorder.Code)

	// 4. Empty code is a 400, not a failed verification.
	recorder = doRequest(t, router, http.MethodPost, "/api/admin/verify", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

/*
TestHTTP_PublicMapFlow runs the publish workflow end-to-end over HTTP:
create draft content as admin, observe the empty public feed, publish,
observe the full feed anonymously.
*/
func TestHTTP_PublicMapFlow(t *testing.T) {
	router, _, tokens := newTestRouter(t)
	token := adminToken(t, tokens)

	// 1. Create a draft location with a vendor.
	recorder := doRequest(t, router, http.MethodPost, "/api/locations", token, map[string]any{
		"name": "Goodsprings",
		"type": "settlement",
		"x":    12.5,
		"y":    80.0,
		"vendors": []map[string]any{
			{"name": "Chet's General Store", "services": []string{"weapons", "armor"}},
		},
	})
	require.Equal(t, http.StatusCreated, recorder.Code)

	var created worldmap.LocationWithVendors
	decodeBody(t, recorder, &created)
	assert.Equal(t, "goodsprings", created.ID)
	require.Len(t, created.Vendors, 1)

	// 2. Drafts are invisible to the public.
	recorder = doRequest(t, router, http.MethodGet, "/api/map/public", "", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var feed worldmap.MapData
	decodeBody(t, recorder, &feed)
	assert.Empty(t, feed.Locations)

	// 3. Publish everything.
	recorder = doRequest(t, router, http.MethodPost, "/api/admin/publish", token, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	// 4. The feed now carries the location, vendors included.
	recorder = doRequest(t, router, http.MethodGet, "/api/map/public", "", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	decodeBody(t, recorder, &feed)
	require.Len(t, feed.Locations, 1)
	assert.Equal(t, "goodsprings", feed.Locations[0].ID)
	assert.Len(t, feed.Locations[0].Vendors, 1)
	assert.NotNil(t, feed.LastPublishedAt)
}

/*
TestHTTP_CreateLocation_Validation verifies the structured 400 envelope.
*/
func TestHTTP_CreateLocation_Validation(t *testing.T) {
	router, _, tokens := newTestRouter(t)

	recorder := doRequest(t, router, http.MethodPost, "/api/locations", adminToken(t, tokens), map[string]any{
		"name": "Nowhere",
		"type": "casino",
		"x":    -3.0,
		"y":    50.0,
	})
	require.Equal(t, http.StatusBadRequest, recorder.Code)

	var body struct {
		Error   string `json:"error"`
		Code    string `json:"code"`
		Details []struct {
			Field   string `json:"field"`
			Message string `json:"message"`
		} `json:"details"`
	}
	decodeBody(t, recorder, &body)

	assert.Equal(t, "VALIDATION_ERROR", body.Code)
	require.NotEmpty(t, body.Details)

	fields := make([]string, 0, len(body.Details))
	for _, detail := range body.Details {
		fields = append(fields, detail.Field)
	}
	assert.Contains(t, fields, "type")
	assert.Contains(t, fields, "x")
}

/*
TestHTTP_LocationNotFound verifies the 404 path for unknown ids.
*/
func TestHTTP_LocationNotFound(t *testing.T) {
	router, _, tokens := newTestRouter(t)
	token := adminToken(t, tokens)

	recorder := doRequest(t, router, http.MethodGet, "/api/locations/the-divide", token, nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)

	recorder = doRequest(t, router, http.MethodDelete, "/api/locations/the-divide", token, nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

/*
TestHTTP_RoadLifecycle exercises road creation, the per-entity publish
toggle, and deletion over the wire.
*/
func TestHTTP_RoadLifecycle(t *testing.T) {
	router, service, tokens := newTestRouter(t)
	token := adminToken(t, tokens)
	ctx := context.Background()

	from := createLocation(t, service, "Primm", "settlement")
	to := createLocation(t, service, "Nipton", "settlement")
	require.NoError(t, service.SetLocationPublished(ctx, from.ID, true))
	require.NoError(t, service.SetLocationPublished(ctx, to.ID, true))

	// 1. Create
	recorder := doRequest(t, router, http.MethodPost, "/api/roads", token, map[string]any{
		"fromLocationId": from.ID,
		"toLocationId":   to.ID,
	})
	require.Equal(t, http.StatusCreated, recorder.Code)

	var road worldmap.Road
	decodeBody(t, recorder, &road)
	assert.NotEmpty(t, road.PathData)

	// 2. A ghost endpoint is a 400.
	recorder = doRequest(t, router, http.MethodPost, "/api/roads", token, map[string]any{
		"fromLocationId": from.ID,
		"toLocationId":   "nowhere",
	})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	// 3. Publish toggle makes it visible on the public feed.
	recorder = doRequest(t, router, http.MethodPost, "/api/roads/"+road.ID+"/publish", token, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = doRequest(t, router, http.MethodGet, "/api/map/public", "", nil)
	var feed worldmap.MapData
	decodeBody(t, recorder, &feed)
	require.Len(t, feed.Roads, 1)

	// 4. Delete
	recorder = doRequest(t, router, http.MethodDelete, "/api/roads/"+road.ID, token, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = doRequest(t, router, http.MethodGet, "/api/roads/"+road.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

/*
TestHTTP_RotateAdminCode verifies PUT /api/admin/code over the wire.
*/
func TestHTTP_RotateAdminCode(t *testing.T) {
	router, _, tokens := newTestRouter(t)
	token := adminToken(t, tokens)

	recorder := doRequest(t, router, http.MethodPut, "/api/admin/code", token, map[string]string{
		"code": "RING-A-DING-BABY",
	})
	require.Equal(t, http.StatusOK, recorder.Code)

	// Old code stops verifying, the new one works.
	recorder = doRequest(t, router, http.MethodPost, "/api/admin/verify", "", map[string]string{
		"code": testAdminCode,
	})
	var body struct {
		IsValid bool `json:"isValid"`
	}
	decodeBody(t, recorder, &body)
	assert.False(t, body.IsValid)

	recorder = doRequest(t, router, http.MethodPost, "/api/admin/verify", "", map[string]string{
		"code": "RING-A-DING-BABY",
	})
	decodeBody(t, recorder, &body)
	assert.True(t, body.IsValid)

	// Rotation requires an admin session.
	recorder = doRequest(t, router, http.MethodPut, "/api/admin/code", "", map[string]string{
		"code": "ANOTHER-CODE",
	})
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}
