package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gnosis/profiles/internal/core/auth"
	"github.com/gnosis/profiles/internal/core/persona"
	"github.com/gnosis/profiles/internal/core/profile"
	"github.com/gnosis/profiles/internal/shell/content"
	"github.com/gnosis/profiles/internal/shell/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "test-api-key"

// =============================================================================
// Test Helpers
// =============================================================================

// stubStore implements store.Store for testing.
type stubStore struct {
	users map[int]*profile.User
	ais   map[int]*profile.AIProfile
	err   error // If set, all operations return this error
}

func newStubStore() *stubStore {
	return &stubStore{
		users: make(map[int]*profile.User),
		ais:   make(map[int]*profile.AIProfile),
	}
}

func (s *stubStore) UpsertUser(ctx context.Context, userID int, patch profile.UserPatch) (*profile.User, store.UpsertAction, error) {
	if s.err != nil {
		return nil, "", s.err
	}
	if existing, ok := s.users[userID]; ok {
		patch.Apply(existing)
		return existing, store.ActionUpdated, nil
	}
	u := &profile.User{UserID: userID, CreatedAt: time.Now().UTC()}
	patch.Apply(u)
	if err := profile.ValidateUser(u); err != nil {
		return nil, "", err
	}
	s.users[userID] = u
	return u, store.ActionCreated, nil
}

func (s *stubStore) GetUser(ctx context.Context, userID int) (*profile.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	u, ok := s.users[userID]
	if !ok {
		return nil, store.NewStoreError("GetUser", "user", strconv.Itoa(userID), "user not found", store.ErrNotFound)
	}
	return u, nil
}

func (s *stubStore) UpsertAIProfile(ctx context.Context, contentID int, patch profile.AIPatch) (*profile.AIProfile, store.UpsertAction, error) {
	if s.err != nil {
		return nil, "", s.err
	}
	if existing, ok := s.ais[contentID]; ok {
		patch.Apply(existing)
		return existing, store.ActionUpdated, nil
	}
	a := &profile.AIProfile{
		AIID:      len(s.ais) + 1,
		ContentID: contentID,
		CreatedAt: time.Now().UTC(),
	}
	patch.Apply(a)
	s.ais[contentID] = a
	return a, store.ActionCreated, nil
}

func (s *stubStore) GetAIProfileByContentID(ctx context.Context, contentID int) (*profile.AIProfile, error) {
	if s.err != nil {
		return nil, s.err
	}
	a, ok := s.ais[contentID]
	if !ok {
		return nil, store.NewStoreError("GetAIProfileByContentID", "ai_profile", strconv.Itoa(contentID), "ai profile not found", store.ErrNotFound)
	}
	return a, nil
}

func (s *stubStore) WithTx(ctx context.Context, fn func(store.Store) error) error {
	return fn(s)
}

func (s *stubStore) Close() error {
	return nil
}

// stubContent implements content.Client for testing.
type stubContent struct {
	items map[int]*persona.Content
	err   error
}

func newStubContent() *stubContent {
	return &stubContent{items: make(map[int]*persona.Content)}
}

func (c *stubContent) GetContent(ctx context.Context, contentID int) (*persona.Content, error) {
	if c.err != nil {
		return nil, c.err
	}
	item, ok := c.items[contentID]
	if !ok {
		return nil, content.ErrContentNotFound
	}
	return item, nil
}

// stubGenerator implements llm.Generator for testing.
type stubGenerator struct {
	draft persona.Draft
	err   error
}

func (g *stubGenerator) GenerateProfile(ctx context.Context, c persona.Content) (persona.Draft, error) {
	if g.err != nil {
		return persona.Draft{}, g.err
	}
	return g.draft, nil
}

// newTestHandler creates a new handler with stub dependencies.
func newTestHandler() (*Handler, *stubStore, *stubContent, *stubGenerator) {
	s := newStubStore()
	c := newStubContent()
	g := &stubGenerator{draft: persona.Draft{
		DisplayName:         "The Gallic Chronicler",
		Name:                "Julius Caesar",
		Bio:                 "Veni, vidi, blogged.",
		Location:            "Somewhere in Gaul",
		SystemsInstructions: "You are Julius Caesar. Be precise.",
	}}
	h := NewHandler(s, c, g, nil, testAPIKey) // nil logger uses default
	return h, s, c, g
}

// doRequest executes a request against the full router with the API key set.
func doRequest(t *testing.T, h *Handler, method, path string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	req.Header.Set(auth.HeaderAPIKey, testAPIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.Routes().ServeHTTP(w, req)
	return w
}

// jsonReader encodes a value to JSON and returns a reader.
func jsonReader(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	buf := new(bytes.Buffer)
	require.NoError(t, json.NewEncoder(buf).Encode(v))
	return buf
}

// parseResponse parses a JSON response body into the given type.
func parseResponse[T any](t *testing.T, body io.Reader) T {
	t.Helper()
	var result T
	require.NoError(t, json.NewDecoder(body).Decode(&result))
	return result
}

func intptr(i int) *int {
	return &i
}

func strptr(s string) *string {
	return &s
}

// =============================================================================
// Health Endpoint Tests
// =============================================================================

func TestHealth_Success(t *testing.T) {
	h, _, _, _ := newTestHandler()

	// No API key: health is exempt.
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	h.Routes().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	resp := parseResponse[HealthResponse](t, w.Body)
	assert.Equal(t, "healthy", resp.Status)
}

func TestReady_Success(t *testing.T) {
	h, _, _, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	w := httptest.NewRecorder()

	h.Routes().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	resp := parseResponse[ReadyResponse](t, w.Body)
	assert.Equal(t, "ready", resp.Status)
	assert.Equal(t, "ok", resp.Checks["database"])
}

func TestReady_DatabaseFailed(t *testing.T) {
	h, s, _, _ := newTestHandler()
	s.err = errors.New("database is locked")

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	w := httptest.NewRecorder()

	h.Routes().ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	resp := parseResponse[ReadyResponse](t, w.Body)
	assert.Equal(t, "not_ready", resp.Status)
	assert.Equal(t, "failed", resp.Checks["database"])
}

// =============================================================================
// Auth Tests
// =============================================================================

func TestAPIRoute_MissingAPIKey(t *testing.T) {
	h, _, _, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/users/1", nil)
	w := httptest.NewRecorder()

	h.Routes().ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAPIRoute_InvalidAPIKey(t *testing.T) {
	h, _, _, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/users/1", nil)
	req.Header.Set(auth.HeaderAPIKey, "wrong-key")
	w := httptest.NewRecorder()

	h.Routes().ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDocs_NoAPIKeyRequired(t *testing.T) {
	h, _, _, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/openapi.json", nil)
	w := httptest.NewRecorder()

	h.Routes().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
}

func TestCorrelationID_Echoed(t *testing.T) {
	h, _, _, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(auth.HeaderCorrelationID, "corr-123")
	w := httptest.NewRecorder()

	h.Routes().ServeHTTP(w, req)

	assert.Equal(t, "corr-123", w.Header().Get(auth.HeaderCorrelationID))
}

func TestCorrelationID_MintedWhenAbsent(t *testing.T) {
	h, _, _, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	h.Routes().ServeHTTP(w, req)

	assert.NotEmpty(t, w.Header().Get(auth.HeaderCorrelationID))
}

// =============================================================================
// User Handler Tests
// =============================================================================

func TestUpsertUser_Created(t *testing.T) {
	h, _, _, _ := newTestHandler()

	body := jsonReader(t, UpsertUserRequest{
		UserID: intptr(42),
		Name:   strptr("Ada Lovelace"),
		Bio:    strptr("First programmer"),
	})
	w := doRequest(t, h, http.MethodPost, "/api/users", body)

	assert.Equal(t, http.StatusCreated, w.Code)

	resp := parseResponse[UpsertUserResponse](t, w.Body)
	assert.Equal(t, 42, resp.UserID)
	assert.Equal(t, "created", resp.Action)
	assert.Equal(t, "User profile created successfully", resp.Message)
}

func TestUpsertUser_Updated(t *testing.T) {
	h, s, _, _ := newTestHandler()
	s.users[42] = &profile.User{UserID: 42, Name: "Ada Lovelace", CreatedAt: time.Now().UTC()}

	body := jsonReader(t, UpsertUserRequest{
		UserID: intptr(42),
		Bio:    strptr("Analyst and programmer"),
	})
	w := doRequest(t, h, http.MethodPost, "/api/users", body)

	assert.Equal(t, http.StatusOK, w.Code)

	resp := parseResponse[UpsertUserResponse](t, w.Body)
	assert.Equal(t, "updated", resp.Action)
	assert.Equal(t, "Analyst and programmer", s.users[42].Bio)
	// Absent fields keep stored values.
	assert.Equal(t, "Ada Lovelace", s.users[42].Name)
}

func TestUpsertUser_MissingUserID(t *testing.T) {
	h, _, _, _ := newTestHandler()

	body := jsonReader(t, UpsertUserRequest{Name: strptr("Ada")})
	w := doRequest(t, h, http.MethodPost, "/api/users", body)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	resp := parseResponse[ErrorResponse](t, w.Body)
	assert.Equal(t, "User ID is required", resp.Error)
}

func TestUpsertUser_InvalidJSON(t *testing.T) {
	h, _, _, _ := newTestHandler()

	w := doRequest(t, h, http.MethodPost, "/api/users", bytes.NewBufferString("{not json"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpsertUser_ValidationError(t *testing.T) {
	h, _, _, _ := newTestHandler()

	// user_id present but no name on create.
	body := jsonReader(t, UpsertUserRequest{UserID: intptr(7)})
	w := doRequest(t, h, http.MethodPost, "/api/users", body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetUser_Success(t *testing.T) {
	h, s, _, _ := newTestHandler()
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.users[42] = &profile.User{
		UserID:    42,
		Name:      "Ada Lovelace",
		Bio:       "First programmer",
		CreatedAt: created,
	}

	w := doRequest(t, h, http.MethodGet, "/api/users/42", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	resp := parseResponse[UserResponse](t, w.Body)
	assert.Equal(t, 42, resp.UserID)
	assert.Equal(t, "Ada Lovelace", resp.Name)
	assert.Equal(t, created.Format(time.RFC3339), resp.CreatedAt)
}

func TestGetUser_NotFound(t *testing.T) {
	h, _, _, _ := newTestHandler()

	w := doRequest(t, h, http.MethodGet, "/api/users/999", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)

	resp := parseResponse[ErrorResponse](t, w.Body)
	assert.Equal(t, "User not found", resp.Error)
}

func TestGetUser_NonIntegerID(t *testing.T) {
	h, _, _, _ := newTestHandler()

	w := doRequest(t, h, http.MethodGet, "/api/users/abc", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// =============================================================================
// AI Profile Handler Tests
// =============================================================================

func TestUpsertAI_Created(t *testing.T) {
	h, s, c, _ := newTestHandler()
	c.items[7] = &persona.Content{
		Title:  "De Bello Gallico",
		Author: "Julius Caesar",
		Topic:  "Military campaigns",
		Genre:  "History",
	}

	body := jsonReader(t, UpsertAIRequest{
		ContentID:     intptr(7),
		ProfilePicURL: strptr("https://example.com/caesar.png"),
	})
	w := doRequest(t, h, http.MethodPost, "/api/ais", body)

	assert.Equal(t, http.StatusCreated, w.Code)

	resp := parseResponse[UpsertAIResponse](t, w.Body)
	assert.Equal(t, 7, resp.ContentID)
	assert.Equal(t, "created", resp.Action)
	assert.NotZero(t, resp.AIID)

	stored := s.ais[7]
	require.NotNil(t, stored)
	assert.Equal(t, "The Gallic Chronicler", stored.DisplayName)
	assert.Equal(t, "https://example.com/caesar.png", stored.ProfilePicURL)
}

func TestUpsertAI_Updated(t *testing.T) {
	h, s, c, _ := newTestHandler()
	c.items[7] = &persona.Content{Title: "De Bello Gallico", Author: "Julius Caesar"}
	s.ais[7] = &profile.AIProfile{
		AIID:          1,
		ContentID:     7,
		DisplayName:   "Old Name",
		ProfilePicURL: "https://example.com/old.png",
		CreatedAt:     time.Now().UTC(),
	}

	body := jsonReader(t, UpsertAIRequest{ContentID: intptr(7)})
	w := doRequest(t, h, http.MethodPost, "/api/ais", body)

	assert.Equal(t, http.StatusOK, w.Code)

	resp := parseResponse[UpsertAIResponse](t, w.Body)
	assert.Equal(t, "updated", resp.Action)
	// Regenerated persona replaces the stored one; absent picture URL is kept.
	assert.Equal(t, "The Gallic Chronicler", s.ais[7].DisplayName)
	assert.Equal(t, "https://example.com/old.png", s.ais[7].ProfilePicURL)
}

func TestUpsertAI_MissingContentID(t *testing.T) {
	h, _, _, _ := newTestHandler()

	body := jsonReader(t, UpsertAIRequest{})
	w := doRequest(t, h, http.MethodPost, "/api/ais", body)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	resp := parseResponse[ErrorResponse](t, w.Body)
	assert.Equal(t, "Content ID is required", resp.Error)
}

func TestUpsertAI_ContentNotFound(t *testing.T) {
	h, _, _, _ := newTestHandler()

	body := jsonReader(t, UpsertAIRequest{ContentID: intptr(999)})
	w := doRequest(t, h, http.MethodPost, "/api/ais", body)

	assert.Equal(t, http.StatusNotFound, w.Code)

	resp := parseResponse[ErrorResponse](t, w.Body)
	assert.Equal(t, "Content not found", resp.Error)
}

func TestUpsertAI_ContentAPIError(t *testing.T) {
	h, _, c, _ := newTestHandler()
	c.err = errors.New("content API returned error 500")

	body := jsonReader(t, UpsertAIRequest{ContentID: intptr(7)})
	w := doRequest(t, h, http.MethodPost, "/api/ais", body)

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestUpsertAI_GenerationFailure(t *testing.T) {
	h, _, c, g := newTestHandler()
	c.items[7] = &persona.Content{Title: "De Bello Gallico"}
	g.err = persona.ErrInvalidReply

	body := jsonReader(t, UpsertAIRequest{ContentID: intptr(7)})
	w := doRequest(t, h, http.MethodPost, "/api/ais", body)

	assert.Equal(t, http.StatusBadGateway, w.Code)

	resp := parseResponse[ErrorResponse](t, w.Body)
	assert.Equal(t, "Failed to generate AI profile", resp.Error)
}

func TestGetAIByContent_Success(t *testing.T) {
	h, s, _, _ := newTestHandler()
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.ais[7] = &profile.AIProfile{
		AIID:                1,
		ContentID:           7,
		DisplayName:         "The Gallic Chronicler",
		SystemsInstructions: "You are Julius Caesar.",
		CreatedAt:           created,
	}

	w := doRequest(t, h, http.MethodGet, "/api/ais/content/7", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	resp := parseResponse[AIResponse](t, w.Body)
	assert.Equal(t, 1, resp.AIID)
	assert.Equal(t, 7, resp.ContentID)
	assert.Equal(t, "The Gallic Chronicler", resp.DisplayName)
	assert.Equal(t, created.Format(time.RFC3339), resp.CreatedAt)
}

func TestGetAIByContent_NotFound(t *testing.T) {
	h, _, _, _ := newTestHandler()

	w := doRequest(t, h, http.MethodGet, "/api/ais/content/999", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)

	resp := parseResponse[ErrorResponse](t, w.Body)
	assert.Equal(t, "AI profile not found", resp.Error)
}

func TestGetAIByContent_NonIntegerID(t *testing.T) {
	h, _, _, _ := newTestHandler()

	w := doRequest(t, h, http.MethodGet, "/api/ais/content/abc", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
