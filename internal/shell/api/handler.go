// Package api provides HTTP handlers for the profiles API.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gnosis/profiles/internal/core/profile"
	"github.com/gnosis/profiles/internal/shell/api/middleware"
	"github.com/gnosis/profiles/internal/shell/api/openapi"
	"github.com/gnosis/profiles/internal/shell/content"
	"github.com/gnosis/profiles/internal/shell/llm"
	"github.com/gnosis/profiles/internal/shell/store"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// =============================================================================
// Handler
// =============================================================================

// Handler provides HTTP handlers for the API.
type Handler struct {
	store     store.Store
	content   content.Client
	generator llm.Generator
	logger    *slog.Logger
	apiKey    string
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, c content.Client, g llm.Generator, l *slog.Logger, apiKey string) *Handler {
	if l == nil {
		l = slog.Default()
	}
	return &Handler{
		store:     s,
		content:   c,
		generator: g,
		logger:    l,
		apiKey:    apiKey,
	}
}

// Routes returns the router with all routes configured.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.CorrelationID)
	r.Use(middleware.RequestLogger(h.logger))
	r.Use(h.requestIDHeader)

	authMW := middleware.NewAuthMiddleware(middleware.AuthConfig{
		APIKey: h.apiKey,
		Logger: h.logger,
	})
	r.Use(authMW.Handler)

	// Health endpoints
	r.Get("/health", h.handleHealth)
	r.Get("/ready", h.handleReady)

	// API docs
	docs := openapi.NewDocs()
	r.Get("/openapi.json", docs.SpecHandler())
	r.Get("/docs", docs.PageHandler())

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.Post("/", h.handleUpsertUser)
			r.Get("/{user_id}", h.handleGetUser)
		})
		r.Route("/ais", func(r chi.Router) {
			r.Post("/", h.handleUpsertAI)
			r.Get("/content/{content_id}", h.handleGetAIByContent)
		})
	})

	return r
}

// =============================================================================
// Middleware
// =============================================================================

// requestIDHeader copies the request ID to the response header.
func (h *Handler) requestIDHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reqID := chimw.GetReqID(r.Context()); reqID != "" {
			w.Header().Set("X-Request-ID", reqID)
		}
		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// Health Handlers
// =============================================================================

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy"})
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)

	// The store ran migrations at startup; a live query verifies the
	// connection is still usable.
	if _, err := h.store.GetUser(r.Context(), 0); err != nil && !store.IsNotFound(err) {
		checks["database"] = "failed"
		h.writeJSON(w, http.StatusServiceUnavailable, ReadyResponse{
			Status: "not_ready",
			Checks: checks,
		})
		return
	}
	checks["database"] = "ok"

	h.writeJSON(w, http.StatusOK, ReadyResponse{
		Status: "ready",
		Checks: checks,
	})
}

// =============================================================================
// User Handlers
// =============================================================================

func (h *Handler) handleUpsertUser(w http.ResponseWriter, r *http.Request) {
	var req UpsertUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON", "validation_error")
		return
	}

	if req.UserID == nil || *req.UserID == 0 {
		h.writeError(w, http.StatusBadRequest, "User ID is required", "validation_error")
		return
	}

	patch := profile.UserPatch{
		DisplayName:   req.DisplayName,
		Name:          req.Name,
		Bio:           req.Bio,
		Location:      req.Location,
		ProfilePicURL: req.ProfilePicURL,
	}

	user, action, err := h.store.UpsertUser(r.Context(), *req.UserID, patch)
	if err != nil {
		if isValidationError(err) {
			h.writeError(w, http.StatusBadRequest, err.Error(), "validation_error")
			return
		}
		h.logger.Error("failed to upsert user", "user_id", *req.UserID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error", "internal_error")
		return
	}

	status := http.StatusOK
	if action == store.ActionCreated {
		status = http.StatusCreated
	}

	h.writeJSON(w, status, UpsertUserResponse{
		Message: "User profile " + string(action) + " successfully",
		UserID:  user.UserID,
		Action:  string(action),
	})
}

func (h *Handler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.Atoi(chi.URLParam(r, "user_id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "user_id must be an integer", "validation_error")
		return
	}

	user, err := h.store.GetUser(r.Context(), userID)
	if err != nil {
		if store.IsNotFound(err) {
			h.writeError(w, http.StatusNotFound, "User not found", "user_not_found")
			return
		}
		h.logger.Error("failed to get user", "user_id", userID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error", "internal_error")
		return
	}

	h.writeJSON(w, http.StatusOK, userToResponse(user))
}

// =============================================================================
// AI Profile Handlers
// =============================================================================

func (h *Handler) handleUpsertAI(w http.ResponseWriter, r *http.Request) {
	var req UpsertAIRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON", "validation_error")
		return
	}

	if req.ContentID == nil || *req.ContentID == 0 {
		h.writeError(w, http.StatusBadRequest, "Content ID is required", "validation_error")
		return
	}
	contentID := *req.ContentID

	item, err := h.content.GetContent(r.Context(), contentID)
	if err != nil {
		if errors.Is(err, content.ErrContentNotFound) {
			h.writeError(w, http.StatusNotFound, "Content not found", "content_not_found")
			return
		}
		h.logger.Error("failed to fetch content", "content_id", contentID, "error", err)
		h.writeError(w, http.StatusBadGateway, "Failed to fetch content", "content_error")
		return
	}

	draft, err := h.generator.GenerateProfile(r.Context(), *item)
	if err != nil {
		h.logger.Error("failed to generate AI profile", "content_id", contentID, "error", err)
		h.writeError(w, http.StatusBadGateway, "Failed to generate AI profile", "generation_error")
		return
	}

	patch := profile.AIPatch{
		DisplayName:         &draft.DisplayName,
		Name:                &draft.Name,
		Bio:                 &draft.Bio,
		Location:            &draft.Location,
		SystemsInstructions: &draft.SystemsInstructions,
		ProfilePicURL:       req.ProfilePicURL,
	}

	ai, action, err := h.store.UpsertAIProfile(r.Context(), contentID, patch)
	if err != nil {
		h.logger.Error("failed to upsert AI profile", "content_id", contentID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error", "internal_error")
		return
	}

	status := http.StatusOK
	if action == store.ActionCreated {
		status = http.StatusCreated
	}

	h.writeJSON(w, status, UpsertAIResponse{
		Message:   "AI profile " + string(action) + " successfully",
		AIID:      ai.AIID,
		ContentID: ai.ContentID,
		Action:    string(action),
	})
}

func (h *Handler) handleGetAIByContent(w http.ResponseWriter, r *http.Request) {
	contentID, err := strconv.Atoi(chi.URLParam(r, "content_id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "content_id must be an integer", "validation_error")
		return
	}

	ai, err := h.store.GetAIProfileByContentID(r.Context(), contentID)
	if err != nil {
		if store.IsNotFound(err) {
			h.writeError(w, http.StatusNotFound, "AI profile not found", "ai_profile_not_found")
			return
		}
		h.logger.Error("failed to get AI profile", "content_id", contentID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error", "internal_error")
		return
	}

	h.writeJSON(w, http.StatusOK, aiToResponse(ai))
}

// =============================================================================
// Helpers
// =============================================================================

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode JSON", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message, code string) {
	h.writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

func userToResponse(u *profile.User) UserResponse {
	return UserResponse{
		UserID:        u.UserID,
		DisplayName:   u.DisplayName,
		Name:          u.Name,
		Bio:           u.Bio,
		Location:      u.Location,
		ProfilePicURL: u.ProfilePicURL,
		CreatedAt:     u.CreatedAt.Format(time.RFC3339),
	}
}

func aiToResponse(a *profile.AIProfile) AIResponse {
	return AIResponse{
		AIID:                a.AIID,
		ContentID:           a.ContentID,
		DisplayName:         a.DisplayName,
		Name:                a.Name,
		Bio:                 a.Bio,
		Location:            a.Location,
		ProfilePicURL:       a.ProfilePicURL,
		SystemsInstructions: a.SystemsInstructions,
		CreatedAt:           a.CreatedAt.Format(time.RFC3339),
	}
}

// isValidationError checks if an error stems from domain validation.
func isValidationError(err error) bool {
	return errors.Is(err, profile.ErrUserIDRequired) ||
		errors.Is(err, profile.ErrNameRequired) ||
		errors.Is(err, profile.ErrNameTooLong) ||
		errors.Is(err, profile.ErrContentIDRequired)
}
