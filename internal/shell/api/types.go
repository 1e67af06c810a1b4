package api

// =============================================================================
// Request Types
// =============================================================================

// UpsertUserRequest is the body of POST /api/users. Pointer fields distinguish
// absent values from empty ones, so partial updates never clear stored data.
type UpsertUserRequest struct {
	UserID        *int    `json:"user_id"`
	DisplayName   *string `json:"display_name"`
	Name          *string `json:"name"`
	Bio           *string `json:"bio"`
	Location      *string `json:"location"`
	ProfilePicURL *string `json:"profile_pic_url"`
}

// UpsertAIRequest is the body of POST /api/ais.
type UpsertAIRequest struct {
	ContentID     *int    `json:"content_id"`
	ProfilePicURL *string `json:"profile_pic_url"`
}

// =============================================================================
// Response Types
// =============================================================================

// UpsertUserResponse is returned by POST /api/users.
type UpsertUserResponse struct {
	Message string `json:"message"`
	UserID  int    `json:"user_id"`
	Action  string `json:"action"`
}

// UpsertAIResponse is returned by POST /api/ais.
type UpsertAIResponse struct {
	Message   string `json:"message"`
	AIID      int    `json:"ai_id"`
	ContentID int    `json:"content_id"`
	Action    string `json:"action"`
}

// UserResponse is the wire representation of a user profile.
type UserResponse struct {
	UserID        int    `json:"user_id"`
	DisplayName   string `json:"display_name"`
	Name          string `json:"name"`
	Bio           string `json:"bio"`
	Location      string `json:"location"`
	ProfilePicURL string `json:"profile_pic_url"`
	CreatedAt     string `json:"created_at"`
}

// AIResponse is the wire representation of an AI profile.
type AIResponse struct {
	AIID                int    `json:"ai_id"`
	ContentID           int    `json:"content_id"`
	DisplayName         string `json:"display_name"`
	Name                string `json:"name"`
	Bio                 string `json:"bio"`
	Location            string `json:"location"`
	ProfilePicURL       string `json:"profile_pic_url"`
	SystemsInstructions string `json:"systems_instructions"`
	CreatedAt           string `json:"created_at"`
}

// ErrorResponse is the wire format for errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// ReadyResponse is returned by GET /ready.
type ReadyResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
