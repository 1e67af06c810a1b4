// Package profile contains the core profile domain types and validation logic.
// This is part of the Functional Core - all functions are pure with no I/O.
package profile

import (
	"errors"
	"time"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// User validation errors
	ErrUserIDRequired = errors.New("user_id is required")
	ErrNameRequired   = errors.New("name is required")
	ErrNameTooLong    = errors.New("name must be at most 255 characters")

	// AI profile validation errors
	ErrContentIDRequired = errors.New("content_id is required")
)

// =============================================================================
// User
// =============================================================================

// User represents a user profile. User IDs are assigned by the upstream
// identity service, not generated here.
type User struct {
	UserID        int       `json:"user_id"`
	DisplayName   string    `json:"display_name"`
	Name          string    `json:"name"`
	Bio           string    `json:"bio"`
	Location      string    `json:"location"`
	ProfilePicURL string    `json:"profile_pic_url"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewUser creates a new user profile with the given ID.
func NewUser(userID int, name string) (*User, error) {
	if userID == 0 {
		return nil, ErrUserIDRequired
	}
	if err := validateName(name); err != nil {
		return nil, err
	}
	return &User{
		UserID:    userID,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// UserPatch holds an incoming create-or-update request for a user profile.
// Nil fields were absent from the request.
type UserPatch struct {
	DisplayName   *string
	Name          *string
	Bio           *string
	Location      *string
	ProfilePicURL *string
}

// Apply merges the patch into the user. Absent fields keep their stored
// values, so a partial update never clears data.
func (p UserPatch) Apply(u *User) {
	if p.DisplayName != nil {
		u.DisplayName = *p.DisplayName
	}
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Bio != nil {
		u.Bio = *p.Bio
	}
	if p.Location != nil {
		u.Location = *p.Location
	}
	if p.ProfilePicURL != nil {
		u.ProfilePicURL = *p.ProfilePicURL
	}
}

// =============================================================================
// AIProfile
// =============================================================================

// AIProfile represents a generated persona profile for a content item.
// There is at most one AI profile per content_id.
type AIProfile struct {
	AIID                int       `json:"ai_id"`
	ContentID           int       `json:"content_id"`
	DisplayName         string    `json:"display_name"`
	Name                string    `json:"name"`
	Bio                 string    `json:"bio"`
	Location            string    `json:"location"`
	ProfilePicURL       string    `json:"profile_pic_url"`
	SystemsInstructions string    `json:"systems_instructions"`
	CreatedAt           time.Time `json:"created_at"`
}

// NewAIProfile creates a new AI profile bound to a content item.
// AIID is assigned by the store on insert.
func NewAIProfile(contentID int) (*AIProfile, error) {
	if contentID == 0 {
		return nil, ErrContentIDRequired
	}
	return &AIProfile{
		ContentID: contentID,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// AIPatch holds generated persona fields plus the caller-supplied picture URL.
// Nil fields were absent and keep stored values on update.
type AIPatch struct {
	DisplayName         *string
	Name                *string
	Bio                 *string
	Location            *string
	ProfilePicURL       *string
	SystemsInstructions *string
}

// Apply merges the patch into the AI profile.
func (p AIPatch) Apply(a *AIProfile) {
	if p.DisplayName != nil {
		a.DisplayName = *p.DisplayName
	}
	if p.Name != nil {
		a.Name = *p.Name
	}
	if p.Bio != nil {
		a.Bio = *p.Bio
	}
	if p.Location != nil {
		a.Location = *p.Location
	}
	if p.ProfilePicURL != nil {
		a.ProfilePicURL = *p.ProfilePicURL
	}
	if p.SystemsInstructions != nil {
		a.SystemsInstructions = *p.SystemsInstructions
	}
}

// =============================================================================
// Validation
// =============================================================================

func validateName(name string) error {
	if name == "" {
		return ErrNameRequired
	}
	if len(name) > 255 {
		return ErrNameTooLong
	}
	return nil
}

// ValidateUser checks a user profile before persistence.
func ValidateUser(u *User) error {
	if u.UserID == 0 {
		return ErrUserIDRequired
	}
	return validateName(u.Name)
}
