package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gnosis/profiles/internal/core/profile"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// =============================================================================
// Executor Interface - Shared by DB and Transaction
// =============================================================================

// executor abstracts database operations that can be performed on both
// a database connection and a transaction.
type executor interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// =============================================================================
// SQLiteStore
// =============================================================================

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore creates a new SQLite store and runs migrations.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite3", dsn+"?_foreign_keys=on")
	if err != nil {
		return nil, NewStoreError("NewSQLiteStore", "", "", "failed to open database", ErrConnectionFailed)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", "", "failed to ping database", ErrConnectionFailed)
	}

	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", "", err.Error(), ErrMigrationFailed)
	}

	return &SQLiteStore{db: db}, nil
}

// runMigrations runs database migrations using embedded SQL files.
func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertUser(ctx context.Context, userID int, patch profile.UserPatch) (*profile.User, UpsertAction, error) {
	return upsertUser(ctx, s.db, userID, patch)
}

func (s *SQLiteStore) GetUser(ctx context.Context, userID int) (*profile.User, error) {
	return getUser(ctx, s.db, userID)
}

func (s *SQLiteStore) UpsertAIProfile(ctx context.Context, contentID int, patch profile.AIPatch) (*profile.AIProfile, UpsertAction, error) {
	return upsertAIProfile(ctx, s.db, contentID, patch)
}

func (s *SQLiteStore) GetAIProfileByContentID(ctx context.Context, contentID int) (*profile.AIProfile, error) {
	return getAIProfileByContentID(ctx, s.db, contentID)
}

// =============================================================================
// Transaction Support
// =============================================================================

func (s *SQLiteStore) WithTx(ctx context.Context, fn func(Store) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return NewStoreError("WithTx", "", "", "failed to begin transaction", ErrTxFailed)
	}

	txS := &txSQLiteStore{tx: tx}

	if err := fn(txS); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return NewStoreError("WithTx", "", "", fmt.Sprintf("rollback failed after error: %v", err), ErrTxFailed)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return NewStoreError("WithTx", "", "", "failed to commit transaction", ErrTxFailed)
	}

	return nil
}

// txSQLiteStore implements Store within a transaction.
type txSQLiteStore struct {
	tx *sqlx.Tx
}

func (s *txSQLiteStore) UpsertUser(ctx context.Context, userID int, patch profile.UserPatch) (*profile.User, UpsertAction, error) {
	return upsertUser(ctx, s.tx, userID, patch)
}

func (s *txSQLiteStore) GetUser(ctx context.Context, userID int) (*profile.User, error) {
	return getUser(ctx, s.tx, userID)
}

func (s *txSQLiteStore) UpsertAIProfile(ctx context.Context, contentID int, patch profile.AIPatch) (*profile.AIProfile, UpsertAction, error) {
	return upsertAIProfile(ctx, s.tx, contentID, patch)
}

func (s *txSQLiteStore) GetAIProfileByContentID(ctx context.Context, contentID int) (*profile.AIProfile, error) {
	return getAIProfileByContentID(ctx, s.tx, contentID)
}

func (s *txSQLiteStore) WithTx(ctx context.Context, fn func(Store) error) error {
	// Already in a transaction, just run the function
	return fn(s)
}

func (s *txSQLiteStore) Close() error {
	// No-op for tx store
	return nil
}

// =============================================================================
// Row Types
// =============================================================================

// userRow represents a user row in the database.
type userRow struct {
	UserID        int     `db:"user_id"`
	DisplayName   *string `db:"display_name"`
	Name          string  `db:"name"`
	Bio           *string `db:"bio"`
	Location      *string `db:"location"`
	ProfilePicURL *string `db:"profile_pic_url"`
	CreatedAt     string  `db:"created_at"`
}

// aiRow represents an AI profile row in the database.
type aiRow struct {
	AIID                int     `db:"ai_id"`
	ContentID           int     `db:"content_id"`
	DisplayName         *string `db:"display_name"`
	Name                *string `db:"name"`
	Bio                 *string `db:"bio"`
	Location            *string `db:"location"`
	ProfilePicURL       *string `db:"profile_pic_url"`
	SystemsInstructions *string `db:"systems_instructions"`
	CreatedAt           string  `db:"created_at"`
}

// =============================================================================
// Shared Implementation Functions
// =============================================================================

func upsertUser(ctx context.Context, exec executor, userID int, patch profile.UserPatch) (*profile.User, UpsertAction, error) {
	existing, err := getUser(ctx, exec, userID)
	switch {
	case err == nil:
		patch.Apply(existing)
		if err := profile.ValidateUser(existing); err != nil {
			return nil, "", NewStoreError("UpsertUser", "user", strconv.Itoa(userID), err.Error(), err)
		}
		if err := updateUser(ctx, exec, existing); err != nil {
			return nil, "", err
		}
		return existing, ActionUpdated, nil

	case IsNotFound(err):
		u := &profile.User{UserID: userID, CreatedAt: time.Now().UTC()}
		patch.Apply(u)
		if err := profile.ValidateUser(u); err != nil {
			return nil, "", NewStoreError("UpsertUser", "user", strconv.Itoa(userID), err.Error(), err)
		}
		if err := insertUser(ctx, exec, u); err != nil {
			return nil, "", err
		}
		return u, ActionCreated, nil

	default:
		return nil, "", err
	}
}

func insertUser(ctx context.Context, exec executor, u *profile.User) error {
	query := `
		INSERT INTO users (
			user_id, display_name, name, bio, location, profile_pic_url, created_at
		) VALUES (
			:user_id, :display_name, :name, :bio, :location, :profile_pic_url, :created_at
		)`

	_, err := exec.NamedExecContext(ctx, query, userToRow(u))
	if err != nil {
		return NewStoreError("UpsertUser", "user", strconv.Itoa(u.UserID), err.Error(), err)
	}
	return nil
}

func updateUser(ctx context.Context, exec executor, u *profile.User) error {
	query := `
		UPDATE users SET
			display_name = :display_name,
			name = :name,
			bio = :bio,
			location = :location,
			profile_pic_url = :profile_pic_url
		WHERE user_id = :user_id`

	result, err := exec.NamedExecContext(ctx, query, userToRow(u))
	if err != nil {
		return NewStoreError("UpsertUser", "user", strconv.Itoa(u.UserID), err.Error(), err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return NewStoreError("UpsertUser", "user", strconv.Itoa(u.UserID), "user not found", ErrNotFound)
	}
	return nil
}

func getUser(ctx context.Context, exec executor, userID int) (*profile.User, error) {
	query := `SELECT * FROM users WHERE user_id = ?`

	var row userRow
	err := exec.GetContext(ctx, &row, query, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewStoreError("GetUser", "user", strconv.Itoa(userID), "user not found", ErrNotFound)
		}
		return nil, NewStoreError("GetUser", "user", strconv.Itoa(userID), err.Error(), err)
	}

	return rowToUser(&row)
}

func upsertAIProfile(ctx context.Context, exec executor, contentID int, patch profile.AIPatch) (*profile.AIProfile, UpsertAction, error) {
	existing, err := getAIProfileByContentID(ctx, exec, contentID)
	switch {
	case err == nil:
		patch.Apply(existing)
		if err := updateAIProfile(ctx, exec, existing); err != nil {
			return nil, "", err
		}
		return existing, ActionUpdated, nil

	case IsNotFound(err):
		a, err := profile.NewAIProfile(contentID)
		if err != nil {
			return nil, "", NewStoreError("UpsertAIProfile", "ai_profile", strconv.Itoa(contentID), err.Error(), err)
		}
		patch.Apply(a)
		if err := insertAIProfile(ctx, exec, a); err != nil {
			return nil, "", err
		}
		return a, ActionCreated, nil

	default:
		return nil, "", err
	}
}

func insertAIProfile(ctx context.Context, exec executor, a *profile.AIProfile) error {
	query := `
		INSERT INTO ais (
			content_id, display_name, name, bio, location,
			profile_pic_url, systems_instructions, created_at
		) VALUES (
			:content_id, :display_name, :name, :bio, :location,
			:profile_pic_url, :systems_instructions, :created_at
		)`

	result, err := exec.NamedExecContext(ctx, query, aiToRow(a))
	if err != nil {
		if isUniqueViolation(err) {
			return NewStoreError("UpsertAIProfile", "ai_profile", strconv.Itoa(a.ContentID), "ai profile for this content already exists", ErrDuplicateContentID)
		}
		return NewStoreError("UpsertAIProfile", "ai_profile", strconv.Itoa(a.ContentID), err.Error(), err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return NewStoreError("UpsertAIProfile", "ai_profile", strconv.Itoa(a.ContentID), "failed to read generated id", err)
	}
	a.AIID = int(id)
	return nil
}

func updateAIProfile(ctx context.Context, exec executor, a *profile.AIProfile) error {
	query := `
		UPDATE ais SET
			display_name = :display_name,
			name = :name,
			bio = :bio,
			location = :location,
			profile_pic_url = :profile_pic_url,
			systems_instructions = :systems_instructions
		WHERE content_id = :content_id`

	result, err := exec.NamedExecContext(ctx, query, aiToRow(a))
	if err != nil {
		return NewStoreError("UpsertAIProfile", "ai_profile", strconv.Itoa(a.ContentID), err.Error(), err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return NewStoreError("UpsertAIProfile", "ai_profile", strconv.Itoa(a.ContentID), "ai profile not found", ErrNotFound)
	}
	return nil
}

func getAIProfileByContentID(ctx context.Context, exec executor, contentID int) (*profile.AIProfile, error) {
	query := `SELECT * FROM ais WHERE content_id = ?`

	var row aiRow
	err := exec.GetContext(ctx, &row, query, contentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewStoreError("GetAIProfileByContentID", "ai_profile", strconv.Itoa(contentID), "ai profile not found", ErrNotFound)
		}
		return nil, NewStoreError("GetAIProfileByContentID", "ai_profile", strconv.Itoa(contentID), err.Error(), err)
	}

	return rowToAI(&row)
}

// =============================================================================
// Row Conversion
// =============================================================================

func userToRow(u *profile.User) map[string]any {
	return map[string]any{
		"user_id":         u.UserID,
		"display_name":    nullable(u.DisplayName),
		"name":            u.Name,
		"bio":             nullable(u.Bio),
		"location":        nullable(u.Location),
		"profile_pic_url": nullable(u.ProfilePicURL),
		"created_at":      u.CreatedAt.Format(time.RFC3339),
	}
}

func rowToUser(row *userRow) (*profile.User, error) {
	createdAt, err := time.Parse(time.RFC3339, row.CreatedAt)
	if err != nil {
		return nil, NewStoreError("rowToUser", "user", strconv.Itoa(row.UserID), "invalid created_at", ErrInvalidData)
	}
	return &profile.User{
		UserID:        row.UserID,
		DisplayName:   deref(row.DisplayName),
		Name:          row.Name,
		Bio:           deref(row.Bio),
		Location:      deref(row.Location),
		ProfilePicURL: deref(row.ProfilePicURL),
		CreatedAt:     createdAt,
	}, nil
}

func aiToRow(a *profile.AIProfile) map[string]any {
	return map[string]any{
		"content_id":           a.ContentID,
		"display_name":         nullable(a.DisplayName),
		"name":                 nullable(a.Name),
		"bio":                  nullable(a.Bio),
		"location":             nullable(a.Location),
		"profile_pic_url":      nullable(a.ProfilePicURL),
		"systems_instructions": nullable(a.SystemsInstructions),
		"created_at":           a.CreatedAt.Format(time.RFC3339),
	}
}

func rowToAI(row *aiRow) (*profile.AIProfile, error) {
	createdAt, err := time.Parse(time.RFC3339, row.CreatedAt)
	if err != nil {
		return nil, NewStoreError("rowToAI", "ai_profile", strconv.Itoa(row.ContentID), "invalid created_at", ErrInvalidData)
	}
	return &profile.AIProfile{
		AIID:                row.AIID,
		ContentID:           row.ContentID,
		DisplayName:         deref(row.DisplayName),
		Name:                deref(row.Name),
		Bio:                 deref(row.Bio),
		Location:            deref(row.Location),
		ProfilePicURL:       deref(row.ProfilePicURL),
		SystemsInstructions: deref(row.SystemsInstructions),
		CreatedAt:           createdAt,
	}, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
