// Package credentials persists users and checks their passwords.
package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"insightportal/internal/apperr"
	"insightportal/internal/models"
	"insightportal/internal/storage"
)

// Store reads and writes the users table.
type Store struct {
	db     *sqlx.DB
	cost   int
	logger *zap.Logger

	dummyOnce sync.Once
	dummyHash []byte
}

// NewStore builds a store hashing with the given bcrypt cost. Costs outside
// bcrypt's range fall back to bcrypt.DefaultCost.
func NewStore(db *sqlx.DB, cost int, logger *zap.Logger) *Store {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, cost: cost, logger: logger}
}

// Register hashes password and inserts a new user. The UNIQUE index on
// username decides duplicates, so concurrent registrations of one name leave
// exactly one row.
func (s *Store) Register(ctx context.Context, username, password string, role models.Role) (*models.User, error) {
	username = normalizeUsername(username)
	if username == "" || strings.TrimSpace(password) == "" {
		return nil, apperr.New(apperr.CodeValidation, "username and password are required")
	}
	parsed, ok := models.ParseRole(string(role))
	if !ok {
		return nil, apperr.Newf(apperr.CodeValidation, "unknown role %q", role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeValidation, err, "hash password")
	}
	return s.insert(ctx, username, string(hash), parsed)
}

func (s *Store) insert(ctx context.Context, username, hash string, role models.Role) (*models.User, error) {
	now := time.Now().UTC()
	id, err := storage.InsertID(ctx, s.db,
		`INSERT INTO users (username, password_hash, role, created_at) VALUES (?, ?, ?, ?)`,
		username, hash, role, now,
	)
	if err != nil {
		if storage.IsUniqueViolation(err) {
			return nil, apperr.Newf(apperr.CodeDuplicateUser, "user %q already exists", username)
		}
		return nil, apperr.Wrap(apperr.CodeStorageUnavailable, err, "create user")
	}
	return &models.User{ID: id, Username: username, PasswordHash: hash, Role: role, CreatedAt: now}, nil
}

// Verify reports whether password matches the stored hash for username.
// Unknown users still pay for one bcrypt comparison so response time does not
// reveal whether the name exists.
func (s *Store) Verify(ctx context.Context, username, password string) (bool, error) {
	user, err := s.GetUser(ctx, username)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))
			return false, nil
		}
		return false, err
	}
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil, nil
}

// Authenticate returns the user when the credentials match. Every mismatch,
// whether username or password, yields apperr.ErrInvalidCredentials.
func (s *Store) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.GetUser(ctx, username)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))
			return nil, apperr.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperr.ErrInvalidCredentials
	}
	return user, nil
}

// GetRole returns the role stored for username.
func (s *Store) GetRole(ctx context.Context, username string) (models.Role, error) {
	username = normalizeUsername(username)
	var role models.Role
	err := s.db.GetContext(ctx, &role, s.db.Rebind(`SELECT role FROM users WHERE username = ?`), username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", apperr.Newf(apperr.CodeNotFound, "user %q not found", username)
		}
		return "", apperr.Wrap(apperr.CodeStorageUnavailable, err, "query role")
	}
	return role, nil
}

// GetUser loads the full user row.
func (s *Store) GetUser(ctx context.Context, username string) (*models.User, error) {
	username = normalizeUsername(username)
	var user models.User
	err := s.db.GetContext(ctx, &user,
		s.db.Rebind(`SELECT id, username, password_hash, role, created_at FROM users WHERE username = ?`),
		username,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.Newf(apperr.CodeNotFound, "user %q not found", username)
		}
		return nil, apperr.Wrap(apperr.CodeStorageUnavailable, err, "query user")
	}
	return &user, nil
}

// normalizeUsername is applied on every write and lookup so a name stored as
// "carol" is found as " carol " too.
func normalizeUsername(username string) string {
	return strings.TrimSpace(username)
}

func (s *Store) dummy() []byte {
	s.dummyOnce.Do(func() {
		hash, err := bcrypt.GenerateFromPassword([]byte(fmt.Sprintf("dummy-%d", time.Now().UnixNano())), s.cost)
		if err != nil {
			s.logger.Error("generate dummy hash", zap.Error(err))
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}
