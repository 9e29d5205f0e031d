package auth

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"insightportal/internal/apperr"
	"insightportal/internal/models"
	"insightportal/internal/redis"
)

const redisTokenPrefix = "auth:token:"

var (
	ErrTokenRequired = errors.New("token required")
	ErrInvalidToken  = errors.New("invalid token")
	ErrTokenExpired  = errors.New("token expired")
)

// Service issues, validates, and revokes login tokens and turns them into sessions.
type Service struct {
	db             *sqlx.DB
	cache          *redis.Client
	logger         *zap.Logger
	tokenTTL       time.Duration
	cookieName     string
	headerName     string
	csrfCookieName string
	csrfHeaderName string
}

// NewService constructs an auth service with the supplied token lifetime.
// cache may be nil, in which case every lookup goes to the database.
func NewService(db *sqlx.DB, cache *redis.Client, ttl time.Duration, logger *zap.Logger) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		db:             db,
		cache:          cache,
		logger:         logger,
		tokenTTL:       ttl,
		cookieName:     "auth_token",
		headerName:     "Authorization",
		csrfCookieName: "csrf_token",
		csrfHeaderName: "X-CSRF-Token",
	}
}

type cachedSession struct {
	UserID    int64       `json:"user_id"`
	Username  string      `json:"username"`
	Role      models.Role `json:"role"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// IssueToken mints a new random token for the user and persists it.
func (s *Service) IssueToken(ctx context.Context, user *models.User) (string, error) {
	if user == nil || user.ID <= 0 {
		return "", errors.New("invalid user id")
	}
	now := time.Now().UTC()
	expiresAt := now.Add(s.tokenTTL)
	var lastErr error
	for i := 0; i < 5; i++ {
		token, err := generateToken()
		if err != nil {
			return "", err
		}
		_, err = s.db.ExecContext(ctx,
			s.db.Rebind(`INSERT INTO user_tokens (token, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`),
			token, user.ID, now, expiresAt,
		)
		if err == nil {
			s.cacheSession(ctx, token, cachedSession{
				UserID:    user.ID,
				Username:  user.Username,
				Role:      user.Role,
				ExpiresAt: expiresAt,
			})
			return token, nil
		}
		lastErr = err
	}
	return "", apperr.Wrap(apperr.CodeStorageUnavailable, lastErr, "could not issue token")
}

// NewCSRFToken returns a random token used for CSRF protection.
func (s *Service) NewCSRFToken() (string, error) {
	return generateToken()
}

// ValidateToken verifies the token exists and has not expired, returning an
// authenticated session for its owner.
func (s *Service) ValidateToken(ctx context.Context, authToken string) (*models.Session, error) {
	if authToken == "" {
		return nil, ErrTokenRequired
	}
	if cached, ok := s.cachedSession(ctx, authToken); ok {
		if time.Now().UTC().Before(cached.ExpiresAt) {
			session := &models.Session{}
			session.Authenticate(cached.UserID, cached.Username, cached.Role, authToken)
			return session, nil
		}
	}

	var row struct {
		UserID    int64       `db:"user_id"`
		Username  string      `db:"username"`
		Role      models.Role `db:"role"`
		ExpiresAt time.Time   `db:"expires_at"`
	}
	err := s.db.GetContext(ctx, &row, s.db.Rebind(
		`SELECT t.user_id, u.username, u.role, t.expires_at
		 FROM user_tokens t JOIN users u ON u.id = t.user_id
		 WHERE t.token = ?`), authToken)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidToken
		}
		return nil, apperr.Wrap(apperr.CodeStorageUnavailable, err, "lookup token")
	}
	if !time.Now().UTC().Before(row.ExpiresAt) {
		_ = s.RevokeToken(ctx, authToken)
		return nil, ErrTokenExpired
	}
	s.cacheSession(ctx, authToken, cachedSession{
		UserID:    row.UserID,
		Username:  row.Username,
		Role:      row.Role,
		ExpiresAt: row.ExpiresAt,
	})
	session := &models.Session{}
	session.Authenticate(row.UserID, row.Username, row.Role, authToken)
	return session, nil
}

// RevokeToken deletes a single token. Chat history tied to it goes with it.
func (s *Service) RevokeToken(ctx context.Context, authToken string) error {
	if authToken == "" {
		return nil
	}
	s.uncache(ctx, authToken)
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM user_tokens WHERE token = ?`), authToken); err != nil {
		return apperr.Wrap(apperr.CodeStorageUnavailable, err, "revoke token")
	}
	return nil
}

// RevokeUserTokens removes all tokens belonging to the user and reports how
// many were deleted.
func (s *Service) RevokeUserTokens(ctx context.Context, userID int64) (int64, error) {
	if userID <= 0 {
		return 0, nil
	}
	if s.cache != nil {
		var tokens []string
		if err := s.db.SelectContext(ctx, &tokens, s.db.Rebind(`SELECT token FROM user_tokens WHERE user_id = ?`), userID); err != nil {
			return 0, apperr.Wrap(apperr.CodeStorageUnavailable, err, "list user tokens")
		}
		s.uncache(ctx, tokens...)
	}
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM user_tokens WHERE user_id = ?`), userID)
	if err != nil {
		return 0, apperr.Wrap(apperr.CodeStorageUnavailable, err, "revoke user tokens")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, apperr.Wrap(apperr.CodeStorageUnavailable, err, "rows affected")
	}
	return n, nil
}

// PurgeExpired deletes every expired token and reports how many were removed.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM user_tokens WHERE expires_at <= ?`), time.Now().UTC())
	if err != nil {
		return 0, apperr.Wrap(apperr.CodeStorageUnavailable, err, "purge expired tokens")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, apperr.Wrap(apperr.CodeStorageUnavailable, err, "rows affected")
	}
	return n, nil
}

func (s *Service) cacheSession(ctx context.Context, token string, cs cachedSession) {
	if s.cache == nil {
		return
	}
	ttl := time.Until(cs.ExpiresAt)
	if ttl <= 0 {
		return
	}
	payload, err := json.Marshal(cs)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, redisTokenPrefix+token, payload, ttl); err != nil {
		s.logger.Warn("cache token", zap.Error(err))
	}
}

func (s *Service) cachedSession(ctx context.Context, token string) (cachedSession, bool) {
	var cs cachedSession
	if s.cache == nil {
		return cs, false
	}
	raw, err := s.cache.Get(ctx, redisTokenPrefix+token)
	if err != nil {
		if !errors.Is(err, redis.ErrCacheMiss) {
			s.logger.Warn("read cached token", zap.Error(err))
		}
		return cs, false
	}
	if err := json.Unmarshal([]byte(raw), &cs); err != nil {
		return cs, false
	}
	return cs, true
}

func (s *Service) uncache(ctx context.Context, tokens ...string) {
	if s.cache == nil || len(tokens) == 0 {
		return
	}
	keys := make([]string, 0, len(tokens))
	for _, t := range tokens {
		keys = append(keys, redisTokenPrefix+t)
	}
	if err := s.cache.Del(ctx, keys...); err != nil {
		s.logger.Warn("drop cached tokens", zap.Error(err))
	}
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// AuthCookieName returns the cookie name storing auth tokens.
func (s *Service) AuthCookieName() string {
	return s.cookieName
}

// CSRFCookieName returns the cookie used for CSRF tokens.
func (s *Service) CSRFCookieName() string {
	return s.csrfCookieName
}

// CSRFHeaderName returns the CSRF header name.
func (s *Service) CSRFHeaderName() string {
	return s.csrfHeaderName
}

// TokenTTL reports the configured token lifetime.
func (s *Service) TokenTTL() time.Duration {
	return s.tokenTTL
}
