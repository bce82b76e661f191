package auth

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"ragaccess/internal/apperr"
	"ragaccess/internal/audit"
)

// Identity is the outcome of Authenticate: the caller context C7 uses to
// build an RBAC engine for a request (spec §4.8).
type Identity struct {
	Username string
	Roles    []string
}

// Tokens is the pair issued by Login (spec §4.8 step 3).
type Tokens struct {
	AccessToken     string
	RefreshToken    string
	ExpiresInSecs   int
}

// Service implements spec §4.8's Login, Refresh, and Authenticate
// operations. Grounded structurally on the teacher's session middleware
// shape; the JWT issuance logic itself is new since the teacher had no
// token-based auth.
type Service struct {
	store       *Store
	issuer      *TokenIssuer
	audit       *audit.Sink
	logger      *zap.Logger
	accessTTL   time.Duration
	refreshTTL  time.Duration
}

// NewService builds the auth service.
func NewService(store *Store, issuer *TokenIssuer, sink *audit.Sink, logger *zap.Logger, accessTTL, refreshTTL time.Duration) *Service {
	return &Service{store: store, issuer: issuer, audit: sink, logger: logger, accessTTL: accessTTL, refreshTTL: refreshTTL}
}

// invalidCredentialsMessage is returned verbatim for both an unknown
// username and a known username with a wrong password (spec §4.8 step 1,
// §8 Auth-uniform-error law — no user enumeration).
const invalidCredentialsMessage = "invalid username or password"

// Login verifies credentials and, on success, issues an access/refresh
// token pair (spec §4.8).
func (s *Service) Login(ctx context.Context, username, password string) (*Tokens, error) {
	user, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		s.emitAuthAttempt(username, false, "unknown_user")
		return nil, apperr.Authentication(invalidCredentialsMessage)
	}

	if !user.IsActive {
		s.emitAuthAttempt(username, false, "inactive_user")
		return nil, apperr.Authentication(invalidCredentialsMessage)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.emitAuthAttempt(username, false, "bad_password")
		return nil, apperr.Authentication(invalidCredentialsMessage)
	}

	access, err := s.issuer.Issue(user.Username, user.Roles, KindAccess, s.accessTTL)
	if err != nil {
		return nil, apperr.DependencyFatal("failed to issue access token", err)
	}
	refresh, err := s.issuer.Issue(user.Username, user.Roles, KindRefresh, s.refreshTTL)
	if err != nil {
		return nil, apperr.DependencyFatal("failed to issue refresh token", err)
	}

	s.emitAuthAttempt(username, true, "")

	return &Tokens{
		AccessToken:   access,
		RefreshToken:  refresh,
		ExpiresInSecs: int(s.accessTTL.Seconds()),
	}, nil
}

// Refresh verifies the refresh token and issues a new access token carrying
// the refresh token's own role snapshot (SPEC_FULL §D.1: no store re-read,
// no silent role upgrade — spec §4.8).
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	subject, roles, err := s.issuer.Verify(refreshToken, KindRefresh)
	if err != nil {
		return nil, apperr.Authentication("invalid or expired refresh token")
	}

	access, err := s.issuer.Issue(subject, roles, KindAccess, s.accessTTL)
	if err != nil {
		return nil, apperr.DependencyFatal("failed to issue access token", err)
	}

	return &Tokens{
		AccessToken:   access,
		ExpiresInSecs: int(s.accessTTL.Seconds()),
	}, nil
}

// Authenticate verifies an access token and produces the CallerIdentity C7
// uses to build a per-request RBAC engine (spec §4.8).
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*Identity, error) {
	subject, roles, err := s.issuer.Verify(accessToken, KindAccess)
	if err != nil {
		return nil, apperr.Authentication("invalid or expired access token")
	}
	return &Identity{Username: subject, Roles: roles}, nil
}

// HashPassword hashes a plaintext password with bcrypt for storage
// (administrative provisioning path, spec §3 User.password_hash).
func HashPassword(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (s *Service) emitAuthAttempt(username string, success bool, reason string) {
	if s.audit == nil {
		return
	}
	fields := map[string]interface{}{"success": success}
	if reason != "" {
		fields["reason"] = reason
	}
	s.audit.Emit(audit.Event{
		Kind:     audit.KindAuthAttempt,
		Username: username,
		Fields:   fields,
	})
}
