// Package services contains server-side business logic. This file implements
// UserService, which handles registration, login, logout, and issuing and
// rotating JWTs plus server-stored refresh tokens.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/profiledoc/profiledoc/internal/common"
	"github.com/profiledoc/profiledoc/internal/dbx"
	"github.com/profiledoc/profiledoc/internal/server/auth"
	"github.com/profiledoc/profiledoc/internal/server/config"
	"github.com/profiledoc/profiledoc/internal/server/models"
	"github.com/profiledoc/profiledoc/internal/server/repositories/repomanager"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// RegisterInput carries the raw registration fields. Password is consumed
// during hashing and never stored.
type RegisterInput struct {
	Email       string
	Name        string
	Surname     string
	DateOfBirth time.Time
	Password    string
}

// UserService provides authentication-related operations:
//   - Register: create users
//   - Login: verify credentials and mint tokens
//   - Authenticate: resolve an access token to a live user
//   - Logout: revoke one refresh session
//   - Refresh: rotate refresh tokens and mint new access tokens
type UserService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	tokens                       *auth.TokenManager
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *UserService {
	return &UserService{
		db:                           db,
		repomanager:                  m,
		tokens:                       auth.NewTokenManager(cfg.AccessSecretKey, cfg.RefreshSecretKey, cfg.JWTSigningAlgorithm),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
	}
}

// NormalizeEmail lowercases and trims an email address. All lookups and
// inserts go through this form, which is what makes the uniqueness check
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a new user from the given input. A known email yields
// common.ErrUserAlreadyExists; an insert race on the unique email index
// yields common.ErrUserCreateFailed.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	repo := s.repomanager.Users(s.db)

	email := NormalizeEmail(input.Email)

	_, err := repo.GetByEmail(ctx, email)
	if err == nil {
		return nil, common.ErrUserAlreadyExists
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("error checking existing user: %w", err)
	}

	user, err := models.NewUser(email, input.Name, input.Surname, input.DateOfBirth, input.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: error preparing user: %v", common.ErrorInternal, err)
	}

	created, err := repo.Create(ctx, user)
	if err != nil {
		// lost the race on the unique index between the check and the insert
		if errors.Is(err, common.ErrUserAlreadyExists) {
			return nil, common.ErrUserCreateFailed
		}
		return nil, fmt.Errorf("%w: error creating user: %v", common.ErrorPersistence, err)
	}
	return created, nil
}

// Login verifies the credentials and, on success, returns a new TokenPair.
// An unknown email and a wrong password are indistinguishable to the caller.
// The refresh token row is persisted transactionally: if it cannot be
// stored, no tokens are returned.
func (s *UserService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: error finding user: %v", common.ErrorPersistence, err)
	}

	if !user.CheckPassword(password) {
		return nil, common.ErrInvalidCredentials
	}

	var pair *TokenPair
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var genErr error
		pair, genErr = s.generateTokenPair(ctx, user.ID, user.Email, tx)
		return genErr
	}); err != nil {
		return nil, err
	}
	return pair, nil
}

// Authenticate resolves a bearer access token to the user it references.
// Token failures surface as common.ErrTokenExpired / common.ErrInvalidToken;
// a structurally valid token naming a missing account yields
// common.ErrUserNotFound.
func (s *UserService) Authenticate(ctx context.Context, accessToken string) (*models.User, error) {
	claims, err := s.tokens.DecodeAccessToken(accessToken)
	if err != nil {
		return nil, err
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: error finding user: %v", common.ErrorPersistence, err)
	}
	return user, nil
}

// Logout invalidates the given refresh token so it can no longer be
// exchanged. Repeated logouts with the same token succeed; deleting an
// absent row is not an error. Access tokens are stateless and stay valid
// until natural expiry.
func (s *UserService) Logout(ctx context.Context, refreshToken string) error {
	repo := s.repomanager.RefreshTokens(s.db)
	if err := repo.Delete(ctx, refreshToken); err != nil {
		return fmt.Errorf("error deleting refresh token: %w", err)
	}
	return nil
}

// Refresh validates a refresh token, rotates it transactionally, and returns
// a fresh TokenPair. The persisted-state check runs first: a token that was
// logged out (row deleted) fails even though its signature still verifies.
// Expired rows yield common.ErrRefreshTokenExpired.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	repo := s.repomanager.RefreshTokens(s.db)

	token, err := repo.Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}
	if token.Expires.Before(time.Now()) {
		return nil, common.ErrRefreshTokenExpired
	}

	claims, err := s.tokens.DecodeRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	var pair *TokenPair
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repoTx := s.repomanager.RefreshTokens(tx)
		if err := repoTx.Delete(ctx, refreshToken); err != nil {
			return fmt.Errorf("error deleting refresh token: %w", err)
		}
		var genErr error
		pair, genErr = s.generateTokenPair(ctx, token.UserID, claims.Email, tx)
		return genErr
	}); err != nil {
		return nil, err
	}
	return pair, nil
}

// PurgeExpiredRefreshTokens removes refresh rows whose expiry has passed.
// Intended for periodic housekeeping.
func (s *UserService) PurgeExpiredRefreshTokens(ctx context.Context) (int64, error) {
	repo := s.repomanager.RefreshTokens(s.db)
	return repo.DeleteExpired(ctx)
}

func (s *UserService) generateTokenPair(ctx context.Context, userID, email string, tx dbx.DBTX) (*TokenPair, error) {
	access, err := s.tokens.CreateAccessToken(userID, email, s.accessTokenValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refresh, err := s.tokens.CreateRefreshToken(userID, email, s.refreshTokenValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refreshRepo := s.repomanager.RefreshTokens(tx)
	if err := refreshRepo.Create(ctx, userID, refresh, s.refreshTokenValidityDuration); err != nil {
		return nil, common.ErrorInternal
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
