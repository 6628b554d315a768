package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/profiledoc/profiledoc/internal/common"
)

// Claims carries the standard registered claims plus the user identity
// embedded in every token.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// TokenManager mints and verifies signed access and refresh tokens. The two
// token classes use distinct symmetric secrets, so a refresh token never
// verifies as an access token and vice versa.
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	method        jwt.SigningMethod
}

// NewTokenManager constructs a TokenManager. algorithm selects the HMAC
// signing method by name (HS256, HS384, HS512); unknown names fall back
// to HS256.
func NewTokenManager(accessSecret, refreshSecret string, algorithm string) *TokenManager {
	method := jwt.GetSigningMethod(algorithm)
	if method == nil {
		method = jwt.SigningMethodHS256
	}
	return &TokenManager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		method:        method,
	}
}

// CreateAccessToken signs a short-lived access token for the given user.
func (m *TokenManager) CreateAccessToken(userID, email string, ttl time.Duration) (string, error) {
	return m.create(userID, email, ttl, m.accessSecret)
}

// CreateRefreshToken signs a long-lived refresh token for the given user.
func (m *TokenManager) CreateRefreshToken(userID, email string, ttl time.Duration) (string, error) {
	return m.create(userID, email, ttl, m.refreshSecret)
}

func (m *TokenManager) create(userID, email string, ttl time.Duration, secret []byte) (string, error) {
	// random jti keeps two tokens minted within the same second distinct
	jti, err := common.MakeRandHexString(16)
	if err != nil {
		return "", err
	}

	now := time.Now()
	token := jwt.NewWithClaims(m.method, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID: userID,
		Email:  email,
	})
	return token.SignedString(secret)
}

// DecodeAccessToken verifies an access token and returns its claims.
// It fails with common.ErrTokenExpired when the expiry claim has passed
// and common.ErrInvalidToken when the signature or structure is bad.
func (m *TokenManager) DecodeAccessToken(tokenString string) (*Claims, error) {
	return m.decode(tokenString, m.accessSecret)
}

// DecodeRefreshToken verifies a refresh token and returns its claims.
// Failure modes mirror DecodeAccessToken.
func (m *TokenManager) DecodeRefreshToken(tokenString string) (*Claims, error) {
	return m.decode(tokenString, m.refreshSecret)
}

// VerifyAccessToken checks an access token and discards its claims.
func (m *TokenManager) VerifyAccessToken(tokenString string) error {
	_, err := m.DecodeAccessToken(tokenString)
	return err
}

func (m *TokenManager) decode(tokenString string, secret []byte) (*Claims, error) {
	claims := &Claims{}

	// No leeway: expiry is compared strictly against the verification-time clock.
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{m.method.Alg()}))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}
	if !token.Valid {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
