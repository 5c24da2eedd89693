package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/digitalbuho/buho/internal/models"
	"github.com/golang-jwt/jwt"
	"golang.org/x/crypto/bcrypt"
)

// Token types carried in the token_type claim
const (
	AccessToken  = "access"
	RefreshToken = "refresh"
)

var (
	// ErrInvalidToken is returned for tokens that fail to parse or verify
	ErrInvalidToken = errors.New("invalid token")
	// ErrWrongTokenType is returned when a refresh token is used as access or vice versa
	ErrWrongTokenType = errors.New("wrong token type")
)

// Claims is the payload of both access and refresh tokens
type Claims struct {
	UserID      int64    `json:"user_id"`
	Email       string   `json:"email"`
	Username    string   `json:"username,omitempty"`
	Roles       []string `json:"roles"`
	IsStaff     bool     `json:"is_staff"`
	IsSuperuser bool     `json:"is_superuser"`
	TokenType   string   `json:"token_type"`
	jwt.StandardClaims
}

// CanAdminister reports whether the claims grant access to the admin dashboard
func (c Claims) CanAdminister() bool {
	return c.IsStaff || c.IsSuperuser
}

// ClaimsFor builds the claims describing a user
func ClaimsFor(u models.User) Claims {
	roles := make([]string, len(u.Roles))
	for i, r := range u.Roles {
		roles[i] = r.Name
	}
	return Claims{
		UserID:      u.ID,
		Email:       u.Email,
		Username:    u.Username,
		Roles:       roles,
		IsStaff:     u.IsStaff,
		IsSuperuser: u.IsSuperuser,
	}
}

// Pair is an access/refresh token pair as returned by the token endpoint
type Pair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// Manager issues and verifies HS256 tokens
type Manager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewManager creates a token manager
func NewManager(secret string, accessTTL, refreshTTL time.Duration) *Manager {
	return &Manager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// Issue signs a fresh access/refresh pair for the user
func (m *Manager) Issue(u models.User) (Pair, error) {
	access, err := m.sign(ClaimsFor(u), AccessToken, m.accessTTL)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := m.sign(ClaimsFor(u), RefreshToken, m.refreshTTL)
	if err != nil {
		return Pair{}, err
	}
	return Pair{Access: access, Refresh: refresh}, nil
}

// Refresh exchanges a valid refresh token for a new access token
func (m *Manager) Refresh(refresh string) (string, error) {
	claims, err := m.Parse(refresh, RefreshToken)
	if err != nil {
		return "", err
	}
	return m.sign(*claims, AccessToken, m.accessTTL)
}

func (m *Manager) sign(c Claims, tokenType string, ttl time.Duration) (string, error) {
	now := m.now()
	c.TokenType = tokenType
	c.StandardClaims = jwt.StandardClaims{
		Subject:   fmt.Sprint(c.UserID),
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(m.secret)
}

// Parse verifies a token and checks its type
func (m *Manager) Parse(token, tokenType string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != tokenType {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}

// DecodeUnverified reads the claims of a token without checking its signature.
// The front end uses it to show who is signed in.
func DecodeUnverified(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

// Expired reports whether the claims' expiry lies in the past
func (c Claims) Expired(now time.Time) bool {
	return c.ExpiresAt != 0 && now.Unix() > c.ExpiresAt
}

// HashPassword hashes a password with bcrypt's default cost
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the hash
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
