package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/digitalbuho/buho/internal/models"
)

func testUser() models.User {
	return models.User{
		ID:      7,
		Email:   "ana@buho.io",
		IsStaff: true,
		Roles:   []models.Role{{ID: 1, Name: "admin"}},
	}
}

func TestIssueAndParse(t *testing.T) {
	m := NewManager("secret", time.Minute, time.Hour)

	pair, err := m.Issue(testUser())
	if err != nil {
		t.Fatal(err)
	}

	claims, err := m.Parse(pair.Access, AccessToken)
	if err != nil {
		t.Fatal(err)
	}
	if claims.UserID != 7 || claims.Email != "ana@buho.io" || !claims.IsStaff || claims.Roles[0] != "admin" {
		t.Errorf("claims = %+v", claims)
	}
	if !claims.CanAdminister() {
		t.Error("staff should administer")
	}

	if _, err := m.Parse(pair.Refresh, AccessToken); !errors.Is(err, ErrWrongTokenType) {
		t.Errorf("refresh used as access: %v", err)
	}
	if _, err := NewManager("other", time.Minute, time.Hour).Parse(pair.Access, AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("wrong secret: %v", err)
	}

	access, err := m.Refresh(pair.Refresh)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Parse(access, AccessToken); err != nil {
		t.Errorf("refreshed access: %v", err)
	}
	if _, err := m.Refresh(pair.Access); err == nil {
		t.Error("access token accepted as refresh")
	}
}

func TestExpiredToken(t *testing.T) {
	m := NewManager("secret", time.Minute, time.Hour)
	m.now = func() time.Time { return time.Now().Add(-2 * time.Minute) }

	pair, err := m.Issue(testUser())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Parse(pair.Access, AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired token err = %v", err)
	}

	claims, err := DecodeUnverified(pair.Access)
	if err != nil {
		t.Fatal(err)
	}
	if !claims.Expired(time.Now()) || claims.Email != "ana@buho.io" {
		t.Errorf("decoded = %+v", claims)
	}
	if _, err := DecodeUnverified("not-a-token"); err == nil {
		t.Error("garbage decoded")
	}
}

func TestPasswords(t *testing.T) {
	hash, err := HashPassword("hunter22")
	if err != nil {
		t.Fatal(err)
	}
	if !CheckPassword(hash, "hunter22") || CheckPassword(hash, "hunter23") {
		t.Error("CheckPassword mismatch")
	}
}

func TestMiddleware(t *testing.T) {
	m := NewManager("secret", time.Minute, time.Hour)
	pair, _ := m.Issue(testUser())

	var seen *Claims
	h := m.Middleware(func(w http.ResponseWriter, r *http.Request, err error) {
		w.WriteHeader(http.StatusUnauthorized)
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
	}))

	tests := []struct {
		name   string
		header string
		code   int
		claims bool
	}{
		{"anonymous", "", http.StatusOK, false},
		{"valid", "Bearer " + pair.Access, http.StatusOK, true},
		{"lowercase scheme", "bearer " + pair.Access, http.StatusOK, true},
		{"refresh token", "Bearer " + pair.Refresh, http.StatusUnauthorized, false},
		{"garbage", "Bearer abc", http.StatusUnauthorized, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.code {
				t.Errorf("code = %d, want %d", rec.Code, tt.code)
			}
			if (seen != nil) != tt.claims {
				t.Errorf("claims present = %v, want %v", seen != nil, tt.claims)
			}
		})
	}
}
