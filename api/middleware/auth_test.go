package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	pkgAuth "github.com/partnerly/dispatch-backend/pkg/auth"
	"github.com/partnerly/dispatch-backend/pkg/config"
	"github.com/partnerly/dispatch-backend/pkg/enums"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "dispatch-test",
		ExpirationMinutes: 60,
		ServiceToken:      "internal-token",
	}
}

func TestAuthSeedsClaimsIntoContext(t *testing.T) {
	cfg := testJWTConfig()
	userID := uuid.New()
	partnerID := uuid.New()
	signed, err := pkgAuth.MintAccessToken(cfg, time.Now(), pkgAuth.AccessTokenPayload{
		UserID:    userID,
		PartnerID: &partnerID,
		Role:      enums.RolePartner,
	})
	if err != nil {
		t.Fatalf("MintAccessToken: %v", err)
	}

	var seen struct {
		userID, role, partnerID string
	}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen.userID = UserIDFromContext(r.Context())
		seen.role = RoleFromContext(r.Context())
		seen.partnerID = PartnerIDFromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	resp := httptest.NewRecorder()
	Auth(cfg, nil)(next).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if seen.userID != userID.String() {
		t.Fatalf("user id not seeded: %q", seen.userID)
	}
	if seen.role != string(enums.RolePartner) {
		t.Fatalf("role not seeded: %q", seen.role)
	}
	if seen.partnerID != partnerID.String() {
		t.Fatalf("partner id not seeded: %q", seen.partnerID)
	}
}

func TestAuthRejectsMissingToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := httptest.NewRecorder()
	called := false
	Auth(testJWTConfig(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
	if called {
		t.Fatal("handler must not run without credentials")
	}
}

func TestAuthRejectsTamperedToken(t *testing.T) {
	cfg := testJWTConfig()
	other := cfg
	other.Secret = "different-secret"
	signed, err := pkgAuth.MintAccessToken(other, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("MintAccessToken: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	resp := httptest.NewRecorder()
	Auth(cfg, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestServiceAuthAcceptsConfiguredToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/internal/v1/sla/sweep", nil)
	req.Header.Set("Authorization", "Bearer internal-token")
	resp := httptest.NewRecorder()

	var role string
	ServiceAuth(testJWTConfig(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role = RoleFromContext(r.Context())
	})).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if role != "service" {
		t.Fatalf("expected service role, got %q", role)
	}
}

func TestServiceAuthRejectsWrongToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/internal/v1/sla/sweep", nil)
	req.Header.Set("Authorization", "Bearer guess")
	resp := httptest.NewRecorder()

	ServiceAuth(testJWTConfig(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestServiceAuthRejectsWhenUnconfigured(t *testing.T) {
	cfg := testJWTConfig()
	cfg.ServiceToken = ""

	req := httptest.NewRequest(http.MethodPost, "/api/internal/v1/sla/sweep", nil)
	req.Header.Set("Authorization", "Bearer internal-token")
	resp := httptest.NewRecorder()

	ServiceAuth(cfg, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}
