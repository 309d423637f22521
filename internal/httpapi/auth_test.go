package httpapi

import (
	"testing"
	"time"

	"medipos/internal/domain"
)

func newTestAuth(t *testing.T) *AuthManager {
	t.Helper()
	auth, err := NewAuthManager("test-secret-key-that-is-long-enough", "apotheke", time.Hour)
	if err != nil {
		t.Fatalf("auth manager: %v", err)
	}
	return auth
}

func TestLoginAcceptsStorePassword(t *testing.T) {
	auth := newTestAuth(t)

	resp, err := auth.Login(domain.LoginRequest{Password: "apotheke"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if resp.AccessToken == "" {
		t.Fatalf("expected access token")
	}

	actor, err := auth.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if actor.Subject != "operator" {
		t.Fatalf("unexpected subject %q", actor.Subject)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	auth := newTestAuth(t)
	if _, err := auth.Login(domain.LoginRequest{Password: "wrong"}); err == nil {
		t.Fatalf("expected login failure")
	}
	if _, err := auth.Login(domain.LoginRequest{Password: ""}); err == nil {
		t.Fatalf("expected empty password rejection")
	}
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	auth := newTestAuth(t)
	if _, err := auth.ParseToken("not-a-token"); err == nil {
		t.Fatalf("expected parse failure")
	}
}

func TestParseTokenRejectsForeignSecret(t *testing.T) {
	auth := newTestAuth(t)
	other, err := NewAuthManager("another-secret-key-that-is-long-too", "apotheke", time.Hour)
	if err != nil {
		t.Fatalf("auth manager: %v", err)
	}
	resp, err := other.Login(domain.LoginRequest{Password: "apotheke"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := auth.ParseToken(resp.AccessToken); err == nil {
		t.Fatalf("expected token signed with a different secret to be rejected")
	}
}

func TestNewAuthManagerRequiresPassword(t *testing.T) {
	if _, err := NewAuthManager("secret", "   ", time.Hour); err == nil {
		t.Fatalf("expected empty store password rejection")
	}
}
