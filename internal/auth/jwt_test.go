package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/trungnamdev/authapi/internal/domain/user"
)

func newTestIssuer(ttl time.Duration) *Issuer {
	return NewIssuer("test-secret-key", "authapi-test", "authapi-clients", ttl)
}

func TestIssueAndVerify(t *testing.T) {
	issuer := newTestIssuer(30 * time.Minute)

	claims := []user.Claim{
		{Type: "role", Value: "admin"},
		{Type: "plan", Value: "pro"},
	}

	raw, expiresAt, err := issuer.Issue("user-123", "sam@example.com", claims)

	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	if strings.TrimSpace(raw) == "" {
		t.Fatalf("expected a non-empty token")
	}

	// expiry must equal issue time plus the configured TTL
	wantExpiry := time.Now().UTC().Add(30 * time.Minute)

	if diff := expiresAt.Sub(wantExpiry); diff > 2*time.Second || diff < -2*time.Second {
		t.Fatalf("expiresAt off by %v (got %v)", diff, expiresAt)
	}

	identity, err := issuer.Verify(raw)

	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	if identity.Subject != "user-123" {
		t.Fatalf("subject mismatch: got %q", identity.Subject)
	}

	if identity.Email != "sam@example.com" {
		t.Fatalf("email mismatch: got %q", identity.Email)
	}

	if identity.Claims["role"] != "admin" || identity.Claims["plan"] != "pro" {
		t.Fatalf("claims not carried: %+v", identity.Claims)
	}
}

func TestIssueEmptyClaimSet(t *testing.T) {
	issuer := newTestIssuer(5 * time.Minute)

	// an empty claim set is not rejected; the token is issued anyway
	raw, _, err := issuer.Issue("user-456", "empty@example.com", nil)

	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	identity, err := issuer.Verify(raw)

	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	if len(identity.Claims) != 0 {
		t.Fatalf("expected no custom claims, got %+v", identity.Claims)
	}
}

func TestReservedClaimTypesAreNotOverwritten(t *testing.T) {
	issuer := newTestIssuer(5 * time.Minute)

	claims := []user.Claim{
		{Type: "iss", Value: "evil-issuer"},
		{Type: "sub", Value: "someone-else"},
	}

	raw, _, err := issuer.Issue("user-789", "claims@example.com", claims)

	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	identity, err := issuer.Verify(raw)

	if err != nil {
		t.Fatalf("verify failed, issuer claim must have been kept: %v", err)
	}

	if identity.Subject != "user-789" {
		t.Fatalf("subject was overwritten: %q", identity.Subject)
	}
}

func TestVerifyRejections(t *testing.T) {
	issuer := newTestIssuer(5 * time.Minute)

	raw, _, err := issuer.Issue("user-1", "a@b.com", nil)

	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	tests := []struct {
		name     string
		verifier *Issuer
		token    string
	}{
		{
			name:     "wrong secret",
			verifier: NewIssuer("another-secret", "authapi-test", "authapi-clients", 5*time.Minute),
			token:    raw,
		},
		{
			name:     "wrong issuer",
			verifier: NewIssuer("test-secret-key", "someone-else", "authapi-clients", 5*time.Minute),
			token:    raw,
		},
		{
			name:     "wrong audience",
			verifier: NewIssuer("test-secret-key", "authapi-test", "other-audience", 5*time.Minute),
			token:    raw,
		},
		{
			name:     "garbage token",
			verifier: issuer,
			token:    "not.a.token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.verifier.Verify(tt.token)

			if err == nil {
				t.Fatalf("expected verification to fail")
			}
		})
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	expiredIssuer := newTestIssuer(-1 * time.Minute)

	raw, _, err := expiredIssuer.Issue("user-1", "a@b.com", nil)

	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	_, err = newTestIssuer(5 * time.Minute).Verify(raw)

	if err == nil {
		t.Fatalf("expected expired token to fail verification")
	}
}
