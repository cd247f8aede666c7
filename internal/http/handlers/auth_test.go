package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/trungnamdev/authapi/internal/domain/user"
	"github.com/trungnamdev/authapi/internal/http/handlers"
	"github.com/trungnamdev/authapi/internal/repo/postgres"
	"github.com/trungnamdev/authapi/internal/security"
)

// sentinel helpers so the tables read closer to what the store reports

func postgresNotFound() error { return postgres.ErrUserNotFound }

func postgresEmailTaken() error { return postgres.ErrEmailTaken }

// keep gin quiet during tests
func init() {
	gin.SetMode(gin.TestMode)
}

// fake credential store with fn fields, tailored to the handlers' small interfaces

type fakeUserStore struct {
	getFn       func(ctx context.Context, email string) (user.User, error)
	createFn    func(ctx context.Context, email, password string) (user.User, error)
	createCalls int
}

func (f *fakeUserStore) GetByEmail(ctx context.Context, email string) (user.User, error) {
	if f.getFn != nil {
		return f.getFn(ctx, email)
	}

	return user.User{}, nil
}

func (f *fakeUserStore) Create(ctx context.Context, email, password string) (user.User, error) {
	f.createCalls++

	if f.createFn != nil {
		return f.createFn(ctx, email, password)
	}

	return user.User{Email: user.NormalizeEmail(email)}, nil
}

type fakeIssuer struct {
	issueFn func(subject, email string, claims []user.Claim) (string, time.Time, error)
}

func (f *fakeIssuer) Issue(subject, email string, claims []user.Claim) (string, time.Time, error) {
	if f.issueFn != nil {
		return f.issueFn(subject, email, claims)
	}

	return "token-abc", time.Now().UTC().Add(time.Hour), nil
}

type errorBody struct {
	Errors []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"errors"`
}

func setupAuthRouter(store *fakeUserStore, issuer *fakeIssuer) *gin.Engine {
	h := handlers.NewAuthHandler(store, store, issuer, nil)

	r := gin.New()
	r.POST("/api/auth/login", h.Login)
	r.POST("/api/auth/register", h.Register)

	return r
}

func doJSON(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

func mustHash(t *testing.T, plain string) string {
	t.Helper()

	hash, err := security.HashPassword(plain)

	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}

	return hash
}

func TestLoginHandler(t *testing.T) {
	storedHash := mustHash(t, "secret1")

	storedUser := user.User{
		ID:           "user-1",
		Email:        "sam@example.com",
		PasswordHash: storedHash,
		Claims:       []user.Claim{{Type: "role", Value: "admin"}},
	}

	tests := []struct {
		name       string
		body       string
		store      *fakeUserStore
		issuer     *fakeIssuer
		wantStatus int
	}{
		{
			name: "success",
			body: `{"email":"sam@example.com","password":"secret1"}`,
			store: &fakeUserStore{
				getFn: func(ctx context.Context, email string) (user.User, error) {
					return storedUser, nil
				},
			},
			issuer:     &fakeIssuer{},
			wantStatus: http.StatusOK,
		},
		{
			name: "unknown email is a validation failure",
			body: `{"email":"nobody@example.com","password":"secret1"}`,
			store: &fakeUserStore{
				getFn: func(ctx context.Context, email string) (user.User, error) {
					return user.User{}, postgresNotFound()
				},
			},
			issuer:     &fakeIssuer{},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "wrong password is a validation failure",
			body: `{"email":"sam@example.com","password":"not-the-one"}`,
			store: &fakeUserStore{
				getFn: func(ctx context.Context, email string) (user.User, error) {
					return storedUser, nil
				},
			},
			issuer:     &fakeIssuer{},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing fields short-circuit before the store",
			body:       `{"email":"","password":""}`,
			store:      &fakeUserStore{},
			issuer:     &fakeIssuer{},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "store failure is unclassified",
			body: `{"email":"sam@example.com","password":"secret1"}`,
			store: &fakeUserStore{
				getFn: func(ctx context.Context, email string) (user.User, error) {
					return user.User{}, errors.New("connection refused")
				},
			},
			issuer:     &fakeIssuer{},
			wantStatus: http.StatusForbidden,
		},
		{
			name: "issuer failure is unclassified",
			body: `{"email":"sam@example.com","password":"secret1"}`,
			store: &fakeUserStore{
				getFn: func(ctx context.Context, email string) (user.User, error) {
					return storedUser, nil
				},
			},
			issuer: &fakeIssuer{
				issueFn: func(subject, email string, claims []user.Claim) (string, time.Time, error) {
					return "", time.Time{}, errors.New("signing broke")
				},
			},
			wantStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := setupAuthRouter(tt.store, tt.issuer)

			w := doJSON(r, http.MethodPost, "/api/auth/login", tt.body)

			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatus, w.Body.String())
			}

			if tt.store.createCalls != 0 {
				t.Fatalf("login must never mutate the store, got %d create calls", tt.store.createCalls)
			}
		})
	}
}

func TestLoginSuccessResponseShape(t *testing.T) {
	expiresAt := time.Now().UTC().Add(45 * time.Minute).Truncate(time.Second)

	store := &fakeUserStore{
		getFn: func(ctx context.Context, email string) (user.User, error) {
			return user.User{ID: "user-1", Email: "sam@example.com", PasswordHash: mustHash(t, "secret1")}, nil
		},
	}

	issuer := &fakeIssuer{
		issueFn: func(subject, email string, claims []user.Claim) (string, time.Time, error) {
			if subject != "user-1" || email != "sam@example.com" {
				t.Fatalf("issuer got subject=%q email=%q", subject, email)
			}
			return "signed-token", expiresAt, nil
		},
	}

	w := doJSON(setupAuthRouter(store, issuer), http.MethodPost, "/api/auth/login",
		`{"email":"sam@example.com","password":"secret1"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	var resp handlers.LoginResponse

	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v body=%s", err, w.Body.String())
	}

	if resp.Token != "signed-token" {
		t.Fatalf("token mismatch: %q", resp.Token)
	}

	if !resp.ExpiresAt.Equal(expiresAt) {
		t.Fatalf("expiresAt mismatch: got %v want %v", resp.ExpiresAt, expiresAt)
	}
}

// the generic message must be identical for unknown email and wrong
// password so responses cannot be used to enumerate accounts
func TestLoginDoesNotRevealAccountExistence(t *testing.T) {
	storedUser := user.User{
		ID:           "user-1",
		Email:        "known@example.com",
		PasswordHash: mustHash(t, "secret1"),
	}

	store := &fakeUserStore{
		getFn: func(ctx context.Context, email string) (user.User, error) {
			if user.NormalizeEmail(email) == "known@example.com" {
				return storedUser, nil
			}
			return user.User{}, postgresNotFound()
		},
	}

	r := setupAuthRouter(store, &fakeIssuer{})

	wUnknown := doJSON(r, http.MethodPost, "/api/auth/login", `{"email":"ghost@example.com","password":"secret1"}`)
	wWrongPw := doJSON(r, http.MethodPost, "/api/auth/login", `{"email":"known@example.com","password":"wrong-password"}`)

	if wUnknown.Code != http.StatusBadRequest || wWrongPw.Code != http.StatusBadRequest {
		t.Fatalf("want 400/400, got %d/%d", wUnknown.Code, wWrongPw.Code)
	}

	var unknownBody, wrongPwBody errorBody
	mustUnmarshal(t, wUnknown, &unknownBody)
	mustUnmarshal(t, wWrongPw, &wrongPwBody)

	if len(unknownBody.Errors) != 1 || len(wrongPwBody.Errors) != 1 {
		t.Fatalf("expected one error entry each: %+v / %+v", unknownBody, wrongPwBody)
	}

	if unknownBody.Errors[0].Message != wrongPwBody.Errors[0].Message {
		t.Fatalf("messages differ: %q vs %q", unknownBody.Errors[0].Message, wrongPwBody.Errors[0].Message)
	}
}

func TestLoginValidationEnumeratesEveryRule(t *testing.T) {
	r := setupAuthRouter(&fakeUserStore{}, &fakeIssuer{})

	w := doJSON(r, http.MethodPost, "/api/auth/login", `{"email":"","password":"x"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	var body errorBody
	mustUnmarshal(t, w, &body)

	fields := map[string]string{}

	for _, e := range body.Errors {
		fields[e.Field] = e.Message
	}

	if msg, ok := fields["email"]; !ok || !strings.Contains(msg, "required") {
		t.Fatalf("missing email-required error: %+v", body.Errors)
	}

	if msg, ok := fields["password"]; !ok || !strings.Contains(msg, "at least 6") {
		t.Fatalf("missing password-length error: %+v", body.Errors)
	}
}

func TestLoginPasswordTooShort(t *testing.T) {
	r := setupAuthRouter(&fakeUserStore{}, &fakeIssuer{})

	w := doJSON(r, http.MethodPost, "/api/auth/login", `{"email":"a@b.com","password":"12345"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	var body errorBody
	mustUnmarshal(t, w, &body)

	if len(body.Errors) != 1 || body.Errors[0].Field != "password" {
		t.Fatalf("expected only the password rule to fail: %+v", body.Errors)
	}
}

func TestRegisterHandler(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		store      *fakeUserStore
		wantStatus int
		wantField  string
	}{
		{
			name: "success echoes the created email",
			body: `{"email":"u@test.com","password":"secret1"}`,
			store: &fakeUserStore{
				createFn: func(ctx context.Context, email, password string) (user.User, error) {
					if password != "secret1" {
						t.Fatalf("store must receive the raw password to hash, got %q", password)
					}
					return user.User{ID: "user-9", Email: user.NormalizeEmail(email)}, nil
				},
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "duplicate email",
			body: `{"email":"u@test.com","password":"secret1"}`,
			store: &fakeUserStore{
				createFn: func(ctx context.Context, email, password string) (user.User, error) {
					return user.User{}, postgresEmailTaken()
				},
			},
			wantStatus: http.StatusBadRequest,
			wantField:  "email",
		},
		{
			name:       "invalid input never reaches the store",
			body:       `{"email":"not-an-email","password":"123"}`,
			store:      &fakeUserStore{},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "store failure is unclassified",
			body: `{"email":"u@test.com","password":"secret1"}`,
			store: &fakeUserStore{
				createFn: func(ctx context.Context, email, password string) (user.User, error) {
					return user.User{}, errors.New("disk on fire")
				},
			},
			wantStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := setupAuthRouter(tt.store, &fakeIssuer{})

			w := doJSON(r, http.MethodPost, "/api/auth/register", tt.body)

			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatus, w.Body.String())
			}

			if tt.name == "invalid input never reaches the store" && tt.store.createCalls != 0 {
				t.Fatalf("validation should short-circuit the handler")
			}

			if tt.wantStatus == http.StatusOK {
				var resp handlers.RegisterResponse
				mustUnmarshal(t, w, &resp)

				if resp.Email != "u@test.com" {
					t.Fatalf("email echo mismatch: %q", resp.Email)
				}
			}

			if tt.wantField != "" {
				var body errorBody
				mustUnmarshal(t, w, &body)

				if len(body.Errors) == 0 || body.Errors[0].Field != tt.wantField {
					t.Fatalf("expected a %q field error: %+v", tt.wantField, body.Errors)
				}
			}
		})
	}
}

func mustUnmarshal[T any](t *testing.T, w *httptest.ResponseRecorder, out *T) {
	t.Helper()

	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("failed to unmarshal json: %v, body=%s", err, w.Body.String())
	}
}
