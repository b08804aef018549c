package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var secret = []byte("test-secret")

func token(t *testing.T, issuer, owner string, ttl time.Duration) string {
	t.Helper()
	tok, err := IssueToken(secret, issuer, owner, ttl, time.Now())
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	return tok
}

func TestOwner(t *testing.T) {
	a := New(Config{Secret: secret, Issuer: "fintrack"})
	lax := New(Config{Secret: secret, AllowHeaderIdentity: true})

	otherKey, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "u1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("other"))

	tests := []struct {
		name    string
		auth    *Authenticator
		headers map[string]string
		want    string
		wantErr error
	}{
		{"valid token", a, map[string]string{"Authorization": "Bearer " + token(t, "fintrack", "u1", time.Hour)}, "u1", nil},
		{"expired", a, map[string]string{"Authorization": "Bearer " + token(t, "fintrack", "u1", -time.Hour)}, "", ErrInvalidToken},
		{"wrong issuer", a, map[string]string{"Authorization": "Bearer " + token(t, "someone", "u1", time.Hour)}, "", ErrInvalidToken},
		{"wrong key", a, map[string]string{"Authorization": "Bearer " + otherKey}, "", ErrInvalidToken},
		{"not bearer", a, map[string]string{"Authorization": "Basic abc"}, "", ErrInvalidToken},
		{"missing", a, nil, "", ErrMissingIdentity},
		{"header identity disabled", a, map[string]string{HeaderUserID: "u2"}, "", ErrMissingIdentity},
		{"header identity allowed", lax, map[string]string{HeaderUserID: "u2"}, "u2", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			got, err := tt.auth.Owner(req)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("owner = %q, %v; want %q", got, err, tt.want)
			}
		})
	}
}

func TestMiddleware(t *testing.T) {
	a := New(Config{Secret: secret})
	var seen string
	h := a.Middleware(func(w http.ResponseWriter, _ *http.Request, err error) {
		http.Error(w, err.Error(), http.StatusUnauthorized)
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = OwnerFrom(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("code = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, "", "owner-9", time.Minute))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || seen != "owner-9" {
		t.Errorf("code = %d, owner = %q", rec.Code, seen)
	}
}

func TestIssueTokenRequiresSecretAndOwner(t *testing.T) {
	if _, err := IssueToken(nil, "", "u", time.Hour, time.Now()); err == nil {
		t.Error("expected error for empty secret")
	}
	if _, err := IssueToken(secret, "", "", time.Hour, time.Now()); err == nil {
		t.Error("expected error for empty owner")
	}
}
