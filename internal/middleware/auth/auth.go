// Package auth resolves the owner of each API request from a bearer token.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"fintrack/internal/log"
)

// HeaderUserID names the owner directly when header identity is allowed.
const HeaderUserID = "X-User-ID"

var (
	ErrMissingIdentity = errors.New("authentication credentials were not provided")
	ErrInvalidToken    = errors.New("invalid token")
)

type ownerKey struct{}

// Config holds authentication configuration.
type Config struct {
	// Secret signs and verifies HS256 tokens.
	Secret []byte
	// Issuer, when set, must match the token's iss claim.
	Issuer string
	// AllowHeaderIdentity accepts X-User-ID when no bearer token is sent.
	// Intended for local development behind a trusted gateway.
	AllowHeaderIdentity bool
}

// Authenticator verifies tokens and stores the owner in the request context.
type Authenticator struct {
	config Config
	parser *jwt.Parser
}

func New(config Config) *Authenticator {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}
	return &Authenticator{config: config, parser: jwt.NewParser(opts...)}
}

// Owner extracts the request's owner ID.
func (a *Authenticator) Owner(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		if a.config.AllowHeaderIdentity {
			if id := strings.TrimSpace(r.Header.Get(HeaderUserID)); id != "" {
				return id, nil
			}
		}
		return "", ErrMissingIdentity
	}

	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return "", fmt.Errorf("%w: expected a bearer token", ErrInvalidToken)
	}
	if len(a.config.Secret) == 0 {
		return "", fmt.Errorf("%w: token authentication is not configured", ErrInvalidToken)
	}

	claims := &jwt.RegisteredClaims{}
	_, err := a.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return a.config.Secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}

// Middleware rejects requests without a valid identity through onError and
// passes the rest on with the owner in their context.
func (a *Authenticator) Middleware(onError func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			owner, err := a.Owner(r)
			if err != nil {
				slog.WarnContext(r.Context(), "Request not authenticated",
					log.FieldComponent, log.ComponentAuth,
					log.FieldPath, r.URL.Path,
					log.FieldError, err)
				onError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithOwner(r.Context(), owner)))
		})
	}
}

// WithOwner returns a context carrying owner, also tagging its log records.
func WithOwner(ctx context.Context, owner string) context.Context {
	ctx = context.WithValue(ctx, ownerKey{}, owner)
	return log.WithAttrs(ctx, slog.String(log.FieldOwnerID, owner))
}

// OwnerFrom returns the owner stored by the middleware.
func OwnerFrom(ctx context.Context) (string, bool) {
	owner, ok := ctx.Value(ownerKey{}).(string)
	return owner, ok && owner != ""
}

// IssueToken signs an HS256 token for owner valid for ttl.
func IssueToken(secret []byte, issuer, owner string, ttl time.Duration, now time.Time) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("signing secret is empty")
	}
	if owner == "" {
		return "", errors.New("owner is required")
	}
	claims := jwt.RegisteredClaims{
		Subject:   owner,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
