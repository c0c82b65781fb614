// Package auth verifies seller bearer tokens. Issuance lives elsewhere.
package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"

	"github.com/wonny/crmgeek/backend/internal/apperr"
	"github.com/wonny/crmgeek/backend/pkg/logger"
)

// Claims is the token payload; ID is the seller id
type Claims struct {
	ID string `json:"id"`
	jwt.RegisteredClaims
}

type ctxKey struct{}

// WithSeller stores the authenticated seller id in ctx
func WithSeller(ctx context.Context, sellerID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, sellerID)
}

// SellerID returns the authenticated seller id, or ""
func SellerID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Verifier checks HS256 tokens signed with a shared secret
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

// NewVerifier creates a verifier; an empty secret rejects every token
func NewVerifier(secret string) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
	}
}

// Verify parses the token and returns the seller id
func (v *Verifier) Verify(tokenString string) (string, error) {
	if len(v.secret) == 0 {
		return "", apperr.Authorization("token verification is not configured")
	}

	claims := &Claims{}
	token, err := v.parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return "", apperr.Wrap(apperr.KindAuthorization, "invalid or expired token", err)
	}
	if strings.TrimSpace(claims.ID) == "" {
		return "", apperr.Authorization("token has no seller id")
	}
	return claims.ID, nil
}

// Sign issues a token for sellerID. Used by tests and the CLI.
func (v *Verifier) Sign(sellerID string, claims jwt.RegisteredClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{ID: sellerID, RegisteredClaims: claims})
	return token.SignedString(v.secret)
}

// Middleware rejects requests without a valid "Authorization: Bearer" token
func Middleware(v *Verifier, log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			tokenString := strings.TrimPrefix(header, "Bearer ")
			if header == "" || tokenString == header {
				reject(w, apperr.Authorization("missing bearer token"))
				return
			}

			sellerID, err := v.Verify(strings.TrimSpace(tokenString))
			if err != nil {
				log.WithError(err).WithField("path", r.URL.Path).Debug("token rejected")
				reject(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSeller(r.Context(), sellerID)))
		})
	}
}

func reject(w http.ResponseWriter, err error) {
	status, body := apperr.ToBody(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
