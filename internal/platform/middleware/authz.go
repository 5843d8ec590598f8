// Copyright (c) 2026 Wasteland Blues. All rights reserved.

package middleware

import (
	"net/http"
	"strings"

	"github.com/wastelandblues/atlas/internal/platform/apperr"
	"github.com/wastelandblues/atlas/internal/platform/ctxutil"
	"github.com/wastelandblues/atlas/internal/platform/respond"
	"github.com/wastelandblues/atlas/internal/platform/sec"
)

// TokenVerifier defines the interface needed to verify session tokens.
//
// # Why an interface?
//
// Defining TokenVerifier here decouples the middleware from the sec package's
// concrete [sec.TokenService], allowing tests to inject stubs.
type TokenVerifier interface {
	VerifyToken(tokenStr string) (*sec.SessionClaims, error)
}

// Authenticate extracts and verifies the session token from the
// Authorization header.
//
// # Flow
//  1. Check for 'Authorization: Bearer <token>' header.
//  2. If absent, the request proceeds as anonymous (the public map needs no session).
//  3. If present, parse and verify the token via [TokenVerifier].
//  4. Inject [*sec.SessionClaims] into the request context for downstream use.
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			authHeader := request.Header.Get("Authorization")

			// ── 1. Anonymous Access ───────────────────────────────────────────
			if authHeader == "" {
				next.ServeHTTP(writer, request)
				return
			}

			// ── 2. Format Validation ──────────────────────────────────────────
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				respond.Error(writer, request, apperr.Unauthorized("Invalid authorization format"))
				return
			}

			// ── 3. Token Verification ─────────────────────────────────────────
			claims, err := verifier.VerifyToken(parts[1])
			if err != nil {
				respond.Error(writer, request, apperr.Unauthorized("Invalid or expired session"))
				return
			}

			// ── 4. Context Injection ──────────────────────────────────────────
			next.ServeHTTP(writer, request.WithContext(ctxutil.WithSession(request.Context(), claims)))
		})
	}
}

// RequireAdmin blocks requests that do not carry a verified admin session.
//
// # Usage
//
// Must be registered in the router AFTER [Authenticate].
//
// # Flow
//  1. Check if [*sec.SessionClaims] exists in context — 401 otherwise.
//  2. Check the role claim — 403 on mismatch. Today admin is the only role
//     ever issued.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		claims := ctxutil.GetSession(request.Context())
		if claims == nil {
			respond.Error(writer, request, apperr.Unauthorized("Admin session required"))
			return
		}
		if claims.Role != sec.RoleAdmin {
			respond.Error(writer, request, apperr.Forbidden("Insufficient permissions"))
			return
		}
		next.ServeHTTP(writer, request)
	})
}
