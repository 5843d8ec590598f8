// Copyright (c) 2026 Wasteland Blues. All rights reserved.

/*
Package request provides utilities for extracting data from HTTP requests.

It abstracts away the underlying router's parameter extraction and common
body decoding patterns, ensuring consistent error handling and type safety.
*/
package requestutil

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wastelandblues/atlas/internal/platform/apperr"
	"github.com/wastelandblues/atlas/internal/platform/ctxutil"
	"github.com/wastelandblues/atlas/internal/platform/sec"
	"github.com/wastelandblues/atlas/internal/platform/validate"
)

// DecodeJSON reads the request body and decodes it into the target structure.
//
// It returns [validate.ErrInvalidJSON] if decoding fails, so malformed bodies
// surface as structured 400 responses rather than opaque 500s.
func DecodeJSON(request *http.Request, target interface{}) error {
	if err := json.NewDecoder(request.Body).Decode(target); err != nil {
		return validate.ErrInvalidJSON
	}
	return nil
}

// ID retrieves a named URL parameter (slug/UUID) from the request.
func ID(request *http.Request, name string) string {
	return chi.URLParam(request, name)
}

// Session extracts the verified admin session claims from the request context.
//
// Returns nil if the request is anonymous.
func Session(request *http.Request) *sec.SessionClaims {
	return ctxutil.GetSession(request.Context())
}

// RequiredSession ensures the request carries a verified admin session.
//
// Returns [apperr.Unauthorized] when the request is anonymous.
func RequiredSession(request *http.Request) (*sec.SessionClaims, error) {
	claims := ctxutil.GetSession(request.Context())
	if claims == nil {
		return nil, apperr.Unauthorized("Authentication required")
	}
	return claims, nil
}
