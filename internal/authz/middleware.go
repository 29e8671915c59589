// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

package authz

import (
	"net/http"
	"strings"

	"github.com/tomtom215/safepulse/internal/logging"
)

// DenyFunc writes a rejection. status is 401, 403 or 500.
type DenyFunc func(w http.ResponseWriter, r *http.Request, status int, message string)

// Middleware authenticates bearer tokens and authorizes the request path.
type Middleware struct {
	verifier *TokenVerifier
	enforcer *Enforcer
	deny     DenyFunc
}

// NewMiddleware creates the guard. Rejections are written with
// http.Error until SetDenyFunc replaces it.
func NewMiddleware(verifier *TokenVerifier, enforcer *Enforcer) *Middleware {
	return &Middleware{
		verifier: verifier,
		enforcer: enforcer,
		deny: func(w http.ResponseWriter, _ *http.Request, status int, message string) {
			http.Error(w, message, status)
		},
	}
}

// SetDenyFunc replaces the rejection writer.
func (m *Middleware) SetDenyFunc(deny DenyFunc) {
	m.deny = deny
}

// Authorize rejects requests without a valid bearer token whose subject or
// roles are allowed on the request path.
func (m *Middleware) Authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			m.deny(w, r, http.StatusUnauthorized, "Missing bearer token")
			return
		}

		claims, err := m.verifier.Verify(token)
		if err != nil {
			logging.Ctx(r.Context()).Debug().Err(err).Msg("Rejected bearer token")
			m.deny(w, r, http.StatusUnauthorized, "Invalid bearer token")
			return
		}

		allowed, err := m.enforcer.Enforce(claims.Subject, claims.Roles, r.URL.Path, methodToAction(r.Method))
		if err != nil {
			logging.Ctx(r.Context()).Error().Err(err).Msg("Authorization error")
			m.deny(w, r, http.StatusInternalServerError, "Internal server error")
			return
		}
		if !allowed {
			logging.Ctx(r.Context()).Warn().
				Str("subject", logging.SanitizeUserID(claims.Subject)).
				Str("path", r.URL.Path).
				Msg("Forbidden admin request")
			m.deny(w, r, http.StatusForbidden, "Insufficient permissions")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}

// methodToAction maps HTTP methods to Casbin actions.
func methodToAction(method string) string {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return ActionWrite
	default:
		return ActionRead
	}
}
