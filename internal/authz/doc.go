// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

// Package authz guards the administrative model endpoints.
//
// Callers present an HS256 bearer token whose claims carry their roles.
// The token is verified with golang-jwt and the roles are checked against a
// Casbin RBAC policy keyed on request path and action:
//
//	Request -> Middleware.Authorize -> handler
//	               |            |
//	          Verify (JWT)   Enforce (Casbin)
//
// The model (model.conf) is plain RBAC with keyMatch on the path, so one
// policy line can cover every model endpoint. POST, PUT, PATCH and DELETE
// map to the "write" action and every other method to "read".
//
// The embedded policy grants admin read and write on /api/models/* and
// analyst read on /api/models/status. A policy file configured through
// CASBIN_POLICY_PATH replaces it.
//
// # Usage
//
//	enforcer, err := authz.NewEnforcer(cfg.Security.CasbinPolicyPath)
//	verifier, err := authz.NewTokenVerifier(cfg.Security.JWTSecret)
//	guard := authz.NewMiddleware(verifier, enforcer)
//	r.With(guard.Authorize).Post("/api/models/retrain", h.Retrain)
package authz
