// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

package authz

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/casbin/casbin/v2/persist"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
	stringadapter "github.com/casbin/casbin/v2/persist/string-adapter"
)

//go:embed model.conf
var embeddedModel string

// embeddedPolicy grants admin full access to the model endpoints and
// analyst read-only access to model status.
//
//go:embed policy.csv
var embeddedPolicy string

// Actions checked against the policy.
const (
	ActionRead  = "read"
	ActionWrite = "write"
)

// Enforcer decides which token subjects may reach the model administration
// endpoints.
type Enforcer struct {
	enforcer *casbin.SyncedEnforcer
}

// NewEnforcer loads the embedded RBAC model. Policy comes from policyPath
// when that file exists, otherwise from the embedded defaults.
func NewEnforcer(policyPath string) (*Enforcer, error) {
	m, err := model.NewModelFromString(embeddedModel)
	if err != nil {
		return nil, fmt.Errorf("failed to parse authorization model: %w", err)
	}

	var adapter persist.Adapter = stringadapter.NewAdapter(embeddedPolicy)
	if policyPath != "" {
		if _, statErr := os.Stat(policyPath); statErr == nil {
			adapter = fileadapter.NewAdapter(policyPath)
		}
	}

	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, fmt.Errorf("failed to load authorization policy: %w", err)
	}
	return &Enforcer{enforcer: enforcer}, nil
}

// Enforce reports whether the subject or any of its token roles may perform
// action on the request path.
func (e *Enforcer) Enforce(subject string, roles []string, path, action string) (bool, error) {
	candidates := make([]string, 0, len(roles)+1)
	if subject != "" {
		candidates = append(candidates, subject)
	}
	for _, role := range roles {
		if role != "" {
			candidates = append(candidates, role)
		}
	}

	for _, sub := range candidates {
		ok, err := e.enforcer.Enforce(sub, path, action)
		if err != nil {
			return false, fmt.Errorf("policy check for %s on %s: %w", sub, path, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// AddRoleForUser grants role to user for the lifetime of the process. The
// policy source is not rewritten.
func (e *Enforcer) AddRoleForUser(user, role string) error {
	if _, err := e.enforcer.AddRoleForUser(user, role); err != nil {
		return fmt.Errorf("failed to grant %s to %s: %w", role, user, err)
	}
	return nil
}
