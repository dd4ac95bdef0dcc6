// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package adapter

import (
	"fmt"

	"github.com/AleutianAI/syslens/services/semantic/diag"
	"github.com/AleutianAI/syslens/services/semantic/relations"
	"github.com/AleutianAI/syslens/services/semantic/symbols"
)

// sysmlConstraints is the required target role per domain relationship.
var sysmlConstraints = map[relations.Kind]symbols.Role{
	relations.Satisfy: symbols.RoleRequirement,
	relations.Perform: symbols.RoleAction,
	relations.Exhibit: symbols.RoleState,
	relations.Include: symbols.RoleUseCase,
}

// SysMLValidator enforces the target roles of domain relationships.
// Kinds without a constraint are accepted.
type SysMLValidator struct{}

// Validate implements RelationshipValidator.
func (SysMLValidator) Validate(kind relations.Kind, source, target *symbols.Symbol) error {
	want, constrained := sysmlConstraints[kind]
	if !constrained || target == nil || target.Role == want {
		return nil
	}

	got := "has no semantic role"
	if target.Role != symbols.RoleUnknown {
		got = "is " + article(string(target.Role))
	}
	msg := fmt.Sprintf("%s must target %s: '%s' %s", kind, article(string(want)), target.QualifiedName, got)
	err := diag.ConstraintViolation(msg)
	if source != nil {
		err.Name = source.QualifiedName
	}
	err.Target = target.QualifiedName
	return err
}

// KerMLValidator accepts every relationship.
type KerMLValidator struct{}

// Validate implements RelationshipValidator.
func (KerMLValidator) Validate(relations.Kind, *symbols.Symbol, *symbols.Symbol) error {
	return nil
}

func article(noun string) string {
	if noun == "" {
		return noun
	}
	switch noun[0] {
	case 'a', 'e', 'i', 'o':
		return "an " + noun
	}
	return "a " + noun
}
