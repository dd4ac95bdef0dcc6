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
	"strings"

	"github.com/AleutianAI/syslens/services/semantic/symbols"
)

// sysmlRoles maps SysML keywords, without a trailing "def", to roles.
// Definitions and usages share the table.
var sysmlRoles = map[string]symbols.Role{
	"part":              symbols.RoleComponent,
	"requirement":       symbols.RoleRequirement,
	"action":            symbols.RoleAction,
	"state":             symbols.RoleState,
	"use case":          symbols.RoleUseCase,
	"port":              symbols.RolePort,
	"item":              symbols.RoleItem,
	"attribute":         symbols.RoleAttribute,
	"interface":         symbols.RoleInterface,
	"connection":        symbols.RoleConnection,
	"constraint":        symbols.RoleConstraint,
	"calc":              symbols.RoleCalculation,
	"calculation":       symbols.RoleCalculation,
	"enum":              symbols.RoleEnumeration,
	"enumeration":       symbols.RoleEnumeration,
	"view":              symbols.RoleView,
	"viewpoint":         symbols.RoleViewpoint,
	"rendering":         symbols.RoleRendering,
	"concern":           symbols.RoleConcern,
	"occurrence":        symbols.RoleOccurrence,
	"individual":        symbols.RoleOccurrence,
	"analysis":          symbols.RoleAnalysis,
	"analysis case":     symbols.RoleAnalysis,
	"verification":      symbols.RoleVerification,
	"verification case": symbols.RoleVerification,
	"allocation":        symbols.RoleAllocation,
	"flow":              symbols.RoleFlow,
	"message":           symbols.RoleFlow,
	"metadata":          symbols.RoleMetadata,
	"case":              symbols.RoleCase,
	"package":           symbols.RoleNamespace,
	"library package":   symbols.RoleNamespace,
}

// kermlRoles maps KerML classifier and feature keywords to roles.
var kermlRoles = map[string]symbols.Role{
	"type":        symbols.RoleType,
	"classifier":  symbols.RoleType,
	"class":       symbols.RoleClass,
	"datatype":    symbols.RoleDataType,
	"struct":      symbols.RoleStructure,
	"assoc":       symbols.RoleAssociation,
	"association": symbols.RoleAssociation,
	"behavior":    symbols.RoleBehavior,
	"function":    symbols.RoleFunction,
	"predicate":   symbols.RolePredicate,
	"interaction": symbols.RoleInteraction,
	"metaclass":   symbols.RoleMetadata,
	"feature":     symbols.RoleFeature,
	"step":        symbols.RoleFeature,
	"expr":        symbols.RoleFeature,
	"package":     symbols.RoleNamespace,
}

func normalizeKeyword(keyword string) string {
	k := strings.Join(strings.Fields(strings.ToLower(keyword)), " ")
	k = strings.TrimPrefix(k, "abstract ")
	return strings.TrimSuffix(strings.TrimSuffix(k, " def"), " definition")
}

// SysMLRole returns the role of a SysML definition or usage keyword, such
// as "part def", "requirement" or "use case def".
func SysMLRole(keyword string) symbols.Role {
	return sysmlRoles[normalizeKeyword(keyword)]
}

// KerMLRole returns the role of a KerML keyword such as "class".
func KerMLRole(keyword string) symbols.Role {
	return kermlRoles[normalizeKeyword(keyword)]
}
