// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package diag defines the closed set of semantic errors produced while
// indexing model files.
//
// Every error the semantic core reports is a *Error carrying one Kind.
// Errors are collected, never thrown: population passes gather them into a
// List and keep going, so one malformed file never hides problems (or
// symbols) elsewhere in the corpus.
//
// Matching works with errors.Is against the per-kind sentinels:
//
//	if errors.Is(err, diag.ErrDuplicateDefinition) { ... }
package diag

import (
	"errors"
	"fmt"
	"strings"

	"github.com/AleutianAI/syslens/services/semantic/source"
)

// Kind identifies one member of the error taxonomy.
type Kind int

const (
	KindDuplicateDefinition Kind = iota + 1
	KindUndefinedReference
	KindInvalidType
	KindInvalidSpecialization
	KindInvalidRedefinition
	KindInvalidSubsetting
	KindConstraintViolation
	KindInvalidFeatureContext
	KindAbstractInstantiation
	KindInvalidImport
	KindCircularDependency
)

var kindNames = map[Kind]string{
	KindDuplicateDefinition:   "duplicate definition",
	KindUndefinedReference:    "undefined reference",
	KindInvalidType:           "invalid type",
	KindInvalidSpecialization: "invalid specialization",
	KindInvalidRedefinition:   "invalid redefinition",
	KindInvalidSubsetting:     "invalid subsetting",
	KindConstraintViolation:   "constraint violation",
	KindInvalidFeatureContext: "invalid feature context",
	KindAbstractInstantiation: "abstract instantiation",
	KindInvalidImport:         "invalid import",
	KindCircularDependency:    "circular dependency",
}

// String returns the human-readable kind name.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Sentinel errors, one per Kind, for use with errors.Is.
var (
	ErrDuplicateDefinition   = &sentinel{KindDuplicateDefinition}
	ErrUndefinedReference    = &sentinel{KindUndefinedReference}
	ErrInvalidType           = &sentinel{KindInvalidType}
	ErrInvalidSpecialization = &sentinel{KindInvalidSpecialization}
	ErrInvalidRedefinition   = &sentinel{KindInvalidRedefinition}
	ErrInvalidSubsetting     = &sentinel{KindInvalidSubsetting}
	ErrConstraintViolation   = &sentinel{KindConstraintViolation}
	ErrInvalidFeatureContext = &sentinel{KindInvalidFeatureContext}
	ErrAbstractInstantiation = &sentinel{KindAbstractInstantiation}
	ErrInvalidImport         = &sentinel{KindInvalidImport}
	ErrCircularDependency    = &sentinel{KindCircularDependency}
)

type sentinel struct{ kind Kind }

func (s *sentinel) Error() string { return s.kind.String() }

func sentinelFor(k Kind) error {
	switch k {
	case KindDuplicateDefinition:
		return ErrDuplicateDefinition
	case KindUndefinedReference:
		return ErrUndefinedReference
	case KindInvalidType:
		return ErrInvalidType
	case KindInvalidSpecialization:
		return ErrInvalidSpecialization
	case KindInvalidRedefinition:
		return ErrInvalidRedefinition
	case KindInvalidSubsetting:
		return ErrInvalidSubsetting
	case KindConstraintViolation:
		return ErrConstraintViolation
	case KindInvalidFeatureContext:
		return ErrInvalidFeatureContext
	case KindAbstractInstantiation:
		return ErrAbstractInstantiation
	case KindInvalidImport:
		return ErrInvalidImport
	case KindCircularDependency:
		return ErrCircularDependency
	}
	return nil
}

// Severity distinguishes hard errors from advisory findings.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

// String returns "error" or "warning".
func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// Error is a single semantic finding.
type Error struct {
	// Kind is the taxonomy member.
	Kind Kind

	// Severity is SeverityError unless the finding is advisory.
	Severity Severity

	// Name is the subject: the symbol, feature, reference or import path.
	Name string

	// Target is the other end of a relationship, when there is one.
	Target string

	// Reason is free-form detail appended to the message.
	Reason string

	// Location is where the problem was found, when known.
	Location *source.Location

	// First is the location of the earlier definition for duplicates.
	First *source.Location

	// Cycle is the node path for circular dependencies.
	Cycle []string
}

// Error renders the finding as a single line.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Location != nil {
		b.WriteString(e.Location.String())
		b.WriteString(": ")
	}
	b.WriteString(e.message())
	return b.String()
}

func (e *Error) message() string {
	switch e.Kind {
	case KindDuplicateDefinition:
		if e.First != nil {
			return fmt.Sprintf("duplicate definition of '%s' (first defined at %s)", e.Name, e.First)
		}
		return fmt.Sprintf("duplicate definition of '%s'", e.Name)
	case KindUndefinedReference:
		return fmt.Sprintf("undefined reference '%s'", e.Name)
	case KindInvalidType:
		return withReason(fmt.Sprintf("invalid type '%s'", e.Name), e.Reason)
	case KindInvalidSpecialization:
		return withReason(fmt.Sprintf("'%s' cannot specialize '%s'", e.Name, e.Target), e.Reason)
	case KindInvalidRedefinition:
		return withReason(fmt.Sprintf("'%s' cannot redefine '%s'", e.Name, e.Target), e.Reason)
	case KindInvalidSubsetting:
		return withReason(fmt.Sprintf("'%s' cannot subset '%s'", e.Name, e.Target), e.Reason)
	case KindConstraintViolation:
		return e.Reason
	case KindInvalidFeatureContext:
		return withReason(fmt.Sprintf("feature '%s' used in invalid context", e.Name), e.Reason)
	case KindAbstractInstantiation:
		return fmt.Sprintf("cannot instantiate abstract element '%s'", e.Name)
	case KindInvalidImport:
		return withReason(fmt.Sprintf("invalid import '%s'", e.Name), e.Reason)
	case KindCircularDependency:
		return fmt.Sprintf("circular dependency: %s", strings.Join(e.Cycle, " -> "))
	}
	return withReason(e.Kind.String(), e.Reason)
}

func withReason(msg, reason string) string {
	if reason == "" {
		return msg
	}
	return msg + ": " + reason
}

// Is matches the per-kind sentinel.
func (e *Error) Is(target error) bool {
	s, ok := target.(*sentinel)
	return ok && s.kind == e.Kind
}

// Unwrap exposes the kind sentinel.
func (e *Error) Unwrap() error {
	return sentinelFor(e.Kind)
}

// At returns a copy of e located at loc.
func (e *Error) At(loc source.Location) *Error {
	cp := *e
	cp.Location = &loc
	return &cp
}

// AsWarning returns a copy of e with warning severity.
func (e *Error) AsWarning() *Error {
	cp := *e
	cp.Severity = SeverityWarning
	return &cp
}

// DuplicateDefinition reports a name that already occupies the scope.
// first may be nil when the earlier definition has no recorded location.
func DuplicateDefinition(name string, first *source.Location) *Error {
	return &Error{Kind: KindDuplicateDefinition, Name: name, First: first}
}

// UndefinedReference reports a name that resolves to nothing.
func UndefinedReference(name string) *Error {
	return &Error{Kind: KindUndefinedReference, Name: name}
}

// InvalidType reports a type reference to something that is not a type.
func InvalidType(reference, reason string) *Error {
	return &Error{Kind: KindInvalidType, Name: reference, Reason: reason}
}

// InvalidSpecialization reports an illegal specialization edge.
func InvalidSpecialization(feature, target, reason string) *Error {
	return &Error{Kind: KindInvalidSpecialization, Name: feature, Target: target, Reason: reason}
}

// InvalidRedefinition reports an illegal redefinition edge.
func InvalidRedefinition(feature, target, reason string) *Error {
	return &Error{Kind: KindInvalidRedefinition, Name: feature, Target: target, Reason: reason}
}

// InvalidSubsetting reports an illegal subsetting edge.
func InvalidSubsetting(feature, target, reason string) *Error {
	return &Error{Kind: KindInvalidSubsetting, Name: feature, Target: target, Reason: reason}
}

// ConstraintViolation reports a broken domain rule. The message is used as is.
func ConstraintViolation(message string) *Error {
	return &Error{Kind: KindConstraintViolation, Reason: message}
}

// InvalidFeatureContext reports a feature declared where it is not allowed.
func InvalidFeatureContext(feature, reason string) *Error {
	return &Error{Kind: KindInvalidFeatureContext, Name: feature, Reason: reason}
}

// AbstractInstantiation reports an attempt to instantiate an abstract element.
func AbstractInstantiation(name string) *Error {
	return &Error{Kind: KindAbstractInstantiation, Name: name}
}

// InvalidImport reports an import that cannot be resolved.
func InvalidImport(path, reason string) *Error {
	return &Error{Kind: KindInvalidImport, Name: path, Reason: reason}
}

// CircularDependency reports a cycle, listed from start back to start.
func CircularDependency(cycle []string) *Error {
	return &Error{Kind: KindCircularDependency, Cycle: append([]string(nil), cycle...)}
}

// KindOf returns the Kind of err, or 0 if err is not a semantic error.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return 0
}
