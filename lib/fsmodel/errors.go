// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

package fsmodel

import (
	"errors"
	"fmt"
)

// Kind identifies which error-handling policy applies to an Error.
// See §7's taxonomy: I/O, PathNotFound/PermissionDenied (specialized
// I/O), Serialization, Platform, Resource.
type Kind int

const (
	KindIO Kind = iota
	KindPathNotFound
	KindPermissionDenied
	KindSerialization
	KindPlatform
	KindResource
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindPathNotFound:
		return "path_not_found"
	case KindPermissionDenied:
		return "permission_denied"
	case KindSerialization:
		return "serialization"
	case KindPlatform:
		return "platform"
	case KindResource:
		return "resource"
	default:
		return "unknown"
	}
}

// Error is arbor's sealed error type. Every error the model surfaces
// to a caller or publishes into LoadState.Message carries a Kind so
// callers can branch on error category with errors.As instead of
// string matching.
type Error struct {
	Kind Kind
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("fsmodel: %s: %s: %v", e.Kind, e.Path, e.Err)
	}
	return fmt.Sprintf("fsmodel: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError wraps err with the given kind and the path it concerns.
func NewError(kind Kind, path string, err error) *Error {
	return &Error{Kind: kind, Path: path, Err: err}
}

// IsPathNotFound reports whether err is (or wraps) a KindPathNotFound
// Error.
func IsPathNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindPathNotFound
}

// IsPermissionDenied reports whether err is (or wraps) a
// KindPermissionDenied Error.
func IsPermissionDenied(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindPermissionDenied
}

// IsSerialization reports whether err is (or wraps) a
// KindSerialization Error.
func IsSerialization(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindSerialization
}

// IsPlatform reports whether err is (or wraps) a KindPlatform Error.
func IsPlatform(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindPlatform
}

// IsResource reports whether err is (or wraps) a KindResource Error.
func IsResource(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindResource
}
