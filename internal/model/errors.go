// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "fmt"

// Error is a sentinel error kind. Wrapped errors are matched with errors.Is.
type Error string

func (e Error) Error() string { return string(e) }

const (
	// ErrInvalidOperation reports a request that conflicts with stored state,
	// such as saving a version that is no longer the current draft.
	ErrInvalidOperation Error = "invalid operation"

	// ErrNotSupported reports a variation scheme the engine cannot store.
	ErrNotSupported Error = "not supported"

	// ErrDuplicateName reports an alias collision.
	ErrDuplicateName Error = "duplicate name"

	// ErrNotFound reports a missing node, version or type.
	ErrNotFound Error = "not found"
)

// Errorf wraps kind with a formatted message.
func Errorf(kind Error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}
