// Package repository holds the errors shared by the store implementations
// in its subpackages.
package repository

import "errors"

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already exists")
	ErrNotFound       = errors.New("document not found")
)
