// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow handlers to distinguish
// between different failure scenarios without inspecting driver errors.
package repository

import "errors"

// ErrEmailExists is returned by UserRepo.Create when the email is
// already registered. Handlers should translate this into an HTTP 409
// response.
var ErrEmailExists = errors.New("email already exists")

// ErrInsufficientPoints is returned by Ledger.DebitTx when a user's
// balance cannot cover the requested amount. Handlers should translate
// this into an HTTP 400 response.
var ErrInsufficientPoints = errors.New("insufficient points")
