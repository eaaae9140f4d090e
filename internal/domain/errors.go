// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrStateContention indicates the session's state is locked by an
// overlapping trigger. The caller must retry the trigger; treating this as
// success would silently skip a review.
var ErrStateContention = errors.New("session state held by another trigger")

// ErrAdapterTimeout indicates a reviewer call exceeded its deadline.
var ErrAdapterTimeout = errors.New("reviewer call timed out")

// ErrAdapterAuth indicates a reviewer rejected the configured credentials.
var ErrAdapterAuth = errors.New("reviewer authentication failed")

// ErrAdapterMalformed indicates a reviewer returned an unparseable response.
var ErrAdapterMalformed = errors.New("reviewer response malformed")

// ErrAllAdaptersFailed indicates no reviewer produced a usable verdict; the
// decision degrades to the configured fallback severity.
var ErrAllAdaptersFailed = errors.New("all reviewers failed")

// ErrPolicyMisconfigured indicates an unknown conflict resolution policy
// name. Resolution falls back to conservative rather than surfacing to the
// host.
var ErrPolicyMisconfigured = errors.New("unknown conflict resolution policy")

// ErrRetryExhausted marks a retry budget hitting its cap. It is a normal
// terminal outcome logged as a warning, not a failure.
var ErrRetryExhausted = errors.New("retry budget exhausted")
