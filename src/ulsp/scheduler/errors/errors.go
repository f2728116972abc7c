// Package errors defines the typed error kinds the scheduling core surfaces
// to clients, per spec §7.
package errors

import (
	stderr "errors"
	"fmt"

	"github.com/uber/ulsp-core/src/ulsp/entity"
)

// WorkspaceNotOpenError reports that no workspace claims a document, not
// even as an implicit one.
type WorkspaceNotOpenError struct {
	Document entity.DocumentId
}

// Error implements the error interface.
func (e *WorkspaceNotOpenError) Error() string {
	return fmt.Sprintf("workspace not open for document %q", e.Document)
}

// NoLanguageServiceForDocumentError reports that a workspace exists but no
// language service could be started for the document.
type NoLanguageServiceForDocumentError struct {
	Document entity.DocumentId
}

// Error implements the error interface.
func (e *NoLanguageServiceForDocumentError) Error() string {
	return fmt.Sprintf("no language service for document %q", e.Document)
}

// NoLanguageServiceImplementsMethodError reports that every bound language
// service replied requestNotImplemented for a method.
type NoLanguageServiceImplementsMethodError struct {
	Method string
}

// Error implements the error interface.
func (e *NoLanguageServiceImplementsMethodError) Error() string {
	return fmt.Sprintf("no language service implements method %q", e.Method)
}

// CancelledError reports that a request was cancelled, explicitly by the
// client or implicitly by a document update.
type CancelledError struct {
	RequestID entity.RequestId
}

// Error implements the error interface.
func (e *CancelledError) Error() string {
	return fmt.Sprintf("request %s cancelled", e.RequestID)
}

// TimeoutError reports that a shutdown step exceeded its allotted time. It
// never fails the overall shutdown; it is surfaced for logging only.
type TimeoutError struct {
	Step string
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out waiting for %q", e.Step)
}

// InternalError wraps an unexpected invariant violation, e.g. a backend
// declaring a non-incremental text-sync kind.
type InternalError struct {
	Reason string
}

// Error implements the error interface.
func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error: %s", e.Reason)
}

// MethodNotFoundError reports that no dispatcher branch exists for a
// method.
type MethodNotFoundError struct {
	Method string
}

// Error implements the error interface.
func (e *MethodNotFoundError) Error() string {
	return fmt.Sprintf("method not found: %q", e.Method)
}

// IsCancelled reports whether err is (or wraps) a CancelledError.
func IsCancelled(err error) bool {
	var c *CancelledError
	return stderr.As(err, &c)
}

// RequestNotImplementedError is the sentinel a language Service returns
// from Dispatch to signal the Request Dispatcher should try the next
// service in precedence order (spec §4.6 step 4's "requestNotImplemented").
type RequestNotImplementedError struct {
	Method string
}

// Error implements the error interface.
func (e *RequestNotImplementedError) Error() string {
	return fmt.Sprintf("requestNotImplemented: %q", e.Method)
}

// IsNotImplemented reports whether err is (or wraps) a
// RequestNotImplementedError.
func IsNotImplemented(err error) bool {
	var n *RequestNotImplementedError
	return stderr.As(err, &n)
}
