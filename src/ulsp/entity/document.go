package entity

import (
	"go.lsp.dev/uri"
)

// DocumentId is an opaque document identifier carrying a URI. Scheduling and
// routing never compare raw URIs directly; they always compare the
// build-settings key returned by BuildSettingsKeyFunc, since generated or
// reference documents may share a primary file's settings and identity.
type DocumentId struct {
	URI uri.URI
}

// NewDocumentId wraps a URI as a DocumentId.
func NewDocumentId(u uri.URI) DocumentId {
	return DocumentId{URI: u}
}

// String implements fmt.Stringer.
func (d DocumentId) String() string {
	return string(d.URI)
}

// BuildSettingsKeyFunc derives the build-settings group key for a document.
// Most documents map to themselves; generated or reference documents map to
// the primary file whose build settings govern them. Implementations are
// supplied by the build-server manager collaborator (out of scope here) and
// injected into the components that need identity resolution.
type BuildSettingsKeyFunc func(DocumentId) DocumentId

// IdentityDocumentKey is the default BuildSettingsKeyFunc: every document is
// its own build-settings group. Used when no build-server manager is wired,
// and in tests.
func IdentityDocumentKey(d DocumentId) DocumentId {
	return d
}
