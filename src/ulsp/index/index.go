// Package index adapts src/scip-lib's SCIP registry into the semantic-index
// collaborator contract the Request Dispatcher's "poke preparation on
// interaction" step needs (spec §4.6 step 1). Symbol-query logic itself
// (definition, references, hover, ...) stays behind the registry's own,
// larger contract — out of scope for this core, reachable here only so the
// kept library isn't orphaned.
package index

import (
	"context"
	"sync"

	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"github.com/uber/ulsp-core/src/scip-lib/model"
	"github.com/uber/ulsp-core/src/scip-lib/registry"
	"github.com/uber/ulsp-core/src/ulsp/entity"
)

// SemanticIndex is the full per-workspace semantic-index contract: active-
// document tracking (used by this core's dispatch path) plus the query
// surface registry.Registry already provides (out of scope to reimplement,
// kept reachable so callers beyond this core's scope have a stable type to
// depend on).
type SemanticIndex interface {
	entity.SemanticIndexManager

	LoadIndexFile(path string) error
	DidOpen(uri uri.URI, text string) error
	DidClose(uri uri.URI) error
	Definition(uri uri.URI, loc protocol.Position) (*model.SymbolOccurrence, *model.SymbolOccurrence, error)
	References(uri uri.URI, loc protocol.Position) ([]protocol.Location, error)
	Hover(uri uri.URI, loc protocol.Position) (string, *model.Occurrence, error)
	DocumentSymbols(uri uri.URI) ([]*model.SymbolOccurrence, error)
	Diagnostics(uri uri.URI) ([]*model.Diagnostic, error)
}

type index struct {
	reg registry.Registry

	mu     sync.Mutex
	active map[string]bool
}

// New wraps a scip-lib registry as a per-workspace SemanticIndex.
func New(reg registry.Registry) SemanticIndex {
	return &index{reg: reg, active: make(map[string]bool)}
}

// DidChangeActiveDocument implements entity.SemanticIndexManager. The
// workspace owning the document is expected to have been the one to call
// this (the Request Dispatcher fans the notification out to every
// workspace, per spec.md §4.6 step 1); callers for other workspaces should
// treat any prior pending preparation for the same document as irrelevant,
// which this tracker realizes by simply keeping the most recent caller's
// claim.
func (i *index) DidChangeActiveDocument(ctx context.Context, did entity.DocumentId) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.active = map[string]bool{did.String(): true}
	return nil
}

func (i *index) LoadIndexFile(path string) error { return i.reg.LoadIndexFile(path) }
func (i *index) DidOpen(u uri.URI, text string) error { return i.reg.DidOpen(u, text) }
func (i *index) DidClose(u uri.URI) error { return i.reg.DidClose(u) }
func (i *index) Definition(u uri.URI, loc protocol.Position) (*model.SymbolOccurrence, *model.SymbolOccurrence, error) {
	return i.reg.Definition(u, loc)
}
func (i *index) References(u uri.URI, loc protocol.Position) ([]protocol.Location, error) {
	return i.reg.References(u, loc)
}
func (i *index) Hover(u uri.URI, loc protocol.Position) (string, *model.Occurrence, error) {
	return i.reg.Hover(u, loc)
}
func (i *index) DocumentSymbols(u uri.URI) ([]*model.SymbolOccurrence, error) {
	return i.reg.DocumentSymbols(u)
}
func (i *index) Diagnostics(u uri.URI) ([]*model.Diagnostic, error) {
	return i.reg.Diagnostics(u)
}
