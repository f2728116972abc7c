// Package workspace implements the Workspace Router (spec §4.4): the
// document-to-workspace resolution cache, the explicit/implicit workspace
// list, and the re-open pass triggered by list or capability mutation.
package workspace

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
	"go.uber.org/zap"

	"github.com/uber/ulsp-core/src/ulsp/entity"
	"github.com/uber/ulsp-core/src/ulsp/langservice"
	"github.com/uber/ulsp-core/src/ulsp/mapper"
	schederrors "github.com/uber/ulsp-core/src/ulsp/scheduler/errors"
	"github.com/uber/ulsp-core/src/ulsp/workspace/detect"
)

// QueueEnqueuer is the narrow slice of scheduler.Queue the Router needs to
// submit its re-open pass. Declared locally (rather than importing
// scheduler.Queue directly) to avoid a dependency cycle, since scheduler
// itself never needs to know about workspaces.
type QueueEnqueuer interface {
	Enqueue(ctx context.Context, task entity.PendingTask) (entity.TaskId, <-chan entity.TaskResult)
}

// Router is the Workspace Router contract.
type Router interface {
	// Resolve maps a document to the workspace that currently claims it,
	// per the 6-step algorithm in spec.md §4.4.
	Resolve(ctx context.Context, did entity.DocumentId) (*entity.Workspace, error)
	// OnFolderChange applies a workspace/didChangeWorkspaceFolders
	// notification: explicit workspaces matching removed folders are
	// dropped together with every implicit workspace, one workspace per
	// added folder is appended, and a re-open pass is scheduled for every
	// previously open document. Returns the workspaces dropped by this
	// call, so the caller can hand them to langservice.Directory's
	// CollectOrphans (spec.md §4.5) before their services leak.
	OnFolderChange(ctx context.Context, added, removed []protocol.WorkspaceFolder) ([]*entity.Workspace, error)
	// Workspaces returns a snapshot of the current workspace list.
	Workspaces() []*entity.Workspace
	// SetCapabilities updates a workspace's declared capabilities. A change
	// to FileHandling triggers the same re-open pass as a folder-list
	// mutation (spec.md §4.4).
	SetCapabilities(ctx context.Context, workspaceID string, caps entity.Capabilities) error

	// NotifyDocumentOpened records a document's language, full text, and
	// version, so a later re-open pass can replay it against a newly
	// resolved workspace without re-reading it from the client.
	NotifyDocumentOpened(ctx context.Context, did entity.DocumentId, language protocol.LanguageIdentifier, text string, version int32) error
	// NotifyDocumentChanged applies an incremental content-change event to
	// the document's tracked text, keeping it current for the same reason.
	NotifyDocumentChanged(ctx context.Context, did entity.DocumentId, version int32, changes []protocol.TextDocumentContentChangeEvent) error
	// NotifyDocumentClosed drops the document's tracked state.
	NotifyDocumentClosed(ctx context.Context, did entity.DocumentId) error
}

type workspaceEntry struct {
	ws         *entity.Workspace
	isImplicit bool
}

type command struct {
	kind commandKind
	// resolve
	did     entity.DocumentId
	resultC chan resolveResult
	// folder change
	added, removed []protocol.WorkspaceFolder
	folderChangeC  chan folderChangeResult
	// capability change
	workspaceID string
	caps        entity.Capabilities
	doneC       chan struct{}
}

type resolveResult struct {
	ws  *entity.Workspace
	err error
}

// folderChangeResult reports the error from applying a folder-list mutation
// together with the workspaces it dropped, for CollectOrphans.
type folderChangeResult struct {
	removed []*entity.Workspace
	err     error
}

type commandKind int

const (
	cmdResolve commandKind = iota
	cmdFolderChange
	cmdSetCapabilities
)

// docState is the Workspace Router's own tracked copy of a document's
// current language, full text, and version, reconstructed from didOpen/
// didChange notifications so a re-open pass can call Service.OpenDocument
// with accurate content when a document is re-homed to a different
// workspace (spec.md §4.4, §3 invariant 1).
type docState struct {
	language protocol.LanguageIdentifier
	text     string
	version  int32
}

type router struct {
	logger    *zap.Logger
	queue     QueueEnqueuer
	newBSM    func(rootURI string) entity.BuildServerManager
	detect    detect.Detector
	directory langservice.Directory
	baseCtx   context.Context

	// cache is read with a read lock on the fast path; all writes to cache
	// and entries happen on the serial loop goroutine, matching spec.md
	// §4.4's "reads may go unlocked through the cache first, falling
	// through to the serial context on cache miss".
	cacheMu sync.RWMutex
	cache   map[entity.DocumentId]*entity.Workspace

	entries []workspaceEntry

	// docsMu guards docs independently of cacheMu/entries: tracked document
	// state is bookkeeping for the re-open pass, not part of the resolution
	// ordering the serial command loop otherwise enforces.
	docsMu sync.RWMutex
	docs   map[entity.DocumentId]*docState

	cmds chan command
}

// Params bundles the Router's construction-time collaborators.
type Params struct {
	Logger    *zap.Logger
	Queue     QueueEnqueuer
	NewBSM    func(rootURI string) entity.BuildServerManager
	Detect    detect.Detector
	Directory langservice.Directory
	BaseCtx   context.Context
	Folders   []protocol.WorkspaceFolder
}

// New constructs a Router seeded with the client's initial workspace
// folders, each becoming one explicit workspace.
func New(p Params) Router {
	r := &router{
		logger:    p.Logger,
		queue:     p.Queue,
		newBSM:    p.NewBSM,
		detect:    p.Detect,
		directory: p.Directory,
		baseCtx:   p.BaseCtx,
		cache:     make(map[entity.DocumentId]*entity.Workspace),
		docs:      make(map[entity.DocumentId]*docState),
		cmds:      make(chan command),
	}
	for _, f := range p.Folders {
		r.entries = append(r.entries, workspaceEntry{
			ws:         entity.NewWorkspace(f.URI, f.URI, r.newBSM(f.URI), false),
			isImplicit: false,
		})
	}
	go r.loop()
	return r
}

func (r *router) Resolve(ctx context.Context, did entity.DocumentId) (*entity.Workspace, error) {
	r.cacheMu.RLock()
	if ws, ok := r.cache[did]; ok {
		r.cacheMu.RUnlock()
		return ws, nil
	}
	r.cacheMu.RUnlock()

	resultC := make(chan resolveResult, 1)
	select {
	case r.cmds <- command{kind: cmdResolve, did: did, resultC: resultC}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-resultC:
		return res.ws, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *router) OnFolderChange(ctx context.Context, added, removed []protocol.WorkspaceFolder) ([]*entity.Workspace, error) {
	resultC := make(chan folderChangeResult, 1)
	select {
	case r.cmds <- command{kind: cmdFolderChange, added: added, removed: removed, folderChangeC: resultC}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case res := <-resultC:
		return res.removed, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// NotifyDocumentOpened records the opened document's state for later replay
// by a re-open pass. Bookkeeping only: it never touches the cache or entry
// list, so it bypasses the serial command loop.
func (r *router) NotifyDocumentOpened(ctx context.Context, did entity.DocumentId, language protocol.LanguageIdentifier, text string, version int32) error {
	r.docsMu.Lock()
	r.docs[did] = &docState{language: language, text: text, version: version}
	r.docsMu.Unlock()
	return nil
}

// NotifyDocumentChanged applies an incremental content-change event to the
// document's tracked text. A document the router never saw opened (e.g. one
// that existed before this process's lifetime) is silently ignored: there is
// nothing to keep current.
func (r *router) NotifyDocumentChanged(ctx context.Context, did entity.DocumentId, version int32, changes []protocol.TextDocumentContentChangeEvent) error {
	r.docsMu.Lock()
	defer r.docsMu.Unlock()

	state, ok := r.docs[did]
	if !ok {
		return nil
	}
	text, err := mapper.ApplyContentChanges(state.text, changes)
	if err != nil {
		return err
	}
	state.text = text
	state.version = version
	return nil
}

// NotifyDocumentClosed drops the document's tracked state.
func (r *router) NotifyDocumentClosed(ctx context.Context, did entity.DocumentId) error {
	r.docsMu.Lock()
	delete(r.docs, did)
	r.docsMu.Unlock()
	return nil
}

func (r *router) docStateFor(did entity.DocumentId) *docState {
	r.docsMu.RLock()
	defer r.docsMu.RUnlock()
	return r.docs[did]
}

func (r *router) SetCapabilities(ctx context.Context, workspaceID string, caps entity.Capabilities) error {
	doneC := make(chan struct{})
	select {
	case r.cmds <- command{kind: cmdSetCapabilities, workspaceID: workspaceID, caps: caps, doneC: doneC}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-doneC:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *router) Workspaces() []*entity.Workspace {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	out := make([]*entity.Workspace, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.ws)
	}
	return out
}

func (r *router) loop() {
	for {
		select {
		case <-r.baseCtx.Done():
			return
		case cmd := <-r.cmds:
			switch cmd.kind {
			case cmdResolve:
				ws, err := r.resolveLocked(cmd.did)
				cmd.resultC <- resolveResult{ws: ws, err: err}
			case cmdFolderChange:
				removedWorkspaces, err := r.applyFolderChangeLocked(cmd.added, cmd.removed)
				cmd.folderChangeC <- folderChangeResult{removed: removedWorkspaces, err: err}
			case cmdSetCapabilities:
				r.applyCapabilitiesLocked(cmd.workspaceID, cmd.caps)
				close(cmd.doneC)
			}
		}
	}
}

// resolveLocked implements spec.md §4.4 steps 2-6. Only ever called from the
// serial loop goroutine.
func (r *router) resolveLocked(did entity.DocumentId) (*entity.Workspace, error) {
	r.cacheMu.RLock()
	if ws, ok := r.cache[did]; ok {
		r.cacheMu.RUnlock()
		return ws, nil
	}
	r.cacheMu.RUnlock()

	// Step 3: first explicit-or-implicit workspace whose build-server
	// manager claims a target covering the document.
	for _, e := range r.entries {
		if e.ws.BuildServerManager != nil && e.ws.BuildServerManager.Claims(r.baseCtx, did) {
			r.storeInCache(did, e.ws)
			return e.ws, nil
		}
	}

	// Step 4: implicit discovery walk, bounded by the union of explicit
	// workspace root URIs. A freshly discovered workspace can also be a
	// better match for documents already cached against the step-5
	// fallback, so the whole cache is invalidated and a re-open pass
	// scheduled, exactly as a folder-list mutation would.
	if ws := r.discoverImplicitWorkspace(did); ws != nil {
		oldCache := r.invalidateCacheLocked()
		r.storeInCache(did, ws)
		r.scheduleReopenPass(oldCache)
		return ws, nil
	}

	// Step 5: fall back to the first workspace in the list.
	if len(r.entries) > 0 {
		ws := r.entries[0].ws
		r.storeInCache(did, ws)
		return ws, nil
	}

	return nil, &schederrors.WorkspaceNotOpenError{Document: did}
}

// discoverImplicitWorkspace walks the document's parent directories upward,
// bounded by the union of explicit workspace root URIs, consulting the
// detection chain at each level.
func (r *router) discoverImplicitWorkspace(did entity.DocumentId) *entity.Workspace {
	if r.detect == nil {
		return nil
	}

	docPath := did.URI.Filename()
	if docPath == "" {
		return nil
	}

	bound := r.explicitRootBound()
	existingConfigPaths := r.existingConfigPaths()

	dir := filepath.Dir(docPath)
	for {
		det, ok, err := r.detect.Detect(r.baseCtx, dir)
		if err != nil && r.logger != nil {
			r.logger.Warn("workspace: detection error", zap.String("dir", dir), zap.Error(err))
		}
		if ok && !existingConfigPaths[det.ConfigPath] {
			rootURI := string(uri.File(dir))
			ws := entity.NewWorkspace(rootURI, rootURI, r.newBSM(rootURI), true)
			r.entries = append(r.entries, workspaceEntry{ws: ws, isImplicit: true})
			return ws
		}

		parent := filepath.Dir(dir)
		if parent == dir || !strings.HasPrefix(dir, bound) {
			return nil
		}
		dir = parent
	}
}

// explicitRootBound returns the longest common path prefix of every
// explicit workspace's root URI, used to bound the upward walk so it never
// escapes the client's declared folders entirely.
func (r *router) explicitRootBound() string {
	bound := ""
	first := true
	for _, e := range r.entries {
		if e.isImplicit {
			continue
		}
		p := uri.URI(e.ws.RootURI).Filename()
		if first {
			bound, first = p, false
			continue
		}
		n := 0
		for n < len(bound) && n < len(p) && bound[n] == p[n] {
			n++
		}
		bound = bound[:n]
	}
	return bound
}

func (r *router) existingConfigPaths() map[string]bool {
	// Placeholder set of config paths already claimed by an existing
	// workspace; populated from each workspace's own bookkeeping once a
	// build-server manager records its source config file. Kept empty here
	// since BuildServerManager is an out-of-scope collaborator contract.
	return map[string]bool{}
}

func (r *router) storeInCache(did entity.DocumentId, ws *entity.Workspace) {
	r.cacheMu.Lock()
	r.cache[did] = ws
	r.cacheMu.Unlock()
}

// invalidateCacheLocked clears the entire cache. Spec.md realizes
// UriToWorkspaceCache as a weak map so dead entries vanish naturally; this
// core substitutes bulk invalidation on every list mutation, preserving the
// same observable invariant (a cache hit always names the workspace that
// currently claims the document).
func (r *router) invalidateCacheLocked() map[entity.DocumentId]*entity.Workspace {
	r.cacheMu.Lock()
	old := r.cache
	r.cache = make(map[entity.DocumentId]*entity.Workspace)
	r.cacheMu.Unlock()
	return old
}

// applyFolderChangeLocked rebuilds the entry list: explicit workspaces
// matching a removed folder, and every implicit workspace (since an implicit
// workspace's validity depends on the explicit list that bounded its
// discovery walk, step 4 always rediscovers it fresh if still needed), are
// dropped; one new explicit workspace is appended per added folder. It
// reports every dropped workspace so the caller can hand them to
// langservice.Directory's CollectOrphans (spec.md §4.5).
func (r *router) applyFolderChangeLocked(added, removed []protocol.WorkspaceFolder) ([]*entity.Workspace, error) {
	removedURIs := make(map[string]bool, len(removed))
	for _, f := range removed {
		removedURIs[f.URI] = true
	}

	var droppedWorkspaces []*entity.Workspace
	kept := r.entries[:0:0]
	for _, e := range r.entries {
		if e.isImplicit {
			droppedWorkspaces = append(droppedWorkspaces, e.ws)
			continue
		}
		if removedURIs[e.ws.RootURI] {
			droppedWorkspaces = append(droppedWorkspaces, e.ws)
			continue
		}
		kept = append(kept, e)
	}
	for _, f := range added {
		kept = append(kept, workspaceEntry{ws: entity.NewWorkspace(f.URI, f.URI, r.newBSM(f.URI), false)})
	}
	r.entries = kept

	oldCache := r.invalidateCacheLocked()
	r.scheduleReopenPass(oldCache)

	return droppedWorkspaces, nil
}

// applyCapabilitiesLocked updates one workspace's capabilities and triggers
// a re-open pass when FileHandling changed, per spec.md §4.4.
func (r *router) applyCapabilitiesLocked(workspaceID string, caps entity.Capabilities) {
	for i := range r.entries {
		ws := r.entries[i].ws
		if ws.ID != workspaceID {
			continue
		}
		if ws.Capabilities.FileHandling != caps.FileHandling {
			oldCache := r.invalidateCacheLocked()
			defer r.scheduleReopenPass(oldCache)
		}
		ws.Capabilities = caps
		return
	}
}

// scheduleReopenPass submits the Re-open pass (spec.md §4.4) as a
// GlobalConfigurationChange task so it drains strictly after outstanding
// document operations, per the scheduling rules. oldCache is the cache
// snapshot from immediately before invalidation: every document it names is
// re-resolved, and any whose workspace actually changed is closed in its old
// workspace and reopened in its new one (spec.md §3 invariant 1).
func (r *router) scheduleReopenPass(oldCache map[entity.DocumentId]*entity.Workspace) {
	if r.queue == nil {
		return
	}
	r.queue.Enqueue(r.baseCtx, entity.PendingTask{
		Class: entity.Global(),
		Body: func(ctx context.Context) (interface{}, error) {
			r.runReopenPass(ctx, oldCache)
			return nil, nil
		},
	})
}

// runReopenPass re-resolves every document named in oldCache and, for each
// one whose resolved workspace actually changed, closes it against the
// services bound in its old workspace and reopens it against the services
// bound in its new one, using the text/language/version this router tracked
// from the document's didOpen/didChange notifications. Runs on the
// scheduler worker goroutine that drained this task, not the router's own
// serial loop goroutine, so the backend I/O below never blocks Resolve/
// OnFolderChange/SetCapabilities for unrelated documents.
func (r *router) runReopenPass(ctx context.Context, oldCache map[entity.DocumentId]*entity.Workspace) {
	if r.directory == nil {
		return
	}
	for did, oldWS := range oldCache {
		newWS, err := r.Resolve(ctx, did)
		if err != nil {
			// No longer resolvable against the current list (e.g. its
			// workspace was removed and nothing claims it); leave it bound
			// to the old workspace rather than guessing a replacement.
			continue
		}
		if newWS == oldWS {
			continue
		}

		state := r.docStateFor(did)
		if state == nil {
			// Never observed open by this process (e.g. restored from a
			// stale cache entry); nothing to replay.
			continue
		}

		oldRefs := oldWS.LanguageServices(did)
		for _, ref := range oldRefs {
			if svc := r.directory.ServiceFor(ref); svc != nil {
				if err := svc.CloseDocument(ctx, did); err != nil && r.logger != nil {
					r.logger.Warn("workspace: closing document during re-open pass", zap.Error(err))
				}
			}
		}
		oldWS.UnbindDocument(did)

		newRefs, err := r.directory.EnsureService(ctx, did, state.language, newWS)
		if err != nil {
			if r.logger != nil {
				r.logger.Warn("workspace: ensuring service during re-open pass", zap.Error(err))
			}
			continue
		}
		for _, ref := range newRefs {
			if svc := r.directory.ServiceFor(ref); svc != nil {
				if err := svc.OpenDocument(ctx, did, state.language, state.text, state.version); err != nil && r.logger != nil {
					r.logger.Warn("workspace: reopening document during re-open pass", zap.Error(err))
				}
			}
		}
	}
}
