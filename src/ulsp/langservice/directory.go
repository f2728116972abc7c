package langservice

import (
	"context"
	"sync"

	"go.lsp.dev/protocol"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/uber/ulsp-core/src/ulsp/entity"
	schederrors "github.com/uber/ulsp-core/src/ulsp/scheduler/errors"
)

// Directory is the Language-Service Directory contract.
type Directory interface {
	// EnsureService implements spec.md §4.5's Ensure-service procedure.
	EnsureService(ctx context.Context, did entity.DocumentId, language protocol.LanguageIdentifier, ws *entity.Workspace) ([]*entity.LanguageServiceRef, error)
	// HandleCrash replays open documents bound to a crashed ref onto its
	// rebuilt replacement.
	HandleCrash(ctx context.Context, ws *entity.Workspace, ref *entity.LanguageServiceRef)
	// Shutdown concurrently shuts down every running service. Idempotent.
	Shutdown(ctx context.Context) error
	// CollectOrphans shuts down, in the background, every running service
	// bound to one of the removed workspaces, unless its kind is immortal.
	CollectOrphans(ctx context.Context, removed []*entity.Workspace)

	// ServiceFor resolves the running Service instance behind a ref, for
	// the Request Dispatcher to forward a method call onto. Returns nil if
	// the ref no longer has a running instance (e.g. after Shutdown).
	ServiceFor(ref *entity.LanguageServiceRef) Service
}

type running struct {
	ref *entity.LanguageServiceRef
	svc Service
}

type directory struct {
	logger     *zap.Logger
	factory    Factory
	precedence map[protocol.LanguageIdentifier][]entity.ServiceKind

	runSet sync.Map // entity.LanguageServiceKey -> *running

	closeOnce sync.Once
	closeCh   chan struct{}
}

// New constructs a Language-Service Directory. precedence maps a language
// identifier to the declared, ordered list of service kinds that must all
// successfully start for that language (spec.md §4.5 step 3).
func New(logger *zap.Logger, factory Factory, precedence map[protocol.LanguageIdentifier][]entity.ServiceKind) Directory {
	return &directory{
		logger:     logger,
		factory:    factory,
		precedence: precedence,
		closeCh:    make(chan struct{}),
	}
}

func (d *directory) EnsureService(ctx context.Context, did entity.DocumentId, language protocol.LanguageIdentifier, ws *entity.Workspace) ([]*entity.LanguageServiceRef, error) {
	if existing := ws.LanguageServices(did); existing != nil {
		return existing, nil
	}

	target, err := ws.BuildServerManager.CanonicalTarget(ctx, did)
	if err != nil {
		return nil, &schederrors.NoLanguageServiceForDocumentError{Document: did}
	}
	toolchain, err := ws.BuildServerManager.Toolchain(ctx, target, language)
	if err != nil {
		return nil, &schederrors.NoLanguageServiceForDocumentError{Document: did}
	}

	kinds := d.precedence[language]
	refs := make([]*entity.LanguageServiceRef, 0, len(kinds))
	for _, kind := range kinds {
		r, err := d.ensureOne(ctx, kind, toolchain, ws)
		if err != nil {
			// spec.md §4.5 step 3: stop trying lower-precedence kinds; a
			// partial stack produces incorrect behavior.
			return nil, err
		}
		refs = append(refs, r.ref)
	}

	if len(refs) == 0 {
		return nil, &schederrors.NoLanguageServiceForDocumentError{Document: did}
	}

	ws.BindLanguageServices(did, refs)
	return refs, nil
}

func (d *directory) ensureOne(ctx context.Context, kind entity.ServiceKind, toolchain entity.Toolchain, ws *entity.Workspace) (*running, error) {
	key := entity.LanguageServiceKey{Kind: kind, WorkspaceID: ws.ID, Toolchain: toolchain}

	if v, ok := d.runSet.Load(key); ok {
		r := v.(*running)
		if r.svc.CanHandle(ws, toolchain) {
			return r, nil
		}
	}

	svc := d.factory(kind, toolchain)
	ref := entity.NewLanguageServiceRef(kind, toolchain, ws.ID)

	if err := svc.Init(ctx, ws, toolchain); err != nil {
		return nil, err
	}

	result, err := svc.Initialize(ctx, &protocol.InitializeParams{})
	if err != nil {
		return nil, err
	}
	if !isIncrementalSync(result) {
		return nil, &schederrors.InternalError{Reason: "language service declared a non-incremental text-sync kind"}
	}
	if err := ref.CompareAndTransition(entity.ServiceStarting, entity.ServiceInitialized); err != nil {
		return nil, err
	}

	// Race-recovery: a concurrent EnsureService call may have started an
	// equivalent service for the same key while we awaited Initialize.
	candidate := &running{ref: ref, svc: svc}
	actual, loaded := d.runSet.LoadOrStore(key, candidate)
	if loaded {
		_ = svc.Shutdown(ctx)
		return actual.(*running), nil
	}

	if err := svc.ClientInitialized(ctx); err != nil {
		d.runSet.Delete(key)
		return nil, err
	}
	if err := ref.CompareAndTransition(entity.ServiceInitialized, entity.ServiceRunning); err != nil {
		return nil, err
	}
	go d.watchForCrash(ws, candidate)
	return candidate, nil
}

// watchForCrash reports r to HandleCrash the moment its backend's Done
// channel closes, unless the Directory is shutting down or r has already
// been replaced (a deliberate Shutdown/CollectOrphans/HandleCrash removes
// the key from runSet first, so the lookup below tells the two apart).
func (d *directory) watchForCrash(ws *entity.Workspace, r *running) {
	select {
	case <-r.svc.Done():
	case <-d.closeCh:
		return
	}

	key := entity.LanguageServiceKey{Kind: r.ref.Kind, WorkspaceID: r.ref.WorkspaceID, Toolchain: r.ref.Toolchain}
	if v, ok := d.runSet.Load(key); !ok || v.(*running) != r {
		return
	}
	d.HandleCrash(context.Background(), ws, r.ref)
}

// isIncrementalSync reports whether the backend's declared text
// synchronization kind is incremental, per spec.md §4.5 step 3's fail-fast
// requirement.
func isIncrementalSync(result *protocol.InitializeResult) bool {
	if result == nil {
		return false
	}
	switch sync := result.Capabilities.TextDocumentSync.(type) {
	case protocol.TextDocumentSyncKind:
		return sync == protocol.TextDocumentSyncKindIncremental
	case protocol.TextDocumentSyncOptions:
		return sync.Change == protocol.TextDocumentSyncKindIncremental
	case *protocol.TextDocumentSyncOptions:
		return sync != nil && sync.Change == protocol.TextDocumentSyncKindIncremental
	default:
		return false
	}
}

func (d *directory) HandleCrash(ctx context.Context, ws *entity.Workspace, ref *entity.LanguageServiceRef) {
	if err := ref.CompareAndTransition(ref.State(), entity.ServiceCrashed); err != nil {
		d.logf("langservice: crash transition failed: %v", err)
	}

	key := entity.LanguageServiceKey{Kind: ref.Kind, WorkspaceID: ref.WorkspaceID, Toolchain: ref.Toolchain}
	d.runSet.Delete(key)
	rebuilt, err := d.ensureOne(ctx, ref.Kind, ref.Toolchain, ws)
	if err != nil {
		d.logf("langservice: failed to rebuild crashed service: %v", err)
		return
	}
	// ensureOne already stored rebuilt under key and started its own crash
	// watcher via the race-recovery path or the fresh-start path above.
	d.runSet.Store(key, rebuilt)

	for _, did := range ws.OpenDocuments() {
		refs := ws.LanguageServices(did)
		for _, r := range refs {
			if r != ref {
				continue
			}
			_ = rebuilt.svc.CloseDocument(ctx, did)
			_ = rebuilt.svc.OpenDocument(ctx, did, "", "", 0)
		}
	}
}

func (d *directory) Shutdown(ctx context.Context) error {
	d.closeOnce.Do(func() { close(d.closeCh) })

	g, gctx := errgroup.WithContext(ctx)
	var merr error
	var mu sync.Mutex

	d.runSet.Range(func(key, value interface{}) bool {
		r := value.(*running)
		g.Go(func() error {
			if err := r.svc.Shutdown(gctx); err != nil {
				mu.Lock()
				merr = multierr.Append(merr, err)
				mu.Unlock()
			}
			return nil
		})
		d.runSet.Delete(key)
		return true
	})

	_ = g.Wait()
	return merr
}

func (d *directory) CollectOrphans(ctx context.Context, removed []*entity.Workspace) {
	removedIDs := make(map[string]bool, len(removed))
	for _, ws := range removed {
		removedIDs[ws.ID] = true
	}

	var toShutdown []*running
	d.runSet.Range(func(key, value interface{}) bool {
		k := key.(entity.LanguageServiceKey)
		r := value.(*running)
		if !removedIDs[k.WorkspaceID] {
			return true
		}
		if r.svc.IsImmortal() {
			return true
		}
		toShutdown = append(toShutdown, r)
		d.runSet.Delete(key)
		return true
	})

	if len(toShutdown) == 0 {
		return
	}
	go func() {
		g, gctx := errgroup.WithContext(ctx)
		for _, r := range toShutdown {
			r := r
			g.Go(func() error { return r.svc.Shutdown(gctx) })
		}
		if err := g.Wait(); err != nil {
			d.logf("langservice: orphan shutdown error: %v", err)
		}
	}()
}

func (d *directory) ServiceFor(ref *entity.LanguageServiceRef) Service {
	var found Service
	d.runSet.Range(func(_, value interface{}) bool {
		r := value.(*running)
		if r.ref == ref {
			found = r.svc
			return false
		}
		return true
	})
	return found
}

func (d *directory) logf(format string, args ...interface{}) {
	if d.logger == nil {
		return
	}
	d.logger.Sugar().Errorf(format, args...)
}
