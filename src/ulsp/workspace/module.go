package workspace

import (
	"context"

	"go.lsp.dev/protocol"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/uber/ulsp-core/src/ulsp/entity"
	"github.com/uber/ulsp-core/src/ulsp/langservice"
	"github.com/uber/ulsp-core/src/ulsp/scheduler"
	"github.com/uber/ulsp-core/src/ulsp/workspace/detect"
)

// NewBSMFunc constructs the out-of-scope build-server manager collaborator
// for a workspace root. Production wiring of a real build-server manager is
// out of this core's scope (spec.md §6); the default binding below is a
// placeholder that claims nothing, present so the application graph wires
// end to end without an external collaborator.
type NewBSMFunc func(rootURI string) entity.BuildServerManager

// Module wires the Workspace Router into the application's fx graph. The
// client's workspace folders are not known at process boot, so the router
// starts empty; the Lifecycle Orchestrator calls OnFolderChange with the
// initialize request's folders once the connection is established.
var Module = fx.Options(
	fx.Provide(func() NewBSMFunc { return newNoopBSM }),
	fx.Provide(newRouter),
)

func newNoopBSM(rootURI string) entity.BuildServerManager {
	return &noopBSM{rootURI: rootURI}
}

type noopBSM struct{ rootURI string }

func (n *noopBSM) Targets(ctx context.Context, did entity.DocumentId) (map[entity.BuildTarget]struct{}, error) {
	return nil, nil
}
func (n *noopBSM) CanonicalTarget(ctx context.Context, did entity.DocumentId) (entity.BuildTarget, error) {
	return "", nil
}
func (n *noopBSM) Toolchain(ctx context.Context, target entity.BuildTarget, language protocol.LanguageIdentifier) (entity.Toolchain, error) {
	return "", nil
}
func (n *noopBSM) RegisterForChangeNotifications(ctx context.Context, did entity.DocumentId, language protocol.LanguageIdentifier) error {
	return nil
}
func (n *noopBSM) UnregisterForChangeNotifications(ctx context.Context, did entity.DocumentId) error {
	return nil
}
func (n *noopBSM) Shutdown(ctx context.Context) error { return nil }
func (n *noopBSM) Claims(ctx context.Context, did entity.DocumentId) bool {
	return false
}

func newRouter(lc fx.Lifecycle, logger *zap.Logger, queue scheduler.Queue, newBSM NewBSMFunc, det detect.Detector, directory langservice.Directory) Router {
	ctx, cancel := context.WithCancel(context.Background())
	r := New(Params{
		Logger:    logger,
		Queue:     queue,
		NewBSM:    func(rootURI string) entity.BuildServerManager { return newBSM(rootURI) },
		Detect:    det,
		Directory: directory,
		BaseCtx:   ctx,
	})
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
	return r
}
