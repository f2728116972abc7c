package detect

import (
	"go.uber.org/fx"

	"github.com/uber/ulsp-core/src/ulsp/internal/fs"
)

// Module wires the default detection chain into the application's fx
// graph: Bazel takes precedence over a bare go.mod, matching the teacher's
// own primary build system.
var Module = fx.Provide(newDefaultChain)

func newDefaultChain(ulspFS fs.UlspFS) Detector {
	return Chain{
		NewBazelDetector(ulspFS),
		NewGoModDetector(ulspFS),
	}
}
