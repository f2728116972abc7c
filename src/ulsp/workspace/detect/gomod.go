package detect

import (
	"context"
	"path/filepath"

	"golang.org/x/mod/modfile"

	"github.com/uber/ulsp-core/src/ulsp/internal/fs"
)

// _goModFile is the conventional Go module manifest filename.
const _goModFile = "go.mod"

// GoModDetector detects a Go module root by the presence of a well-formed
// go.mod file. Parsing with golang.org/x/mod/modfile (rather than a bare
// existence check) rejects a stray go.mod left over from an unrelated
// generator or scratch file.
type GoModDetector struct {
	FS fs.UlspFS
}

// NewGoModDetector constructs a GoModDetector.
func NewGoModDetector(ulspFS fs.UlspFS) *GoModDetector {
	return &GoModDetector{FS: ulspFS}
}

// Detect implements Detector.
func (g *GoModDetector) Detect(ctx context.Context, dir string) (Detection, bool, error) {
	configPath := filepath.Join(dir, _goModFile)

	exists, err := g.FS.FileExists(configPath)
	if err != nil {
		return Detection{}, false, err
	}
	if !exists {
		return Detection{}, false, nil
	}

	data, err := g.FS.ReadFile(configPath)
	if err != nil {
		return Detection{}, false, err
	}

	if _, err := modfile.ParseLax(configPath, data, nil); err != nil {
		return Detection{}, false, nil
	}

	return Detection{ConfigPath: configPath}, true, nil
}
