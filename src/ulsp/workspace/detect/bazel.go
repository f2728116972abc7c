package detect

import (
	"context"
	"path/filepath"

	"github.com/uber/ulsp-core/src/ulsp/internal/bazelproject"
	"github.com/uber/ulsp-core/src/ulsp/internal/fs"
)

// _projectViewFile is the conventional .bazelproject filename checked at the
// root of each candidate directory.
const _projectViewFile = ".bazelproject"

// BazelDetector detects a Bazel project root by the presence of a
// .bazelproject file, parsed with internal/bazelproject.ParseProjectView so
// that a malformed file is reported as an error. Files named by its import
// lines are not read.
type BazelDetector struct {
	FS fs.UlspFS
}

// NewBazelDetector constructs a BazelDetector.
func NewBazelDetector(ulspFS fs.UlspFS) *BazelDetector {
	return &BazelDetector{FS: ulspFS}
}

// Detect implements Detector.
func (b *BazelDetector) Detect(ctx context.Context, dir string) (Detection, bool, error) {
	configPath := filepath.Join(dir, _projectViewFile)

	exists, err := b.FS.FileExists(configPath)
	if err != nil {
		return Detection{}, false, err
	}
	if !exists {
		return Detection{}, false, nil
	}

	f, err := b.FS.Open(configPath)
	if err != nil {
		return Detection{}, false, err
	}
	defer f.Close()

	if _, err := bazelproject.ParseProjectView(f); err != nil {
		return Detection{}, false, err
	}

	return Detection{ConfigPath: configPath}, true, nil
}
