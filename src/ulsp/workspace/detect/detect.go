// Package detect implements the Workspace Router's build-system-detection
// step (spec §4.4 resolution algorithm, step 4): given a candidate
// directory, decide whether it is the root of a buildable project and, if
// so, produce the config path that identifies it.
package detect

import "context"

// Detection is the result of a successful build-system detection: the path
// to the build configuration file that was found, used by the Workspace
// Router to skip directories whose config already belongs to an existing
// workspace.
type Detection struct {
	ConfigPath string
}

// Detector inspects one directory and reports whether it roots a buildable
// project. Implementations must not walk parent or child directories
// themselves; the Workspace Router owns the walk.
type Detector interface {
	Detect(ctx context.Context, dir string) (Detection, bool, error)
}

// Chain tries each Detector in order, returning the first positive
// detection. Mirrors the Language-Service Directory's declared-precedence
// scan (spec §4.5 step 3) applied here to build-system kinds instead of
// language-service kinds.
type Chain []Detector

// Detect implements Detector.
func (c Chain) Detect(ctx context.Context, dir string) (Detection, bool, error) {
	for _, d := range c {
		det, ok, err := d.Detect(ctx, dir)
		if err != nil {
			return Detection{}, false, err
		}
		if ok {
			return det, true, nil
		}
	}
	return Detection{}, false, nil
}
