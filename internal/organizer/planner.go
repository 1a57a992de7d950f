package organizer

import (
	"os"
	"path/filepath"
	"sync"
)

// Planner places the outputs of one run. A destination handed to one input is
// never handed to another input of the same run, even with overwrite set:
// overwrite only covers files that existed before the run. The same input
// placed twice (a re-saved export in watch mode) gets its earlier destination
// back. A Planner is safe for concurrent use.
type Planner struct {
	outDir    string
	suffix    string
	overwrite bool

	mu      sync.Mutex
	claimed map[string]string // absolute destination -> absolute source
}

// NewPlanner creates a Planner. An empty outDir places each output beside
// its input.
func NewPlanner(outDir, suffix string, overwrite bool) *Planner {
	return &Planner{
		outDir:    outDir,
		suffix:    suffix,
		overwrite: overwrite,
		claimed:   make(map[string]string),
	}
}

// Place claims a destination for inputPath and creates its directory.
func (p *Planner) Place(inputPath string) (*Placement, error) {
	dir := p.dirFor(inputPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		if os.IsPermission(err) {
			return nil, &PlacementError{Type: PermissionDenied, Path: dir, Err: err}
		}
		return nil, err
	}
	return p.Plan(inputPath), nil
}

// Plan claims a destination for inputPath without touching the file system.
func (p *Planner) Plan(inputPath string) *Placement {
	p.mu.Lock()
	defer p.mu.Unlock()

	dir := p.dirFor(inputPath)
	source := absPath(inputPath)
	name := OutputName(filepath.Base(inputPath), p.suffix)
	placement := &Placement{SourcePath: inputPath}

	chosen := freeName(name, func(candidate string) bool {
		path := filepath.Join(dir, candidate)
		if owner, ok := p.claimed[absPath(path)]; ok {
			return owner != source
		}
		return !p.overwrite && FileExists(path)
	})
	if chosen != name {
		placement.OriginalName = name
		placement.IsDuplicate = true
	}

	placement.DestinationPath = filepath.Join(dir, chosen)
	p.claimed[absPath(placement.DestinationPath)] = source
	return placement
}

func (p *Planner) dirFor(inputPath string) string {
	if p.outDir == "" {
		return filepath.Dir(inputPath)
	}
	return p.outDir
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
