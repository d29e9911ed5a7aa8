package component

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gocv.io/x/gocv"
)

// DefaultThumbnailDir is the directory thumbnails are written to when no other
// is configured.
const DefaultThumbnailDir = "extracted_components"

// ThumbnailSink receives the thumbnail of every accepted component.
type ThumbnailSink interface {
	// Save stores the thumbnail for the component with the given ID.
	Save(id int, thumbnail gocv.Mat) error
	// Finish is called once per run with the number of components saved.
	Finish(count int) error
}

// DirStore writes thumbnails as <Dir>/component_<id>.png. Files left over
// from earlier runs with higher IDs are kept unless PruneStale is set.
type DirStore struct {
	Dir        string
	PruneStale bool
}

// NewDirStore returns a store writing to dir.
func NewDirStore(dir string, pruneStale bool) *DirStore {
	if dir == "" {
		dir = DefaultThumbnailDir
	}
	return &DirStore{Dir: dir, PruneStale: pruneStale}
}

// Path returns the file path for the thumbnail with the given ID.
func (s *DirStore) Path(id int) string {
	return filepath.Join(s.Dir, fmt.Sprintf("component_%d.png", id))
}

// Save writes one thumbnail, creating the directory if needed.
func (s *DirStore) Save(id int, thumbnail gocv.Mat) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("create thumbnail dir: %w", err)
	}
	path := s.Path(id)
	if !gocv.IMWrite(path, thumbnail) {
		return fmt.Errorf("write %s failed", path)
	}
	return nil
}

// Finish removes stale thumbnails with IDs >= count when pruning is enabled.
func (s *DirStore) Finish(count int) error {
	if !s.PruneStale {
		return nil
	}
	matches, err := filepath.Glob(filepath.Join(s.Dir, "component_*.png"))
	if err != nil {
		return err
	}
	for _, path := range matches {
		name := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(path), "component_"), ".png")
		id, err := strconv.Atoi(name)
		if err != nil || id < count {
			continue
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("remove stale thumbnail: %w", err)
		}
	}
	return nil
}
