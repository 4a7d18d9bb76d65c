// Package registry discovers GGUF model files on disk for the /models listing.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"visiond/internal/common/fsutil"
	"visiond/pkg/types"
)

// ScanDir lists *.gguf files under dir. Files whose name starts with
// "mmproj" are reported as projectors; everything else is a primary model.
// The ID is the full filename, the path is absolute.
func ScanDir(dir string) ([]types.Model, error) {
	expanded, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var models []types.Model
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(strings.ToLower(name), ".gguf") {
			continue
		}
		m := types.Model{
			ID:        name,
			Path:      filepath.Join(abs, name),
			Projector: strings.HasPrefix(strings.ToLower(name), "mmproj"),
		}
		if info, err := e.Info(); err == nil {
			m.SizeBytes = info.Size()
		}
		models = append(models, m)
	}
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
	return models, nil
}
