package terraform

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FSStore scans a local directory tree for *.tfstate files. Depth and file
// count are capped so a scan rooted in a home directory stays cheap.
type FSStore struct {
	root     string
	maxDepth int
	maxFiles int
}

// NewFSStore creates a filesystem store rooted at root. An empty root means
// the current working directory.
func NewFSStore(root string) *FSStore {
	return &FSStore{
		root:     root,
		maxDepth: 5,
		maxFiles: 50,
	}
}

var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	".terragrunt-cache": true,
}

// List walks the tree and returns tfstate sources sorted by path.
func (s *FSStore) List(ctx context.Context) ([]StateSource, error) {
	root := s.root
	if root == "" {
		var err error
		if root, err = os.Getwd(); err != nil {
			return nil, err
		}
	}

	var sources []StateSource
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			// Unreadable entries are skipped, not fatal.
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if len(sources) >= s.maxFiles {
			return filepath.SkipAll
		}

		rel, _ := filepath.Rel(root, path)
		if info.IsDir() {
			if skipDirs[info.Name()] {
				return filepath.SkipDir
			}
			if strings.Count(rel, string(filepath.Separator)) >= s.maxDepth {
				return filepath.SkipDir
			}
			return nil
		}

		if !strings.HasSuffix(info.Name(), ".tfstate") {
			return nil
		}
		// Near-empty files cannot hold a valid v4 document.
		if info.Size() < 10 {
			return nil
		}

		sources = append(sources, StateSource{
			Identity:  path,
			ModMarker: fileMarker(path),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(sources, func(i, j int) bool { return sources[i].Identity < sources[j].Identity })
	return sources, nil
}

// Fetch reads one state file.
func (s *FSStore) Fetch(_ context.Context, src StateSource) ([]byte, error) {
	return os.ReadFile(src.Identity)
}
