// Package workspace confines file paths supplied by API clients to a
// directory tree. The server uses it to restrict which local files
// upload_file may hand to a browser.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Guard enforces directory boundary restrictions on file paths.
// Relative paths are taken relative to the root; absolute paths must already
// lie under the root or a whitelisted directory. Symlinks are resolved before
// the check so a link cannot point outside the boundary.
type Guard struct {
	rootDir         string   // Absolute, symlink-free root
	whitelistedDirs []string // Additional allowed directories outside the root
}

// NewGuard creates a guard rooted at dir, which must exist.
func NewGuard(dir string) (*Guard, error) {
	if dir == "" {
		return nil, fmt.Errorf("workspace directory cannot be empty")
	}

	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace directory: %w", err)
	}

	evalPath, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate workspace directory symlinks: %w", err)
	}

	info, err := os.Stat(evalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat workspace directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace path '%s' is not a directory", dir)
	}

	return &Guard{
		rootDir:         evalPath,
		whitelistedDirs: make([]string, 0),
	}, nil
}

// Resolve returns the absolute, symlink-resolved form of path, or an error
// if it falls outside the boundary. This is what upload_file calls.
func (g *Guard) Resolve(path string) (string, error) {
	resolved, err := g.resolvePath(path)
	if err != nil {
		return "", err
	}
	if !g.isWithinWorkspace(resolved) {
		return "", fmt.Errorf("path '%s' is outside workspace boundaries", path)
	}
	return resolved, nil
}

// resolvePath converts a relative or absolute path to an absolute one
// without checking the boundary.
func (g *Guard) resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("path cannot be empty")
	}

	cleanPath := filepath.Clean(path)

	var absPath string
	if filepath.IsAbs(cleanPath) {
		absPath = cleanPath
	} else {
		absPath = filepath.Join(g.rootDir, cleanPath)
	}

	return resolveSymlinks(absPath), nil
}

// isWithinWorkspace reports whether absPath is the root, a descendant of it,
// or inside a whitelisted directory.
func (g *Guard) isWithinWorkspace(absPath string) bool {
	evalPath := resolveSymlinks(absPath)

	if isUnder(evalPath, g.rootDir) {
		return true
	}
	for _, whitelisted := range g.whitelistedDirs {
		if isUnder(evalPath, whitelisted) {
			return true
		}
	}
	return false
}

func isUnder(path, dir string) bool {
	return path == dir || strings.HasPrefix(path+string(filepath.Separator), dir+string(filepath.Separator))
}

// resolveSymlinks resolves symlinks in a path, handling non-existent paths
// by resolving the nearest existing parent and re-appending the rest.
func resolveSymlinks(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}

	var components []string
	currentPath := path

	for {
		if resolved, err := filepath.EvalSymlinks(currentPath); err == nil {
			result := resolved
			for i := len(components) - 1; i >= 0; i-- {
				result = filepath.Join(result, components[i])
			}
			return result
		}

		dir := filepath.Dir(currentPath)
		if dir == currentPath || dir == "." {
			return filepath.Clean(path)
		}

		components = append(components, filepath.Base(currentPath))
		currentPath = dir
	}
}

// WorkspaceDir returns the absolute path of the root directory.
func (g *Guard) WorkspaceDir() string {
	return g.rootDir
}
