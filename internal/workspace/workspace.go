package workspace

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	git "github.com/go-git/go-git/v5"
)

// sourceExtensions are the file types the analyzers understand.
var sourceExtensions = map[string]bool{
	".py":  true,
	".rs":  true,
	".ts":  true,
	".tsx": true,
	".js":  true,
	".jsx": true,
	".go":  true,
}

// skipDirs are vendored or generated trees that would drown the signal.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"venv":         true,
	".venv":        true,
	"__pycache__":  true,
	"dist":         true,
	"build":        true,
	"target":       true,
}

// Workspace is a local checkout of the repository under analysis.
type Workspace struct {
	Dir     string
	cleanup func() error
}

// Prepare materializes the repository at input into a temp directory.
// A GitHub HTTPS URL is shallow-cloned; an absolute local path is copied
// so analyzers never touch the caller's tree.
func Prepare(ctx context.Context, input string) (*Workspace, error) {
	dir, err := os.MkdirTemp("", "project-analyzer-*")
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}

	ws := &Workspace{
		Dir:     dir,
		cleanup: func() error { return os.RemoveAll(dir) },
	}

	if IsRemote(input) {
		if err := clone(ctx, input, dir); err != nil {
			ws.Close()
			return nil, err
		}
		return ws, nil
	}

	if err := copyTree(input, dir); err != nil {
		ws.Close()
		return nil, err
	}
	return ws, nil
}

// IsRemote reports whether input names a remote repository rather than a
// local path.
func IsRemote(input string) bool {
	return strings.HasPrefix(input, "https://") ||
		strings.HasPrefix(input, "http://") ||
		strings.HasPrefix(input, "git@")
}

// Close removes the checkout. Safe to call more than once.
func (w *Workspace) Close() error {
	if w.cleanup == nil {
		return nil
	}
	fn := w.cleanup
	w.cleanup = nil
	return fn()
}

// SourceFiles walks the checkout and returns paths of analyzable source
// files, relative paths preserved under w.Dir.
func (w *Workspace) SourceFiles() ([]string, error) {
	return ListSourceFiles(w.Dir)
}

// ListSourceFiles walks dir and returns the analyzable source files under
// it, skipping vendored and generated trees.
func ListSourceFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if sourceExtensions[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk workspace: %w", err)
	}
	return files, nil
}

func clone(ctx context.Context, url, dir string) error {
	slog.Info("Cloning repository", "url", url)
	_, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:          url,
		Depth:        1,
		SingleBranch: true,
		Tags:         git.NoTags,
	})
	if err != nil {
		return fmt.Errorf("clone %s: %w", url, err)
	}
	return nil
}

func copyTree(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("read local path: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("local path %s is not a directory", src)
	}

	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return os.MkdirAll(filepath.Join(dst, rel), 0o755)
		}
		return copyFile(path, filepath.Join(dst, rel))
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

// ProjectName derives a human-readable project name from a repo URL or
// local path.
func ProjectName(input string) string {
	name := strings.TrimSuffix(input, ".git")
	name = strings.TrimRight(name, "/")
	if idx := strings.LastIndexAny(name, "/\\"); idx >= 0 {
		name = name[idx+1:]
	}
	if name == "" {
		return "unknown"
	}
	return name
}
