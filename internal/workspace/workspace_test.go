package workspace

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestPrepareCopiesLocalTree(t *testing.T) {
	src := t.TempDir()
	writeFile(t, src, "main.py", "print('hi')\n")
	writeFile(t, src, "lib/model.py", "import torch\n")
	writeFile(t, src, "node_modules/pkg/index.js", "ignored\n")
	writeFile(t, src, "README.md", "# proj\n")

	ws, err := Prepare(context.Background(), src)
	require.NoError(t, err)
	defer ws.Close()

	assert.NotEqual(t, src, ws.Dir, "analyzers must not operate on the caller's tree")

	files, err := ws.SourceFiles()
	require.NoError(t, err)
	require.Len(t, files, 2)

	var names []string
	for _, f := range files {
		rel, err := filepath.Rel(ws.Dir, f)
		require.NoError(t, err)
		names = append(names, filepath.ToSlash(rel))
	}
	assert.ElementsMatch(t, []string{"main.py", "lib/model.py"}, names)
}

func TestPrepareRejectsFilePath(t *testing.T) {
	src := t.TempDir()
	writeFile(t, src, "only.py", "x = 1\n")

	_, err := Prepare(context.Background(), filepath.Join(src, "only.py"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestSourceFilesSkipsVendoredTrees(t *testing.T) {
	src := t.TempDir()
	writeFile(t, src, "app.ts", "export {}\n")
	writeFile(t, src, "vendor/dep/dep.go", "package dep\n")
	writeFile(t, src, "venv/lib/site.py", "pass\n")
	writeFile(t, src, "__pycache__/app.cpython-312.pyc", "bin")

	ws, err := Prepare(context.Background(), src)
	require.NoError(t, err)
	defer ws.Close()

	files, err := ws.SourceFiles()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "app.ts", filepath.Base(files[0]))
}

func TestCloseIsIdempotent(t *testing.T) {
	src := t.TempDir()
	writeFile(t, src, "a.go", "package a\n")

	ws, err := Prepare(context.Background(), src)
	require.NoError(t, err)

	require.NoError(t, ws.Close())
	require.NoError(t, ws.Close())
	_, err = os.Stat(ws.Dir)
	assert.True(t, os.IsNotExist(err))
}

func TestIsRemote(t *testing.T) {
	assert.True(t, IsRemote("https://github.com/acme/proj"))
	assert.True(t, IsRemote("git@github.com:acme/proj.git"))
	assert.False(t, IsRemote("/home/dev/proj"))
	assert.False(t, IsRemote("./proj"))
}

func TestProjectName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"https://github.com/acme/proj", "proj"},
		{"https://github.com/acme/proj.git", "proj"},
		{"https://github.com/acme/proj/", "proj"},
		{"/home/dev/my-tool", "my-tool"},
		{"", "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, ProjectName(tt.input), tt.input)
	}
}
