package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/GigiaJ/Beguile/internal/config"
)

func TestFindRepoRoot_DirectGitDir(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}

	got := findRepoRoot(root)
	assert.Equal(t, root, got)
}

func TestFindRepoRoot_NestedSubdirectory(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	deep := filepath.Join(root, "sub", "deep")
	if err := os.MkdirAll(deep, 0o755); err != nil {
		t.Fatal(err)
	}

	got := findRepoRoot(deep)
	assert.Equal(t, root, got)
}

func TestFindRepoRoot_NoGitAncestor(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	got := findRepoRoot(dir)
	assert.Equal(t, dir, got)
}

func TestValidateFormat(t *testing.T) {
	t.Parallel()
	assert.NoError(t, validateFormat("json"))
	assert.NoError(t, validateFormat("text"))
	assert.Error(t, validateFormat("yaml"))
}

func TestColorEnabled(t *testing.T) {
	t.Parallel()
	on, err := colorEnabled("always", 0)
	assert.NoError(t, err)
	assert.True(t, on)

	on, err = colorEnabled("never", 0)
	assert.NoError(t, err)
	assert.False(t, on)

	_, err = colorEnabled("sometimes", 0)
	assert.Error(t, err)
}

// The tests below touch package-level flag state and must not run in
// parallel with each other.

func TestResolveDBPath(t *testing.T) {
	defer func(db string, s *config.Config) { flagDB, settings = db, s }(flagDB, settings)
	root := t.TempDir()

	flagDB, settings = "", config.Default()
	settings.Resolve(root)
	assert.Equal(t, filepath.Join(root, ".beguile", "index.db"), resolveDBPath(root))

	flagDB = "custom/idx.db"
	assert.Equal(t, filepath.Join(root, "custom", "idx.db"), resolveDBPath(root))

	flagDB = "/abs/idx.db"
	assert.Equal(t, "/abs/idx.db", resolveDBPath(root))

	// A config file's db_path wins over the default location.
	flagDB = ""
	settings = config.Default()
	settings.Path = filepath.Join(root, "proj", config.FileName)
	settings.Resolve(root)
	assert.Equal(t, filepath.Join(root, "proj", ".beguile", "index.db"), resolveDBPath(root))
}
