package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeAndLoadFrom(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Initialize(dir, "birds")
	require.NoError(t, err)
	assert.Equal(t, "birds", cfg.ProjectName)
	assert.Equal(t, LabelingConfig, cfg.LabelingConfigPath)

	root := filepath.Join(dir, Dir)
	assert.DirExists(t, root)
	assert.DirExists(t, filepath.Join(root, BlobsDir))

	loaded, err := LoadFrom(root)
	require.NoError(t, err)
	assert.Equal(t, "birds", loaded.ProjectName)
	assert.Equal(t, root, loaded.Path())
}

func TestInitialize_RefusesExisting(t *testing.T) {
	dir := t.TempDir()
	_, err := Initialize(dir, "once")
	require.NoError(t, err)

	_, err = Initialize(dir, "twice")
	assert.Error(t, err)
}

func TestConfig_Paths(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Initialize(dir, "paths")
	require.NoError(t, err)

	root := filepath.Join(dir, Dir)
	assert.Equal(t, filepath.Join(root, StateFile), cfg.StatePath())
	assert.Equal(t, filepath.Join(root, ResultsFile), cfg.ResultsPath())
	assert.Equal(t, filepath.Join(root, BlobsDir), cfg.BlobsPath())
	assert.Equal(t, filepath.Join(root, LabelingConfig), cfg.LabelingPath())

	// Absolute labeling config paths pass through untouched.
	abs := filepath.Join(dir, "elsewhere.yaml")
	cfg.LabelingConfigPath = abs
	assert.Equal(t, abs, cfg.LabelingPath())
}

func TestConfig_SaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Initialize(dir, "roundtrip")
	require.NoError(t, err)

	cfg.CreatedBy = "annotator@example.com"
	cfg.AllowDrawOutside = true
	require.NoError(t, cfg.Save())

	loaded, err := LoadFrom(cfg.Path())
	require.NoError(t, err)
	assert.Equal(t, "annotator@example.com", loaded.CreatedBy)
	assert.True(t, loaded.AllowDrawOutside)
}

func TestLoadFrom_MissingConfig(t *testing.T) {
	_, err := LoadFrom(t.TempDir())
	assert.Error(t, err)
}

func TestFindRoot(t *testing.T) {
	dir := t.TempDir()
	_, err := Initialize(dir, "findme")
	require.NoError(t, err)

	nested := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))

	wd, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { os.Chdir(wd) })
	require.NoError(t, os.Chdir(nested))

	root, err := FindRoot()
	require.NoError(t, err)
	// Compare resolved paths; temp dirs may sit behind symlinks.
	want, _ := filepath.EvalSymlinks(filepath.Join(dir, Dir))
	got, _ := filepath.EvalSymlinks(root)
	assert.Equal(t, want, got)
}
