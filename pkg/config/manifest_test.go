package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadRootManifest_ParsesRoots(t *testing.T) {
	path := writeManifest(t, `
roots:
  - name: document
    block_type: xml-fragment
  - name: comments
    block_type: array
`)

	m, err := LoadRootManifest(path)
	require.NoError(t, err)
	require.Len(t, m.Roots, 2)
	assert.Equal(t, "document", m.Roots[0].Name)
	assert.Equal(t, "xml-fragment", m.Roots[0].BlockType)
	assert.Equal(t, "comments", m.Roots[1].Name)
}

func TestLoadRootManifest_RejectsMissingName(t *testing.T) {
	path := writeManifest(t, `
roots:
  - block_type: array
`)
	_, err := LoadRootManifest(path)
	assert.Error(t, err)
}

func TestLoadRootManifest_RejectsMissingBlockType(t *testing.T) {
	path := writeManifest(t, `
roots:
  - name: document
`)
	_, err := LoadRootManifest(path)
	assert.Error(t, err)
}

func TestLoadRootManifest_MissingFile(t *testing.T) {
	_, err := LoadRootManifest(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
