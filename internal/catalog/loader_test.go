package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dekdek-app/dekdek/internal/models"
)

func TestLoadBundledCatalog(t *testing.T) {
	catalogDir := filepath.Join("..", "..", "catalog")
	if _, err := os.Stat(catalogDir); os.IsNotExist(err) {
		t.Skip("catalog directory not found, skipping")
	}

	loader := NewLoader(zap.NewNop())
	require.NoError(t, loader.LoadFromDir(catalogDir))

	seqs := loader.List()
	require.Len(t, seqs, len(models.Aspects()))
	for i, aspect := range models.Aspects() {
		assert.Equal(t, aspect, seqs[i].Aspect)
		assert.NotEmpty(t, seqs[i].Items)
	}

	gm := loader.Get(models.AspectGM)
	require.NotNil(t, gm)
	assert.Equal(t, "ด้านการเคลื่อนไหว", gm.Name)
	assert.Equal(t, models.None, gm.Items[0].DeviceName)
}

func TestLoadFromFileOrdersAndDefaults(t *testing.T) {
	dir := t.TempDir()
	content := `aspect: fm
items:
  - id: 2
    age_range: "3-4"
    name: second
  - id: 1
    age_range: "0-1"
    name: first
    image: fm_1.jpg
`
	path := filepath.Join(dir, "fm.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	loader := NewLoader(zap.NewNop())
	require.NoError(t, loader.LoadFromFile(path))

	seq := loader.Get(models.AspectFM)
	require.NotNil(t, seq)
	require.Len(t, seq.Items, 2)
	assert.Equal(t, 1, seq.Items[0].ID)
	assert.Equal(t, "fm_1.jpg", seq.Items[0].Image)
	assert.Equal(t, models.None, seq.Items[1].Image)
	assert.Equal(t, models.AspectFM, seq.Items[1].Aspect)

	assert.Equal(t, 2, seq.After(1).ID)
	assert.Nil(t, seq.After(2))
	assert.Nil(t, seq.Item(9))
	assert.Equal(t, 1, seq.Position(2))
}

func TestLoadFromFileRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"bad-aspect.yaml": "aspect: XX\nitems:\n  - id: 1\n    name: a\n",
		"empty.yaml":      "aspect: GM\nitems: []\n",
		"dup.yaml":        "aspect: GM\nitems:\n  - id: 1\n    name: a\n  - id: 1\n    name: b\n",
		"noname.yaml":     "aspect: GM\nitems:\n  - id: 1\n",
	}

	loader := NewLoader(zap.NewNop())
	for name, content := range cases {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		assert.Error(t, loader.LoadFromFile(path), name)
	}

	assert.Error(t, loader.LoadFromDir(dir))
	assert.Empty(t, loader.List())
}
