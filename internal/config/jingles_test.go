package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeertmans/jinglebox/internal/model"
)

func writeJingles(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jingles.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadJingles(t *testing.T) {
	path := writeJingles(t, `
[[jingles]]
name = "Game start"
file = "/sounds/start.ogg"
offset = "0s"
anchor = "start"

[[jingles]]
name = "Halftime horn"
file = "/sounds/horn.wav"
offset = "1m30s"
anchor = "half"

[[jingles]]
file = "/sounds/end.mp3"
anchor = "end"
`)

	jingles, err := LoadJingles(path)
	require.NoError(t, err)
	require.Len(t, jingles, 3)

	assert.Equal(t, "Game start", jingles[0].Name)
	assert.Equal(t, model.AnchorStart, jingles[0].Anchor)
	assert.Equal(t, 90*time.Second, jingles[1].Offset)
	assert.Equal(t, model.AnchorHalf, jingles[1].Anchor)
	assert.Equal(t, "Unnamed", jingles[2].DisplayName())
	assert.Equal(t, model.AnchorEnd, jingles[2].Anchor)
}

func TestLoadJingles_NumericOffsets(t *testing.T) {
	// Older files store offsets as plain seconds
	path := writeJingles(t, `
[[jingles]]
name = "Integer seconds"
file = "/sounds/a.ogg"
offset = 90

[[jingles]]
name = "Float seconds"
file = "/sounds/b.ogg"
offset = 2.5
`)

	jingles, err := LoadJingles(path)
	require.NoError(t, err)
	require.Len(t, jingles, 2)

	assert.Equal(t, 90*time.Second, jingles[0].Offset)
	assert.Equal(t, 2500*time.Millisecond, jingles[1].Offset)
	// Missing anchor defaults to start
	assert.Equal(t, model.AnchorStart, jingles[0].Anchor)
}

func TestLoadJingles_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "missing file",
			content: `
[[jingles]]
name = "No file"
`,
		},
		{
			name: "bad anchor",
			content: `
[[jingles]]
file = "/sounds/a.ogg"
anchor = "middle"
`,
		},
		{
			name: "bad offset string",
			content: `
[[jingles]]
file = "/sounds/a.ogg"
offset = "soonish"
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadJingles(writeJingles(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadJingles_FileNotFound(t *testing.T) {
	_, err := LoadJingles("/nonexistent/jingles.toml")
	assert.Error(t, err)
}

func TestSaveJingles_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "jingles.toml")

	jingles := []model.Jingle{
		{Name: "Horn", File: "/sounds/horn.ogg", Offset: 2 * time.Minute, Anchor: model.AnchorEnd},
	}

	require.NoError(t, SaveJingles(path, jingles))

	loaded, err := LoadJingles(path)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, jingles[0], loaded[0])
}
