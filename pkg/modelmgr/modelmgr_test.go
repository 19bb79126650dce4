package modelmgr_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/snapthinkllm/snapthinkllm/pkg/modelmgr"
)

func TestParseInventory(t *testing.T) {
	out := `NAME                       ID              SIZE      MODIFIED
llama3:8b                  365c0bd3c000    4.7 GB    3 weeks ago
nomic-embed-text:latest    0a109f422b47    274 MB    2 days ago
`

	list := modelmgr.ParseInventory(out)
	require.Len(t, list, 2)

	assert.Equal(t, "llama3:8b", list[0].Name)
	assert.Equal(t, "365c0bd3c000", list[0].ID)
	assert.Equal(t, "4.7 GB", list[0].SizeRaw)
	assert.InDelta(t, 4.7, list[0].SizeGB, 1e-9)

	assert.Equal(t, "nomic-embed-text:latest", list[1].Name)
	assert.Equal(t, "274 MB", list[1].SizeRaw)
	assert.InDelta(t, 274.0/1024, list[1].SizeGB, 1e-9)
}

func TestParseInventory_Empty(t *testing.T) {
	assert.Empty(t, modelmgr.ParseInventory(""))
	assert.Empty(t, modelmgr.ParseInventory("NAME  ID  SIZE  MODIFIED\n"))
}

func TestParseInventory_SkipsMalformedRows(t *testing.T) {
	out := `NAME  ID  SIZE  MODIFIED
garbage row
llama3:8b  365c0bd3c000  not-a-number GB  now
mistral:7b  a1b2c3d4e5f6  4.1 GB  5 days ago
`

	list := modelmgr.ParseInventory(out)
	require.Len(t, list, 1)
	assert.Equal(t, "mistral:7b", list[0].Name)
}

func TestParseProgress(t *testing.T) {
	tests := []struct {
		line string
		pct  float64
		ok   bool
	}{
		{"pulling 8934d96d3f08...  42% 2.0 GB/4.7 GB 52 MB/s", 42, true},
		{"pulling manifest", 0, false},
		{"downloading 99.5% almost there", 99.5, true},
		{"verifying sha256 digest", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		pct, ok := modelmgr.ParseProgress(tt.line)
		assert.Equal(t, tt.ok, ok, tt.line)
		if tt.ok {
			assert.InDelta(t, tt.pct, pct, 1e-9, tt.line)
		}
	}
}
