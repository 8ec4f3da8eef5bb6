package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkMUS(t *testing.T) {
	chunk := Chunk{
		ID:         ChunkID("trial.pdf", 3, 1, "Drug X reduced symptoms."),
		DocID:      "trial.pdf",
		PageNum:    3,
		ChunkIndex: 1,
		Text:       "Drug X reduced symptoms.",
		SourceURI:  "file:///data/trial.pdf",
		Vector:     []float32{0.6, -0.8, 0},
	}

	buf := make([]byte, ChunkMUS.Size(chunk))
	n := ChunkMUS.Marshal(chunk, buf)
	assert.Equal(t, len(buf), n)

	got, m, err := ChunkMUS.Unmarshal(buf)
	require.NoError(t, err)
	assert.Equal(t, n, m)
	assert.Equal(t, chunk, got)
}

func TestSessionInfoMUS(t *testing.T) {
	created := time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC)
	info := SessionInfo{ID: "s1", Chunks: 12, Tables: 2, CreatedAt: created, UpdatedAt: created.Add(time.Minute)}

	buf := make([]byte, SessionInfoMUS.Size(info))
	SessionInfoMUS.Marshal(info, buf)

	got, _, err := SessionInfoMUS.Unmarshal(buf)
	require.NoError(t, err)
	assert.Equal(t, info.ID, got.ID)
	assert.Equal(t, info.Chunks, got.Chunks)
	assert.Equal(t, info.Tables, got.Tables)
	assert.True(t, got.CreatedAt.Equal(info.CreatedAt))
	assert.True(t, got.UpdatedAt.Equal(info.UpdatedAt))
}

func TestTableMUS_Truncated(t *testing.T) {
	tbl := Table{Name: "Outcomes", Columns: []string{"Arm", "Rate"}, Rows: [][]string{{"Drug X", "34%"}}}
	buf := make([]byte, TableMUS.Size(tbl))
	TableMUS.Marshal(tbl, buf)

	_, _, err := TableMUS.Unmarshal(buf[:len(buf)/2])
	assert.Error(t, err)
}
