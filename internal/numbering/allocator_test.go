package numbering

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocatorStartsAfterFloor(t *testing.T) {
	a := NewAllocator(filepath.Join(t.TempDir(), "invoice_numbering.json"))

	assert.Equal(t, 785, a.Peek())

	n, err := a.Allocate()
	require.NoError(t, err)
	assert.Equal(t, 785, n)
}

func TestAllocatorIsMonotonicAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invoice_numbering.json")

	var got []int
	for i := 0; i < 5; i++ {
		n, err := NewAllocator(path).Allocate()
		require.NoError(t, err)
		got = append(got, n)
	}

	assert.Equal(t, []int{785, 786, 787, 788, 789}, got)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"current_invoice_number": 789}`, string(data))
}

func TestPeekDoesNotMutate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invoice_numbering.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"current_invoice_number": 899}`), 0o644))

	a := NewAllocator(path)
	assert.Equal(t, 900, a.Peek())
	assert.Equal(t, 900, a.Peek())

	n, err := a.Allocate()
	require.NoError(t, err)
	assert.Equal(t, 900, n)
	assert.Equal(t, 901, a.Peek())
}

func TestCorruptCounterFallsBackToDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invoice_numbering.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	n, err := NewAllocator(path).Allocate()
	require.NoError(t, err)
	assert.Equal(t, 785, n)
}

func TestAllocateFailsWhenStateCannotBeSaved(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, err := NewAllocator(filepath.Join(blocker, "invoice_numbering.json")).Allocate()
	assert.Error(t, err)
}
