package prompt

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPrompter(input string) (*Prompter, *bytes.Buffer) {
	var out bytes.Buffer
	return New(strings.NewReader(input), &out), &out
}

func TestChooseRetriesUntilValid(t *testing.T) {
	p, out := newPrompter("abc\n7\n2\n")

	i, err := p.Choose(context.Background(), "Select customer", 3)
	require.NoError(t, err)
	assert.Equal(t, 1, i)
	assert.Contains(t, out.String(), "Invalid input")
	assert.Contains(t, out.String(), "between 1 and 3")
}

func TestQuitAndEndOfInputCancel(t *testing.T) {
	p, _ := newPrompter("q\n")
	_, err := p.Choose(context.Background(), "Select", 3)
	assert.ErrorIs(t, err, ErrCancelled)

	p, _ = newPrompter("")
	_, err = p.Confirm(context.Background(), "Continue?", false)
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestContextCancelsPendingRead(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	p := New(r, io.Discard)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Line(ctx, "> ")
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestConfirm(t *testing.T) {
	p, _ := newPrompter("\nmaybe\nja\nN\n")
	ctx := context.Background()

	ok, err := p.Confirm(ctx, "Send?", true)
	require.NoError(t, err)
	assert.True(t, ok, "empty answer takes the default")

	ok, err = p.Confirm(ctx, "Send?", false)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.Confirm(ctx, "Send?", true)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAskAndRequired(t *testing.T) {
	p, out := newPrompter("\n\n\nAcme ApS\n")
	ctx := context.Background()

	s, err := p.Ask(ctx, "Date", "2025-09-29")
	require.NoError(t, err)
	assert.Equal(t, "2025-09-29", s)
	assert.Contains(t, out.String(), "Date [2025-09-29]: ")

	s, err = p.Required(ctx, "Customer name", "")
	require.NoError(t, err)
	assert.Equal(t, "Acme ApS", s)
	assert.Equal(t, 2, strings.Count(out.String(), "required"))
}

func TestIntAndDecimal(t *testing.T) {
	p, _ := newPrompter("0\n90\nx\n612,50\n\n")
	ctx := context.Background()

	n, err := p.Int(ctx, "Minutes", 1)
	require.NoError(t, err)
	assert.Equal(t, 90, n)

	d, err := p.Decimal(ctx, "Rate", decimal.NewFromInt(500))
	require.NoError(t, err)
	assert.True(t, d.Equal(decimal.RequireFromString("612.5")))

	d, err = p.Decimal(ctx, "Discount", decimal.Zero)
	require.NoError(t, err)
	assert.True(t, d.IsZero())
}

func TestParseSelection(t *testing.T) {
	tests := []struct {
		in      string
		want    []int
		wantErr bool
	}{
		{"all", []int{0, 1, 2, 3}, false},
		{"1,3", []int{0, 2}, false},
		{" 2 - 4 ", []int{1, 2, 3}, false},
		{"3,1,3", []int{2, 0}, false},
		{"5", nil, true},
		{"1,x", nil, true},
		{"3-1", nil, true},
		{",", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSelection(tt.in, 4)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelect(t *testing.T) {
	p, out := newPrompter("9\n1,2\n")

	idx, err := p.Select(context.Background(), "Selection", 2)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, idx)
	assert.Contains(t, out.String(), "invalid task number: 9")
}
