// Package numbering hands out sequential invoice numbers from a small JSON
// state file.
package numbering

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"faktura/internal/fsutil"
	"faktura/internal/logger"
)

// DefaultFloor is the counter value assumed when no state exists. The first
// number handed out is DefaultFloor+1.
const DefaultFloor = 784

type state struct {
	Current int `json:"current_invoice_number"`
}

// Allocator owns the counter file. Every allocation is persisted before the
// number is returned, so numbers are never reused across runs.
type Allocator struct {
	path  string
	floor int
	log   zerolog.Logger
}

// NewAllocator creates an allocator for the counter file at path.
func NewAllocator(path string) *Allocator {
	return &Allocator{
		path:  path,
		floor: DefaultFloor,
		log:   logger.WithComponent("numbering"),
	}
}

// Peek returns the number the next Allocate call would return without
// changing any state.
func (a *Allocator) Peek() int {
	return a.current() + 1
}

// Allocate increments the counter, saves it and returns the new number.
func (a *Allocator) Allocate() (int, error) {
	const op = "Allocate"

	next := a.current() + 1
	if err := a.save(next); err != nil {
		return 0, fmt.Errorf("%s: failed to persist invoice number %d: %w", op, next, err)
	}

	a.log.Info().Int("invoice_number", next).Str("file", a.path).Msg("Allocated invoice number")
	return next, nil
}

// current reads the stored counter. A missing file is the normal first run;
// an unreadable one falls back to the floor with a warning.
func (a *Allocator) current() int {
	data, err := os.ReadFile(a.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			a.log.Warn().Err(err).Str("file", a.path).Int("fallback", a.floor).Msg("Could not read invoice counter, using default")
		}
		return a.floor
	}

	var s state
	if err := json.Unmarshal(data, &s); err != nil {
		a.log.Warn().Err(err).Str("file", a.path).Int("fallback", a.floor).Msg("Invoice counter is corrupt, using default")
		return a.floor
	}
	return s.Current
}

func (a *Allocator) save(n int) error {
	return fsutil.WriteJSON(a.path, state{Current: n})
}
