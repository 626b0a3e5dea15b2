// Package history keeps the ledger of play timestamps that were
// already submitted, so no play is ever reported twice across runs.
package history

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
)

// DefaultFileName is the ledger file kept next to the device databases,
// so the history travels with the device.
const DefaultFileName = "history.txt"

// History is an append-only ledger: one decimal unix timestamp per
// line. Entries loaded from disk and entries added during this run are
// both visible to Contains; Write flushes only the entries added since
// the last flush and never rewrites what a prior run persisted.
//
// One pipeline per ledger file at a time; there is no file locking.
type History struct {
	path    string
	seen    map[string]struct{}
	pending []string
}

// Open loads the ledger at path. A missing file is an empty history,
// not an error.
func Open(path string) (*History, error) {
	h := &History{path: path, seen: make(map[string]struct{})}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return h, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		h.seen[line] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	return h, nil
}

// Path returns the ledger file path.
func (h *History) Path() string {
	return h.path
}

// Contains reports whether playedAt was recorded, in this run or a
// previous one.
func (h *History) Contains(playedAt int64) bool {
	_, ok := h.seen[strconv.FormatInt(playedAt, 10)]
	return ok
}

// Add queues playedAt for the next Write. It is visible to Contains
// immediately.
func (h *History) Add(playedAt int64) {
	s := strconv.FormatInt(playedAt, 10)
	if _, ok := h.seen[s]; ok {
		return
	}
	h.seen[s] = struct{}{}
	h.pending = append(h.pending, s)
}

// Pending returns the number of entries queued but not yet written.
func (h *History) Pending() int {
	return len(h.pending)
}

// Write appends the pending entries to the ledger file and clears the
// buffer. It is called after every successfully submitted batch, so a
// crash between batches never loses what was already reported.
func (h *History) Write() error {
	if len(h.pending) == 0 {
		return nil
	}
	f, err := os.OpenFile(h.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	for _, line := range h.pending {
		if _, err := fmt.Fprintln(f, line); err != nil {
			f.Close()
			return fmt.Errorf("write history: %w", err)
		}
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	h.pending = h.pending[:0]
	return nil
}
