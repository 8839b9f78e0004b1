// Package ledger persists the set of gallery items that finished downloading.
package ledger

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Ledger is an insertion-ordered set of strings backed by a newline-delimited
// file. Every mutation rewrites the whole file before returning.
//
// A Ledger is safe for use by one process only. Two runs sharing the same
// file will overwrite each other's entries.
type Ledger struct {
	path string

	mu      sync.Mutex
	entries []string
	index   map[string]struct{}
}

// Open loads the ledger at path. A missing file yields an empty ledger.
func Open(path string) (*Ledger, error) {
	l := &Ledger{
		path:  path,
		index: make(map[string]struct{}),
	}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening ledger %s: %w", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		l.insert(strings.TrimSpace(sc.Text()))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading ledger %s: %w", path, err)
	}

	return l, nil
}

// Path returns the backing file path.
func (l *Ledger) Path() string {
	return l.path
}

// Contains reports whether entry has been recorded.
func (l *Ledger) Contains(entry string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.index[entry]
	return ok
}

// Add records entry and persists the ledger. Adding an entry that is already
// present does not touch the file.
func (l *Ledger) Add(entry string) error {
	return l.AddAll([]string{entry})
}

// AddAll records every entry and persists the ledger once.
func (l *Ledger) AddAll(entries []string) error {
	_, err := l.Merge(entries)
	return err
}

// Merge records every entry, persists the ledger if anything changed and
// returns the number of new entries. When the file cannot be written the new
// entries are dropped again, so the ledger never reports unsaved entries.
func (l *Ledger) Merge(entries []string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	before := len(l.entries)
	added := 0
	for _, e := range entries {
		if l.insert(strings.TrimSpace(e)) {
			added++
		}
	}
	if added == 0 {
		return 0, nil
	}

	if err := l.flush(); err != nil {
		for _, e := range l.entries[before:] {
			delete(l.index, e)
		}
		l.entries = l.entries[:before]
		return 0, err
	}
	return added, nil
}

// Entries returns a copy of the recorded entries in insertion order.
func (l *Ledger) Entries() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of recorded entries.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *Ledger) insert(entry string) bool {
	if entry == "" {
		return false
	}
	if _, ok := l.index[entry]; ok {
		return false
	}
	l.index[entry] = struct{}{}
	l.entries = append(l.entries, entry)
	return true
}

// flush writes the ledger to a temporary file next to the target and renames
// it into place so readers never see a truncated file.
func (l *Ledger) flush() error {
	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating ledger directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(l.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating ledger temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	for _, e := range l.entries {
		w.WriteString(e)
		w.WriteByte('\n')
	}

	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("writing ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing ledger temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), l.path); err != nil {
		return fmt.Errorf("replacing ledger %s: %w", l.path, err)
	}
	return nil
}
