// Package walog implements the append-only, fsync-on-ack journal that
// backs a single kvstore.Store: one JSON object per line, UTF-8,
// newline-terminated, replayed in order to reconstruct in-memory state
// after a restart.
package walog

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"

	"github.com/agentkv/kvstored/pkg/fs"
)

const maxLineSize = 16 * 1024 * 1024

// Log is an append-only journal file. Append durably persists one record
// before returning; Replay reconstructs a sequence of records from the
// file in append order. A Log is safe for concurrent use, though callers
// that need log-before-apply ordering (see kvstore.Store) still need their
// own lock around the append-plus-apply sequence.
type Log struct {
	fsys fs.FS
	path string

	mu     sync.Mutex
	file   fs.File
	closed bool

	// unreliable, when true, silently drops the fraction of Append
	// calls given by dropRate: the call returns nil as if the record were
	// durable, but nothing is written. This exists only so fault-injection
	// tests can exercise "ack implies durable" violations; it must never
	// be enabled by a production caller.
	unreliable bool
	dropRate   float64
	rng        *rand.Rand
}

// Option configures a Log at construction.
type Option func(*Log)

// WithUnreliable makes Append silently drop the given fraction (0.0-1.0)
// of writes without returning an error. Debug/test only.
func WithUnreliable(dropRate float64) Option {
	return func(l *Log) {
		l.unreliable = dropRate > 0
		l.dropRate = dropRate
	}
}

// Open opens (creating if necessary) the journal file at path for
// appending and takes an exclusive advisory lock on it so two Log
// instances never write to the same file concurrently. The directory is
// created lazily if it does not exist.
func Open(fsys fs.FS, path string, opts ...Option) (*Log, error) {
	if err := fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("walog: mkdir: %w: %w", ErrIO, err)
	}

	file, err := fsys.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("walog: open %q: %w: %w", path, ErrIO, err)
	}

	if err := lockFile(int(file.Fd())); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("walog: lock %q: %w", path, err)
	}

	l := &Log{
		fsys: fsys,
		path: path,
		file: file,
		rng:  rand.New(rand.NewPCG(1, 2)),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l, nil
}

// Append serializes rec to a single line and returns only after the OS has
// flushed and synced it to persistent media. Callers must not acknowledge
// the corresponding mutation until Append returns a nil error.
func (l *Log) Append(rec Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}

	if l.unreliable && l.rng.Float64() < l.dropRate {
		return nil
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("walog: marshal record: %w", err)
	}

	line = append(line, '\n')

	if _, err := l.file.Write(line); err != nil {
		return fmt.Errorf("walog: write: %w: %w", ErrIO, err)
	}

	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("walog: sync: %w: %w", ErrIO, err)
	}

	return nil
}

// Replay opens the journal for reading and invokes fn for every record
// that parses as valid JSON, in file order. Lines that fail to parse -
// including a truncated trailing record left by a crash mid-append - are
// skipped silently rather than treated as an error, so that recovery from
// a partial last write always succeeds. Replay does not affect the Log's
// append position; it reads the file independently of Append's handle.
func (l *Log) Replay(fn func(Record) error) error {
	reader, err := l.fsys.Open(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}

		return fmt.Errorf("walog: open for replay: %w: %w", ErrIO, err)
	}
	defer reader.Close()

	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var rec Record

		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}

		if err := fn(rec); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("walog: read: %w: %w", ErrIO, err)
	}

	return nil
}

// Close releases the advisory lock and closes the underlying file handle.
// Close is idempotent.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}

	l.closed = true

	unlockErr := unlockFile(int(l.file.Fd()))
	closeErr := l.file.Close()

	if unlockErr != nil {
		return fmt.Errorf("walog: unlock: %w", unlockErr)
	}

	if closeErr != nil {
		return fmt.Errorf("walog: close: %w", closeErr)
	}

	return nil
}
