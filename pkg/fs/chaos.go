package fs

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"sync"
)

// ChaosConfig controls fault injection for [Chaos]. The Log Writer's
// durability contract (spec.md §4.1: "fails with IoError on write or
// sync failure") only ever needs to fail a write or a sync, so that is
// the only fault surface modeled here - unlike a general-purpose fs
// chaos wrapper that fakes faults across every FS/File operation, a
// surface this project has no caller for.
//
// The zero value disables all fault injection.
type ChaosConfig struct {
	// WriteFailRate controls how often File.Write fails entirely,
	// returning zero bytes written and an error.
	WriteFailRate float64

	// SyncFailRate controls how often File.Sync (fsync) fails.
	SyncFailRate float64
}

// ErrChaos is wrapped by every error Chaos injects.
var ErrChaos = errors.New("fs: chaos: injected failure")

// Chaos wraps an [FS] and injects deterministic, seeded write/sync
// failures into files it opens, so a test can exercise "the log append
// never reached persistent media" without needing a real disk fault.
type Chaos struct {
	fs     FS
	config ChaosConfig

	mu  sync.Mutex
	rng *rand.Rand
}

// NewChaos wraps fsys, injecting failures per config. seed makes a run
// deterministic: the same seed and config always inject faults at the
// same points in the same call sequence. Panics if fsys is nil.
func NewChaos(fsys FS, seed uint64, config *ChaosConfig) *Chaos {
	if fsys == nil {
		panic("fs is nil")
	}

	var cfg ChaosConfig
	if config != nil {
		cfg = *config
	}

	return &Chaos{
		fs:     fsys,
		config: cfg,
		rng:    rand.New(rand.NewPCG(seed, seed)),
	}
}

func (c *Chaos) shouldFail(rate float64) bool {
	if rate <= 0 {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.rng.Float64() < rate
}

func (c *Chaos) wrap(file File, err error) (File, error) {
	if err != nil {
		return nil, err
	}

	return &chaosFile{File: file, chaos: c}, nil
}

// Open opens path for reading via the wrapped FS. Reads are never
// faulted (out of this project's fault surface), so this is a
// passthrough that still wraps the handle for API symmetry.
func (c *Chaos) Open(path string) (File, error) {
	f, err := c.fs.Open(path)
	return c.wrap(f, err)
}

// Create creates or truncates path for writing via the wrapped FS.
func (c *Chaos) Create(path string) (File, error) {
	f, err := c.fs.Create(path)
	return c.wrap(f, err)
}

// OpenFile opens path with flag/perm via the wrapped FS; the returned
// File's Write and Sync are subject to fault injection.
func (c *Chaos) OpenFile(path string, flag int, perm os.FileMode) (File, error) {
	f, err := c.fs.OpenFile(path, flag, perm)
	return c.wrap(f, err)
}

// ReadFile is a passthrough to the wrapped FS.
func (c *Chaos) ReadFile(path string) ([]byte, error) {
	return c.fs.ReadFile(path)
}

// WriteFile is a passthrough to the wrapped FS.
func (c *Chaos) WriteFile(path string, data []byte, perm os.FileMode) error {
	return c.fs.WriteFile(path, data, perm)
}

// ReadDir is a passthrough to the wrapped FS.
func (c *Chaos) ReadDir(path string) ([]os.DirEntry, error) {
	return c.fs.ReadDir(path)
}

// MkdirAll is a passthrough to the wrapped FS.
func (c *Chaos) MkdirAll(path string, perm os.FileMode) error {
	return c.fs.MkdirAll(path, perm)
}

// Stat is a passthrough to the wrapped FS.
func (c *Chaos) Stat(path string) (os.FileInfo, error) {
	return c.fs.Stat(path)
}

// Exists is a passthrough to the wrapped FS.
func (c *Chaos) Exists(path string) (bool, error) {
	return c.fs.Exists(path)
}

// Remove is a passthrough to the wrapped FS.
func (c *Chaos) Remove(path string) error {
	return c.fs.Remove(path)
}

// RemoveAll is a passthrough to the wrapped FS.
func (c *Chaos) RemoveAll(path string) error {
	return c.fs.RemoveAll(path)
}

// Rename is a passthrough to the wrapped FS.
func (c *Chaos) Rename(oldpath, newpath string) error {
	return c.fs.Rename(oldpath, newpath)
}

// Compile-time interface check.
var _ FS = (*Chaos)(nil)

// chaosFile wraps a [File], faulting Write and Sync per the owning
// Chaos's config. Every other method passes through unmodified.
type chaosFile struct {
	File
	chaos *Chaos
}

func (f *chaosFile) Write(p []byte) (int, error) {
	if f.chaos.shouldFail(f.chaos.config.WriteFailRate) {
		return 0, fmt.Errorf("write: %w", ErrChaos)
	}

	return f.File.Write(p)
}

func (f *chaosFile) Sync() error {
	if f.chaos.shouldFail(f.chaos.config.SyncFailRate) {
		return fmt.Errorf("sync: %w", ErrChaos)
	}

	return f.File.Sync()
}

// Compile-time interface check.
var _ File = (*chaosFile)(nil)
