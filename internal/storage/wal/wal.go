package wal

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotPending is returned when finishing a transaction that already
// reached a final status.
var ErrNotPending = errors.New("transaction not pending")

// WAL is the submit journal.
type WAL struct {
	dir    string
	mu     sync.Mutex
	logger *slog.Logger
}

// New opens the journal in dir, creating it if needed.
func New(dir string, logger *slog.Logger) (*WAL, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating journal directory %s: %w", dir, err)
	}

	probe := filepath.Join(dir, ".write_test")
	if err := os.WriteFile(probe, []byte("ok"), 0o640); err != nil {
		return nil, fmt.Errorf("journal directory %s not writable: %w", dir, err)
	}
	os.Remove(probe)

	return &WAL{
		dir:    dir,
		logger: logger.With(slog.String("component", "wal")),
	}, nil
}

// Begin records a new pending transaction for product.
func (w *WAL) Begin(product string) (*Entry, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	entry := &Entry{
		TransactionID: uuid.NewString(),
		Product:       product,
		Status:        StatusPending,
		StartedAt:     time.Now().UTC(),
	}
	if err := w.writeEntry(entry); err != nil {
		return nil, fmt.Errorf("writing journal entry: %w", err)
	}

	w.logger.Debug("transaction started",
		slog.String("tx_id", entry.TransactionID),
		slog.String("product", product),
	)
	return entry, nil
}

// Commit marks a pending transaction committed.
func (w *WAL) Commit(txID string) error {
	return w.finish(txID, StatusCommitted)
}

// Rollback marks a pending transaction rolled back.
func (w *WAL) Rollback(txID string) error {
	return w.finish(txID, StatusRolledBack)
}

func (w *WAL) finish(txID string, status Status) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	entry, err := w.readEntry(txID)
	if err != nil {
		return fmt.Errorf("reading journal entry %s: %w", txID, err)
	}
	if entry.Status != StatusPending {
		return fmt.Errorf("journal entry %s is %s: %w", txID, entry.Status, ErrNotPending)
	}

	now := time.Now().UTC()
	entry.Status = status
	entry.CompletedAt = &now
	if err := w.writeEntry(entry); err != nil {
		return fmt.Errorf("updating journal entry %s: %w", txID, err)
	}

	w.logger.Debug("transaction finished",
		slog.String("tx_id", txID),
		slog.String("status", string(status)),
		slog.Duration("duration", now.Sub(entry.StartedAt)),
	)
	return nil
}

// RecoverPending returns every entry still pending, oldest first.
func (w *WAL) RecoverPending() ([]*Entry, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	paths, err := filepath.Glob(filepath.Join(w.dir, "*.wal.json"))
	if err != nil {
		return nil, fmt.Errorf("scanning journal: %w", err)
	}

	var pending []*Entry
	for _, path := range paths {
		entry, err := w.readEntry(strings.TrimSuffix(filepath.Base(path), ".wal.json"))
		if err != nil {
			w.logger.Warn("unreadable journal entry", "path", path, "error", err)
			continue
		}
		if entry.Status == StatusPending {
			pending = append(pending, entry)
		}
	}

	slices.SortFunc(pending, func(a, b *Entry) int {
		return a.StartedAt.Compare(b.StartedAt)
	})
	return pending, nil
}

// Clean removes entries that reached a final status and returns how many.
func (w *WAL) Clean() (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	paths, err := filepath.Glob(filepath.Join(w.dir, "*.wal.json"))
	if err != nil {
		return 0, fmt.Errorf("scanning journal: %w", err)
	}

	cleaned := 0
	for _, path := range paths {
		entry, err := w.readEntry(strings.TrimSuffix(filepath.Base(path), ".wal.json"))
		if err != nil || entry.Status == StatusPending {
			continue
		}
		if err := os.Remove(path); err != nil {
			w.logger.Warn("removing journal entry", "path", path, "error", err)
			continue
		}
		cleaned++
	}

	if cleaned > 0 {
		w.logger.Info("journal cleaned", "entries", cleaned)
	}
	return cleaned, nil
}

// writeEntry stores entry atomically: temp file, fsync, rename.
func (w *WAL) writeEntry(entry *Entry) error {
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding entry: %w", err)
	}

	target := filepath.Join(w.dir, fileName(entry.TransactionID))
	tmp := target + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

func (w *WAL) readEntry(txID string) (*Entry, error) {
	data, err := os.ReadFile(filepath.Join(w.dir, fileName(txID)))
	if err != nil {
		return nil, err
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("decoding entry: %w", err)
	}
	return &entry, nil
}
