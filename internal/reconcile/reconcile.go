package reconcile

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/galerija/internal/imaging"
	"github.com/erazemk/galerija/internal/metrics"
	"github.com/erazemk/galerija/internal/model"
	"github.com/erazemk/galerija/internal/storage/filestore"
	"github.com/erazemk/galerija/internal/storage/wal"
	"github.com/erazemk/galerija/internal/store"
	"github.com/erazemk/galerija/internal/transfer"
)

// Submission is one delta for one product. ProductName and Description are
// stored as given; nil keeps the stored value.
type Submission struct {
	Product     string
	ProductName *string
	Description *string
	Delta       transfer.Delta
}

// Result describes a committed submit.
type Result struct {
	Product string
	TxID    string
	Images  []model.Image
	Removed int
}

// Reconciler applies submits to the image index and the file tree.
type Reconciler struct {
	db      *sql.DB
	files   *filestore.FileStore
	journal *wal.WAL
	logger  *slog.Logger
	locks   keyedMutex
}

// New creates a Reconciler.
func New(db *sql.DB, files *filestore.FileStore, journal *wal.WAL, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		db:      db,
		files:   files,
		journal: journal,
		logger:  logger.With(slog.String("component", "reconcile")),
	}
}

// Apply reconciles sub against the product's stored images. It returns
// either the complete new image list or an error, and on error storage is
// left as it was. Once validation passes, cancelling ctx no longer stops
// the submit.
func (r *Reconciler) Apply(ctx context.Context, sub Submission) (*Result, error) {
	start := time.Now()
	logger := r.logger.With(slog.String("product", sub.Product))
	transition := func(s State, attrs ...any) {
		if s.Terminal() {
			logger.Info("submit "+string(s), append(attrs, "duration", time.Since(start))...)
			metrics.ObserveSubmit(string(s), time.Since(start))
			return
		}
		logger.Debug("submit state", append(attrs, "state", string(s))...)
	}

	transition(StateReceived, "entries", len(sub.Delta.Entries), "removals", len(sub.Delta.Removals))

	unlock := r.locks.Lock(sub.Product)
	defer unlock()

	transition(StateValidating)
	p, err := r.plan(ctx, sub, logger)
	if err != nil {
		transition(StateRolledBack, "error", err)
		return nil, err
	}

	transition(StateApplying)
	res, err := r.commit(context.WithoutCancel(ctx), sub, p, logger)
	if err != nil {
		transition(StateRolledBack, "error", err)
		return nil, err
	}

	metrics.AddImages(len(p.steps)-countRefs(p), p.dropped())
	transition(StateCommitted, "tx_id", res.TxID, "images", len(res.Images), "removed", res.Removed)
	return res, nil
}

func countRefs(p *plan) int {
	n := 0
	for _, s := range p.steps {
		if s.ref != nil {
			n++
		}
	}
	return n
}

func (r *Reconciler) commit(ctx context.Context, sub Submission, p *plan, logger *slog.Logger) (*Result, error) {
	entry, err := r.journal.Begin(sub.Product)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	txID := entry.TransactionID
	logger = logger.With(slog.String("tx_id", txID))

	undo := func(cause error) error {
		if err := r.files.Rollback(sub.Product, txID); err != nil {
			logger.Error("restoring files", "error", err)
		}
		if err := r.journal.Rollback(txID); err != nil {
			logger.Error("closing journal entry", "error", err)
		}
		return cause
	}

	staging, err := r.files.NewStaging(txID)
	if err != nil {
		return nil, undo(err)
	}

	images, err := r.stage(staging, sub.Product, p, logger)
	if err != nil {
		return nil, undo(err)
	}
	logger.Debug("staged", "dir", staging.Dir(), "files", len(images))

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, undo(fmt.Errorf("beginning transaction: %w", err))
	}
	if err := store.UpsertProduct(ctx, tx, sub.Product, sub.ProductName, sub.Description, txID); err != nil {
		tx.Rollback()
		return nil, undo(err)
	}
	if err := store.ReplaceImages(ctx, tx, sub.Product, images); err != nil {
		tx.Rollback()
		return nil, undo(err)
	}
	if err := r.files.Swap(sub.Product, staging); err != nil {
		tx.Rollback()
		return nil, undo(err)
	}
	if err := tx.Commit(); err != nil {
		return nil, undo(fmt.Errorf("committing transaction: %w", err))
	}

	// The index is committed from here on; Recover finishes anything left.
	if err := r.journal.Commit(txID); err != nil {
		logger.Error("closing journal entry", "error", err)
	}
	if err := r.files.Finish(txID); err != nil {
		logger.Warn("removing previous directory", "error", err)
	}

	return &Result{
		Product: sub.Product,
		TxID:    txID,
		Images:  images,
		Removed: p.dropped(),
	}, nil
}

// stage places every file of the final layout into staging and returns
// the matching rows, sorted by order.
func (r *Reconciler) stage(staging *filestore.Staging, product string, p *plan, logger *slog.Logger) ([]model.Image, error) {
	now := time.Now().UTC()
	images := make([]model.Image, 0, len(p.steps))

	for _, s := range p.steps {
		if s.ref != nil {
			img := *s.ref
			name := filestore.FileName(s.order, img.ContentType)
			if err := staging.Link(product, img.FileName, name); err != nil {
				return nil, err
			}
			img.Order = s.order
			img.FileName = name
			img.UpdatedAt = now
			images = append(images, img)
			continue
		}

		name := filestore.FileName(s.order, s.contentType)
		saved, err := staging.Write(name, bytes.NewReader(s.data))
		if err != nil {
			return nil, err
		}

		img := model.Image{
			ID:          uuid.NewString(),
			Product:     product,
			Order:       s.order,
			FileName:    name,
			ContentType: s.contentType,
			Size:        saved.Size,
			SHA256:      saved.Checksum,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if info, err := imaging.Probe(s.data); err == nil {
			img.Width, img.Height = info.Width, info.Height
			if !imaging.Matches(s.contentType, s.data) {
				logger.Warn("declared content type differs from image data",
					"order", s.order, "declared", s.contentType, "detected", info.MIME)
			}
		}
		images = append(images, img)
	}

	slices.SortFunc(images, func(a, b model.Image) int { return a.Order - b.Order })
	return images, nil
}

// Recover resolves submits that were interrupted before their journal
// entry was closed. A submit whose transaction id reached the product row
// committed and only needs cleanup; any other is rolled back. It returns
// the number of entries resolved.
func (r *Reconciler) Recover(ctx context.Context) (int, error) {
	pending, err := r.journal.RecoverPending()
	if err != nil {
		return 0, fmt.Errorf("reading journal: %w", err)
	}

	for _, e := range pending {
		unlock := r.locks.Lock(e.Product)
		outcome, err := r.resolve(ctx, e)
		unlock()
		if err != nil {
			return 0, fmt.Errorf("recovering %s: %w", e.TransactionID, err)
		}
		metrics.ObserveRecovery(outcome)
		r.logger.Warn("recovered interrupted submit",
			slog.String("tx_id", e.TransactionID),
			slog.String("product", e.Product),
			slog.String("outcome", outcome),
		)
	}

	if _, err := r.journal.Clean(); err != nil {
		r.logger.Warn("cleaning journal", "error", err)
	}
	return len(pending), nil
}

func (r *Reconciler) resolve(ctx context.Context, e *wal.Entry) (string, error) {
	product, err := store.GetProduct(ctx, r.db, e.Product)
	if err != nil {
		return "", err
	}

	if product != nil && product.LastTx == e.TransactionID {
		if err := r.files.Finish(e.TransactionID); err != nil {
			return "", err
		}
		if err := r.journal.Commit(e.TransactionID); err != nil {
			return "", err
		}
		return string(StateCommitted), nil
	}

	if err := r.files.Rollback(e.Product, e.TransactionID); err != nil {
		return "", err
	}
	if err := r.journal.Rollback(e.TransactionID); err != nil {
		return "", err
	}
	return string(StateRolledBack), nil
}
