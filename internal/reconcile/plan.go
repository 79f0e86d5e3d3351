package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/erazemk/galerija/internal/model"
	"github.com/erazemk/galerija/internal/store"
	"github.com/erazemk/galerija/internal/transfer"
)

// step is one entry of the final layout.
type step struct {
	order int

	// Set for reference entries.
	ref *model.Image

	// Set for inline entries.
	data        []byte
	contentType string
}

// plan is a validated submit with every inline entry already decoded.
type plan struct {
	steps    []step
	removed  []model.Image
	implicit []model.Image
	skipped  []string
}

// dropped returns how many persisted images the plan deletes.
func (p *plan) dropped() int {
	return len(p.removed) + len(p.implicit)
}

func (r *Reconciler) plan(ctx context.Context, sub Submission, logger *slog.Logger) (*plan, error) {
	if !model.ValidProductID(sub.Product) {
		return nil, fmt.Errorf("%w: invalid product %q", transfer.ErrMalformedPayload, sub.Product)
	}
	if err := sub.Delta.Check(); err != nil {
		return nil, err
	}

	current, err := store.ListImages(ctx, r.db, sub.Product)
	if err != nil {
		return nil, fmt.Errorf("listing current images: %w", err)
	}
	byID := make(map[string]*model.Image, len(current))
	for i := range current {
		byID[current[i].ID] = &current[i]
	}

	p := &plan{}
	kept := make(map[string]bool, len(current))

	for _, e := range sub.Delta.Entries {
		switch e.Kind {
		case transfer.KindReference:
			img, ok := byID[e.RefID]
			if !ok {
				return nil, r.unknownReference(ctx, e.RefID)
			}
			kept[e.RefID] = true
			p.steps = append(p.steps, step{order: e.Order, ref: img})

		case transfer.KindInline:
			data, err := transfer.Decode(e.Encoded)
			if err != nil {
				return nil, fmt.Errorf("entry at order %d: %w", e.Order, err)
			}
			if len(data) == 0 {
				return nil, fmt.Errorf("entry at order %d: %w: empty image", e.Order, transfer.ErrDecode)
			}
			p.steps = append(p.steps, step{order: e.Order, data: data, contentType: e.ContentType})
		}
	}

	removing := make(map[string]bool, len(sub.Delta.Removals))
	for _, id := range sub.Delta.Removals {
		img, ok := byID[id]
		if !ok {
			p.skipped = append(p.skipped, id)
			continue
		}
		if !removing[id] {
			removing[id] = true
			p.removed = append(p.removed, *img)
		}
	}

	for _, img := range current {
		if !kept[img.ID] && !removing[img.ID] {
			p.implicit = append(p.implicit, img)
		}
	}

	if len(p.skipped) > 0 {
		logger.Debug("removals already absent", "ids", p.skipped)
	}
	for _, img := range p.implicit {
		logger.Warn("image dropped without explicit removal",
			slog.String("image_id", img.ID),
			slog.Int("order", img.Order),
		)
	}

	return p, nil
}

// unknownReference explains why id is not a current image of the product.
func (r *Reconciler) unknownReference(ctx context.Context, id string) error {
	img, err := store.GetImage(ctx, r.db, id)
	if err != nil {
		return fmt.Errorf("looking up image %s: %w", id, err)
	}
	if img != nil {
		return fmt.Errorf("%w: %s belongs to product %s", transfer.ErrUnknownReference, id, img.Product)
	}
	return fmt.Errorf("%w: %s", transfer.ErrUnknownReference, id)
}
