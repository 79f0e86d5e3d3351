package collection

import (
	"context"
	"errors"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/erazemk/galerija/internal/transfer"
)

// maxEncoders bounds how many pending items are read and encoded at once.
const maxEncoders = 4

// BuildDelta snapshots c as a transfer delta. Pending items are read and
// encoded concurrently; if any of them cannot be read the whole build fails
// with transfer.ErrUnreadableSource and no delta is returned.
func (c Collection) BuildDelta(ctx context.Context) (transfer.Delta, error) {
	entries := make([]transfer.Entry, len(c.items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxEncoders)

	for i, it := range c.items {
		order := i + 1
		if it.Origin == Persisted {
			entries[i] = transfer.Reference(order, it.ID)
			continue
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := readSource(it.source)
			if err != nil {
				return fmt.Errorf("%w: item %s: %v", transfer.ErrUnreadableSource, it.ID, err)
			}
			if len(data) == 0 {
				return fmt.Errorf("%w: item %s is empty", transfer.ErrUnreadableSource, it.ID)
			}
			entries[i] = transfer.Inline(order, data, it.ContentType)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return transfer.Delta{}, err
	}

	d := transfer.Delta{Entries: entries}
	for _, it := range c.removed {
		d.Removals = append(d.Removals, it.ID)
	}
	return d, nil
}

func readSource(src Source) ([]byte, error) {
	if src == nil {
		return nil, errors.New("no source")
	}
	rc, err := src.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
