package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/erazemk/galerija/internal/collection"
	"github.com/erazemk/galerija/internal/imaging"
	"github.com/erazemk/galerija/internal/transfer"
)

type uploadOptions struct {
	removals    []string
	moves       []string
	name        string
	description string
}

func newUploadCommand(ctx *commandContext) *cobra.Command {
	var opts uploadOptions

	cmd := &cobra.Command{
		Use:   "upload <product> [files...]",
		Short: "Edit and submit the image collection of a product",
		Long: `Loads the stored images of a product, applies the requested edits and
submits the result. Removals run first, then moves, then the files are
appended in the given order. Positions are 1-based.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			product := args[0]

			coll := collection.New(collection.Config{
				Capacity:     cfg.Collection.Capacity,
				AllowedTypes: cfg.Collection.AllowedTypes,
			})

			c := ctx.client()
			coll, _, err = c.Hydrate(cmd.Context(), product, coll)
			if err != nil {
				return fmt.Errorf("load %s: %w", product, err)
			}

			coll, err = applyEdits(coll, opts, args[1:])
			if err != nil {
				return err
			}

			var meta transfer.Metadata
			if cmd.Flags().Changed("name") {
				meta.ProductName = &opts.name
			}
			if cmd.Flags().Changed("description") {
				meta.Description = &opts.description
			}

			resp, err := c.Submit(cmd.Context(), product, meta, coll)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, resp.Message)
			if len(resp.Images) > 0 {
				fmt.Fprintln(out, renderImages(resp.Images))
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&opts.removals, "remove", nil, "Remove the stored image with this id (repeatable)")
	cmd.Flags().StringArrayVar(&opts.moves, "move", nil, "Move the image at position from to position to, as from:to (repeatable)")
	cmd.Flags().StringVar(&opts.name, "name", "", "Product name")
	cmd.Flags().StringVar(&opts.description, "description", "", "Product description")
	return cmd
}

// applyEdits runs removals, moves and additions against a hydrated
// collection.
func applyEdits(coll collection.Collection, opts uploadOptions, files []string) (collection.Collection, error) {
	var err error
	for _, id := range opts.removals {
		idx := coll.IndexOf(id)
		if idx < 0 {
			return coll, fmt.Errorf("image %s is not in the collection", id)
		}
		if coll, err = coll.Remove(idx); err != nil {
			return coll, fmt.Errorf("remove %s: %w", id, err)
		}
	}

	for _, arg := range opts.moves {
		from, to, err := parseMove(arg)
		if err != nil {
			return coll, err
		}
		if coll, err = coll.Reorder(from, to); err != nil {
			return coll, fmt.Errorf("move %s: %w", arg, err)
		}
	}

	if len(files) == 0 {
		return coll, nil
	}
	batch := make([]collection.Upload, 0, len(files))
	for _, path := range files {
		contentType, err := detectContentType(path)
		if err != nil {
			return coll, err
		}
		batch = append(batch, collection.Upload{
			Source:      collection.FileSource(path),
			ContentType: contentType,
		})
	}
	coll, _, err = coll.AddAll(batch)
	if err != nil {
		return coll, fmt.Errorf("add files: %w", err)
	}
	return coll, nil
}

// parseMove parses a 1-based "from:to" pair into 0-based positions.
func parseMove(arg string) (int, int, error) {
	fromText, toText, ok := strings.Cut(arg, ":")
	if !ok {
		return 0, 0, fmt.Errorf("invalid move %q: expected from:to", arg)
	}
	from, err := strconv.Atoi(strings.TrimSpace(fromText))
	if err != nil || from < 1 {
		return 0, 0, fmt.Errorf("invalid move %q: positions start at 1", arg)
	}
	to, err := strconv.Atoi(strings.TrimSpace(toText))
	if err != nil || to < 1 {
		return 0, 0, fmt.Errorf("invalid move %q: positions start at 1", arg)
	}
	return from - 1, to - 1, nil
}

// detectContentType sniffs the first bytes of path.
func detectContentType(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return imaging.Sniff(head[:n]), nil
}
