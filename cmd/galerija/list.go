package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/erazemk/galerija/internal/model"
	"github.com/erazemk/galerija/internal/transfer"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list [product]",
		Short: "List products, or the images of one product",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := ctx.client()
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				products, err := c.Products(cmd.Context())
				if err != nil {
					return err
				}
				if len(products) == 0 {
					fmt.Fprintln(out, "No products")
					return nil
				}
				fmt.Fprintln(out, renderProducts(products))
				return nil
			}

			listing, err := c.Fetch(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(listing.Images) == 0 {
				fmt.Fprintf(out, "No images for %s\n", listing.Product)
				return nil
			}
			fmt.Fprintln(out, renderImages(listing.Images))
			return nil
		},
	}
}

func renderProducts(products []model.Product) string {
	rows := make([][]string, 0, len(products))
	for _, p := range products {
		rows = append(rows, []string{
			p.ID,
			p.Name,
			p.UpdatedAt.Format("2006-01-02 15:04"),
		})
	}
	return renderTable([]column{{title: "Product"}, {title: "Name"}, {title: "Updated"}}, rows, "product")
}

func renderImages(images []transfer.ImageRef) string {
	rows := make([][]string, 0, len(images))
	for _, img := range images {
		rows = append(rows, []string{
			strconv.Itoa(img.Order),
			img.ID,
			img.FileType,
			img.URL,
		})
	}
	return renderTable(
		[]column{{title: "Order", numeric: true}, {title: "ID"}, {title: "Type"}, {title: "URL"}},
		rows,
		"image",
	)
}
