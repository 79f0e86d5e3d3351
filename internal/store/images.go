package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/galerija/internal/model"
)

const imageColumns = `id, product_id, position, file_name, content_type, size, sha256, width, height, created_at, updated_at`

// ListImages returns a product's images in collection order.
func ListImages(ctx context.Context, db DBTX, product string) ([]model.Image, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+imageColumns+` FROM images WHERE product_id = ? ORDER BY position`, product,
	)
	if err != nil {
		return nil, fmt.Errorf("listing images: %w", err)
	}
	defer rows.Close()

	var images []model.Image
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		images = append(images, *img)
	}
	return images, rows.Err()
}

// GetImage returns an image by ID, or nil if it does not exist.
func GetImage(ctx context.Context, db DBTX, id string) (*model.Image, error) {
	row := db.QueryRowContext(ctx, `SELECT `+imageColumns+` FROM images WHERE id = ?`, id)
	img, err := scanImage(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return img, err
}

// ReplaceImages makes images the complete image set of product. Rows not in
// images are deleted. The caller runs this inside a transaction.
func ReplaceImages(ctx context.Context, db DBTX, product string, images []model.Image) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM images WHERE product_id = ?`, product); err != nil {
		return fmt.Errorf("clearing images: %w", err)
	}

	now := time.Now().UTC()
	for _, img := range images {
		created := img.CreatedAt
		if created.IsZero() {
			created = now
		}
		_, err := db.ExecContext(ctx,
			`INSERT INTO images (`+imageColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			img.ID, product, img.Order, img.FileName, img.ContentType,
			img.Size, img.SHA256, img.Width, img.Height, created, now,
		)
		if err != nil {
			return fmt.Errorf("inserting image %s: %w", img.ID, err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanImage(row rowScanner) (*model.Image, error) {
	img := &model.Image{}
	err := row.Scan(&img.ID, &img.Product, &img.Order, &img.FileName, &img.ContentType,
		&img.Size, &img.SHA256, &img.Width, &img.Height, &img.CreatedAt, &img.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning image: %w", err)
	}
	return img, nil
}
