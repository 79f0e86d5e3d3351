package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/galerija/internal/model"
)

// UpsertProduct creates or updates a product row. Nil name or description
// leave the stored value untouched; lastTx is always overwritten.
func UpsertProduct(ctx context.Context, db DBTX, id string, name, description *string, lastTx string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO products (id, name, description, last_tx) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		     name        = COALESCE(excluded.name, products.name),
		     description = COALESCE(excluded.description, products.description),
		     last_tx     = excluded.last_tx,
		     updated_at  = CURRENT_TIMESTAMP`,
		id, nullString(name), nullString(description), lastTx,
	)
	if err != nil {
		return fmt.Errorf("upserting product: %w", err)
	}
	return nil
}

// GetProduct returns a product by ID, or nil if it does not exist.
func GetProduct(ctx context.Context, db DBTX, id string) (*model.Product, error) {
	p := &model.Product{}
	var name, description, lastTx sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT id, name, description, last_tx, updated_at FROM products WHERE id = ?`, id,
	).Scan(&p.ID, &name, &description, &lastTx, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting product: %w", err)
	}
	p.Name = name.String
	p.Description = description.String
	p.LastTx = lastTx.String
	return p, nil
}

// ListProducts returns all products ordered by ID.
func ListProducts(ctx context.Context, db DBTX) ([]model.Product, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name, description, last_tx, updated_at FROM products ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		var p model.Product
		var name, description, lastTx sql.NullString
		if err := rows.Scan(&p.ID, &name, &description, &lastTx, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}
		p.Name = name.String
		p.Description = description.String
		p.LastTx = lastTx.String
		products = append(products, p)
	}
	return products, rows.Err()
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
