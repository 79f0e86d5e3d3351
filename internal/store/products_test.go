package store

import (
	"context"
	"testing"

	"github.com/erazemk/galerija/internal/db"
)

func TestUpsertProductKeepsMetadataWhenNil(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	name, desc := "Running shoe", "Light and fast"
	if err := UpsertProduct(ctx, database, "shoe", &name, &desc, "tx-1"); err != nil {
		t.Fatalf("UpsertProduct: %v", err)
	}
	if err := UpsertProduct(ctx, database, "shoe", nil, nil, "tx-2"); err != nil {
		t.Fatalf("UpsertProduct: %v", err)
	}

	p, err := GetProduct(ctx, database, "shoe")
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if p.Name != name || p.Description != desc {
		t.Errorf("expected metadata to survive nil update, got %q / %q", p.Name, p.Description)
	}
	if p.LastTx != "tx-2" {
		t.Errorf("expected last_tx 'tx-2', got %q", p.LastTx)
	}
}

func TestGetProductNotFound(t *testing.T) {
	database := db.NewTestDB(t)

	p, err := GetProduct(context.Background(), database, "nope")
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if p != nil {
		t.Errorf("expected nil product, got %+v", p)
	}
}

func TestListProducts(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	UpsertProduct(ctx, database, "b", nil, nil, "")
	UpsertProduct(ctx, database, "a", nil, nil, "")

	products, err := ListProducts(ctx, database)
	if err != nil {
		t.Fatalf("ListProducts: %v", err)
	}
	if len(products) != 2 || products[0].ID != "a" {
		t.Errorf("expected [a b], got %+v", products)
	}
}
