package repository

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-tracker/internal/common"
	"github.com/joseph-ayodele/invoice-tracker/internal/entity"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()
	db, err := Open(ctx, Config{Driver: "sqlite", DSN: "file:" + filepath.Join(t.TempDir(), "invoices.db")}, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(db.Close)
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	// idempotent
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
	return db
}

func sampleInvoice(supplier string, created time.Time) *entity.Invoice {
	return &entity.Invoice{
		Supplier:       entity.Str(supplier),
		Total:          entity.Str("$14.00"),
		InvoiceNumber:  entity.Str("INV-1"),
		Currency:       entity.Str("USD"),
		LineItemsCount: entity.Int(2),
		Confidence:     0.93,
		AIEnhanced:     true,
		RawText:        "ACME\nTotal $14.00",
		SourceName:     "acme.pdf",
		ContentHash:    "hash-" + supplier,
		CreatedAt:      created,
		LineItems: []entity.LineItem{
			{Description: entity.Str("Printer paper"), Quantity: entity.Str("2"), Amount: entity.Str("10.00"),
				RawText: "2 Printer paper 10.00", Category: "office"},
			{Description: entity.Str("Mystery box"), Amount: entity.Str("4.00"), RawText: "Mystery box $4.00",
				Category: "entertainment", Subcategory: entity.Str("games"), AIConfidence: entity.Int(61), AICategorized: true},
		},
	}
}

func TestInvoiceRepository_CreateGet(t *testing.T) {
	ctx := context.Background()
	repo := NewInvoiceRepository(openTestDB(t), nil)

	in := sampleInvoice("ACME", time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC))
	saved, err := repo.Create(ctx, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if saved.ID == uuid.Nil || in.ID != uuid.Nil {
		t.Fatalf("id assignment: saved=%s input=%s", saved.ID, in.ID)
	}

	got, err := repo.Get(ctx, saved.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.CreatedAt.Equal(saved.CreatedAt) {
		t.Errorf("created_at = %v, want %v", got.CreatedAt, saved.CreatedAt)
	}
	got.CreatedAt = saved.CreatedAt
	if !reflect.DeepEqual(got, saved) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, saved)
	}
	if got.Date != nil || got.PaymentTerms != nil || got.LineItems[0].AIConfidence != nil {
		t.Error("nulls should stay nil")
	}

	byHash, err := repo.GetByHash(ctx, "hash-ACME")
	if err != nil || byHash.ID != saved.ID {
		t.Errorf("GetByHash = %v, %v", byHash, err)
	}

	if _, err := repo.Get(ctx, uuid.New()); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("missing Get err = %v", err)
	}
	if _, err := repo.GetByHash(ctx, "nope"); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("missing GetByHash err = %v", err)
	}
}

func TestInvoiceRepository_List(t *testing.T) {
	ctx := context.Background()
	repo := NewInvoiceRepository(openTestDB(t), nil)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"first", "second", "third"} {
		inv := sampleInvoice(name, base.Add(time.Duration(i)*time.Hour))
		if name == "second" {
			inv.LineItems = nil
		}
		if _, err := repo.Create(ctx, inv); err != nil {
			t.Fatalf("Create %s: %v", name, err)
		}
	}

	all, err := repo.List(ctx, ListFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var names []string
	for _, inv := range all {
		names = append(names, entity.Deref(inv.Supplier))
	}
	if !reflect.DeepEqual(names, []string{"third", "second", "first"}) {
		t.Errorf("order = %v", names)
	}
	if len(all[0].LineItems) != 2 || len(all[1].LineItems) != 0 || all[1].LineItems == nil {
		t.Errorf("line items = %d / %v", len(all[0].LineItems), all[1].LineItems)
	}
	if entity.Deref(all[0].LineItems[0].Description) != "Printer paper" || entity.Deref(all[0].LineItems[1].Description) != "Mystery box" {
		t.Error("line items out of position order")
	}

	page, err := repo.List(ctx, ListFilter{Limit: 1, Offset: 1})
	if err != nil || len(page) != 1 || entity.Deref(page[0].Supplier) != "second" {
		t.Errorf("paged = %v, %v", page, err)
	}
}

func TestHealthCheck(t *testing.T) {
	if err := openTestDB(t).HealthCheck(context.Background(), time.Second); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), Config{Driver: "mysql"}, nil); err == nil {
		t.Error("expected error")
	}
}
