package service

import (
	"bytes"
	"context"
	"database/sql"
	"image"
	"image/color"
	"image/png"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/erazemk/vitrina/internal/db"
	"github.com/erazemk/vitrina/internal/media"
	"github.com/erazemk/vitrina/internal/model"
)

type catalogFixture struct {
	svc    *CatalogService
	db     *sql.DB
	images *media.DiskStore
}

func newTestCatalog(t *testing.T) *catalogFixture {
	t.Helper()
	database := db.NewTestDB(t)
	images, err := media.NewDiskStore(filepath.Join(t.TempDir(), "uploads"))
	if err != nil {
		t.Fatal(err)
	}
	svc := NewCatalogService(database, images, media.NewSyncRemover(images, zerolog.Nop()), 0, zerolog.Nop())
	return &catalogFixture{svc: svc, db: database, images: images}
}

func (f *catalogFixture) files(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(f.images.Dir())
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func pngUpload(name string) *Upload {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{200, 30, 90, 255})
		}
	}
	var buf bytes.Buffer
	png.Encode(&buf, img)
	return &Upload{Filename: name, ContentType: "image/png", Data: buf.Bytes()}
}

func form(t *testing.T, kv ...string) ProductInput {
	t.Helper()
	values := url.Values{}
	for i := 0; i+1 < len(kv); i += 2 {
		values.Set(kv[i], kv[i+1])
	}
	in, err := DecodeProductForm(values)
	if err != nil {
		t.Fatalf("DecodeProductForm: %v", err)
	}
	return in
}

func TestCreateAndGetProduct(t *testing.T) {
	f := newTestCatalog(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, form(t,
		"name", "Rose Eau de Parfum",
		"description", "Damask rose and oud",
		"price", "89.90",
		"category", "perfume",
		"stock", "4",
		"featured", "true",
	), nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := f.svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "Rose Eau de Parfum" || got.Price != 89.90 || got.Stock != 4 || !got.Featured {
		t.Errorf("unexpected product %+v", got)
	}
	if got.Description == nil || *got.Description != "Damask rose and oud" {
		t.Errorf("unexpected description %v", got.Description)
	}
	if got.Category == nil || *got.Category != "perfume" {
		t.Errorf("unexpected category %v", got.Category)
	}
	if got.Image != nil {
		t.Errorf("expected no image, got %s", *got.Image)
	}
}

func TestCreateDefaults(t *testing.T) {
	f := newTestCatalog(t)
	created, err := f.svc.Create(context.Background(), form(t, "name", "Lily", "price", "10"), nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Stock != 0 || created.Featured {
		t.Errorf("expected stock 0 and featured false, got %d, %v", created.Stock, created.Featured)
	}
	if created.Description != nil || created.Category != nil {
		t.Error("expected absent optional fields to be null")
	}
}

func TestCreateValidation(t *testing.T) {
	f := newTestCatalog(t)
	ctx := context.Background()

	if _, err := DecodeProductForm(url.Values{"name": {"Rose"}, "price": {"abc"}}); KindOf(err) != KindValidation {
		t.Errorf("expected validation error for price abc, got %v", err)
	}

	tests := []struct {
		name string
		in   ProductInput
	}{
		{"missing name", form(t, "price", "10")},
		{"blank name", form(t, "name", "   ", "price", "10")},
		{"missing price", form(t, "name", "Rose")},
		{"negative price", form(t, "name", "Rose", "price", "-1")},
		{"negative stock", form(t, "name", "Rose", "price", "1", "stock", "-2")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, tt.in, nil)
			expectKind(t, err, KindValidation)
		})
	}

	products, err := f.svc.List(ctx, model.ProductFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(products) != 0 {
		t.Errorf("expected no inserts, got %d products", len(products))
	}
}

func TestCreateWithImage(t *testing.T) {
	f := newTestCatalog(t)
	ctx := media.WithBaseURL(context.Background(), "http://localhost:3000")

	created, err := f.svc.Create(ctx, form(t, "name", "Rose", "price", "20"), pngUpload("rose.png"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Image == nil || !strings.HasPrefix(*created.Image, "http://localhost:3000/uploads/") {
		t.Fatalf("expected absolute image URL, got %v", created.Image)
	}

	name := strings.TrimPrefix(*created.Image, "http://localhost:3000/uploads/")
	if _, err := os.Stat(filepath.Join(f.images.Dir(), name)); err != nil {
		t.Errorf("stored image missing: %v", err)
	}
}

func TestCreateRejectsNonImage(t *testing.T) {
	f := newTestCatalog(t)
	ctx := context.Background()

	upload := &Upload{Filename: "setup.exe", ContentType: "application/octet-stream", Data: []byte("MZ\x90\x00")}
	_, err := f.svc.Create(ctx, form(t, "name", "Rose", "price", "20"), upload)
	expectKind(t, err, KindValidation)

	disguised := &Upload{Filename: "rose.png", ContentType: "image/png", Data: []byte("#!/bin/sh\necho hi\n")}
	_, err = f.svc.Create(ctx, form(t, "name", "Rose", "price", "20"), disguised)
	expectKind(t, err, KindValidation)

	renamed := pngUpload("rose.jpg")
	renamed.ContentType = "image/jpeg"
	_, err = f.svc.Create(ctx, form(t, "name", "Rose", "price", "20"), renamed)
	expectKind(t, err, KindValidation)

	if files := f.files(t); len(files) != 0 {
		t.Errorf("expected no stored files, got %v", files)
	}
}

func TestCreateRejectsOversizedImage(t *testing.T) {
	f := newTestCatalog(t)
	images := f.images
	svc := NewCatalogService(f.db, images, media.NewSyncRemover(images, zerolog.Nop()), 64, zerolog.Nop())

	_, err := svc.Create(context.Background(), form(t, "name", "Rose", "price", "20"), pngUpload("rose.png"))
	expectKind(t, err, KindValidation)
}

func TestCreateRemovesImageWhenInsertFails(t *testing.T) {
	f := newTestCatalog(t)
	f.db.Close()

	_, err := f.svc.Create(context.Background(), form(t, "name", "Rose", "price", "20"), pngUpload("rose.png"))
	expectKind(t, err, KindStore)

	if files := f.files(t); len(files) != 0 {
		t.Errorf("expected orphaned image to be removed, got %v", files)
	}
}

func TestUpdatePartial(t *testing.T) {
	f := newTestCatalog(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, form(t,
		"name", "Rose", "description", "Floral", "price", "20", "category", "perfume",
	), pngUpload("rose.png"))
	if err != nil {
		t.Fatal(err)
	}

	updated, err := f.svc.Update(ctx, created.ID, form(t, "price", "9.99"), nil)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Price != 9.99 {
		t.Errorf("expected price 9.99, got %v", updated.Price)
	}
	if updated.Name != "Rose" || *updated.Category != "perfume" || *updated.Image != *created.Image {
		t.Errorf("unsupplied fields changed: %+v", updated)
	}

	cleared, err := f.svc.Update(ctx, created.ID, form(t, "description", "", "category", ""), nil)
	if err != nil {
		t.Fatalf("Update clearing fields: %v", err)
	}
	if cleared.Description != nil || cleared.Category != nil {
		t.Error("expected description and category to be cleared")
	}
}

func TestUpdateReplacesImage(t *testing.T) {
	f := newTestCatalog(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, form(t, "name", "Rose", "price", "20"), pngUpload("rose.png"))
	if err != nil {
		t.Fatal(err)
	}
	oldName := filepath.Base(*created.Image)

	updated, err := f.svc.Update(ctx, created.ID, ProductInput{}, pngUpload("rose-v2.png"))
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if *updated.Image == *created.Image {
		t.Fatal("expected a new image reference")
	}

	files := f.files(t)
	if len(files) != 1 || files[0] == oldName {
		t.Errorf("expected only the new image on disk, got %v", files)
	}
}

func TestUpdateErrors(t *testing.T) {
	f := newTestCatalog(t)
	ctx := context.Background()

	_, err := f.svc.Update(ctx, 42, form(t, "price", "1"), nil)
	expectKind(t, err, KindNotFound)

	created, err := f.svc.Create(ctx, form(t, "name", "Rose", "price", "20"), nil)
	if err != nil {
		t.Fatal(err)
	}
	_, err = f.svc.Update(ctx, created.ID, form(t, "name", ""), nil)
	expectKind(t, err, KindValidation)
	_, err = f.svc.Update(ctx, created.ID, form(t, "price", "-5"), nil)
	expectKind(t, err, KindValidation)
}

func TestDeleteProduct(t *testing.T) {
	f := newTestCatalog(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, form(t, "name", "Rose", "price", "20"), pngUpload("rose.png"))
	if err != nil {
		t.Fatal(err)
	}

	id, err := f.svc.Delete(ctx, created.ID)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if id != created.ID {
		t.Errorf("expected deleted id %d, got %d", created.ID, id)
	}

	_, err = f.svc.Get(ctx, created.ID)
	expectKind(t, err, KindNotFound)
	_, err = f.svc.Delete(ctx, created.ID)
	expectKind(t, err, KindNotFound)

	if files := f.files(t); len(files) != 0 {
		t.Errorf("expected image removed, got %v", files)
	}
}

func TestDeleteKeepsExternalImage(t *testing.T) {
	f := newTestCatalog(t)
	ctx := context.Background()

	_, err := f.db.ExecContext(ctx,
		"INSERT INTO products (name, price, image) VALUES (?, ?, ?)",
		"Imported", 5.0, "https://cdn.example/imported.png",
	)
	if err != nil {
		t.Fatal(err)
	}
	products, err := f.svc.List(media.WithBaseURL(ctx, "http://localhost:3000"), model.ProductFilter{})
	if err != nil || len(products) != 1 {
		t.Fatalf("List: %v, %d products", err, len(products))
	}
	if *products[0].Image != "https://cdn.example/imported.png" {
		t.Errorf("absolute image URL rewritten: %s", *products[0].Image)
	}
	if _, err := f.svc.Delete(ctx, products[0].ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}

func TestListSearchCaseInsensitive(t *testing.T) {
	f := newTestCatalog(t)
	ctx := context.Background()

	for _, p := range [][]string{
		{"name", "Rose Garden", "price", "10"},
		{"name", "Evening Musk", "description", "notes of wild ROSE", "price", "12"},
		{"name", "Lily", "description", "white flowers", "price", "8"},
	} {
		if _, err := f.svc.Create(ctx, form(t, p...), nil); err != nil {
			t.Fatal(err)
		}
	}

	products, err := f.svc.List(ctx, model.ProductFilter{Search: "rose"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("expected 2 products, got %d", len(products))
	}
	for _, p := range products {
		if p.Name == "Lily" {
			t.Error("unexpected match")
		}
	}
}

func TestListEmpty(t *testing.T) {
	f := newTestCatalog(t)
	products, err := f.svc.List(context.Background(), model.ProductFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if products == nil {
		t.Error("expected empty slice, not nil")
	}
}
