package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/erazemk/vitrina/internal/imaging"
	"github.com/erazemk/vitrina/internal/media"
	"github.com/erazemk/vitrina/internal/metrics"
	"github.com/erazemk/vitrina/internal/model"
	"github.com/erazemk/vitrina/internal/store"
	"github.com/erazemk/vitrina/internal/validation"
)

// DefaultMaxUploadBytes is the image size ceiling when none is configured.
const DefaultMaxUploadBytes = 10 << 20

// CatalogService manages products and their images.
type CatalogService struct {
	db        *sql.DB
	images    *media.DiskStore
	remover   media.Remover
	maxUpload int64
	log       zerolog.Logger
	validate  *validation.Validator
}

func NewCatalogService(db *sql.DB, images *media.DiskStore, remover media.Remover, maxUploadBytes int64, log zerolog.Logger) *CatalogService {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &CatalogService{
		db:        db,
		images:    images,
		remover:   remover,
		maxUpload: maxUploadBytes,
		log:       log,
		validate:  validation.New(),
	}
}

// MaxUploadBytes returns the image size ceiling.
func (s *CatalogService) MaxUploadBytes() int64 {
	return s.maxUpload
}

// List returns products matching filter, newest first. Stored image
// references are expanded against the base URL carried by ctx.
func (s *CatalogService) List(ctx context.Context, filter model.ProductFilter) ([]model.Product, error) {
	records, err := store.ListProducts(ctx, s.db, filter)
	if err != nil {
		return nil, storeError("failed to list products", err)
	}

	base := media.BaseURL(ctx)
	products := make([]model.Product, 0, len(records))
	for _, rec := range records {
		products = append(products, rec.View(base))
	}
	return products, nil
}

func (s *CatalogService) Get(ctx context.Context, id int64) (*model.Product, error) {
	rec, err := store.GetProduct(ctx, s.db, id)
	if err != nil {
		return nil, storeError("failed to get product", err)
	}
	if rec == nil {
		return nil, notFound("product not found")
	}
	p := rec.View(media.BaseURL(ctx))
	return &p, nil
}

// Create inserts a product. A supplied image is stored before the insert
// and removed again if the insert fails.
func (s *CatalogService) Create(ctx context.Context, in ProductInput, upload *Upload) (*model.Product, error) {
	if in.Name == nil {
		return nil, validationError("name is required")
	}
	if in.Price == nil {
		return nil, validationError("price is required")
	}
	if err := s.validate.Validate(in); err != nil {
		return nil, validationError(err.Error())
	}

	rec := model.ProductRecord{Name: *in.Name, Price: *in.Price}
	if in.Description != nil {
		rec.Description = *in.Description
	}
	if in.Category != nil {
		rec.Category = *in.Category
	}
	if in.Stock != nil {
		rec.Stock = *in.Stock
	}
	if in.Featured != nil {
		rec.Featured = *in.Featured
	}

	if upload != nil {
		ref, err := s.storeImage(upload)
		if err != nil {
			return nil, err
		}
		rec.Image = ref
	}

	created, err := store.CreateProduct(ctx, s.db, rec)
	if err != nil {
		s.remover.Remove(rec.Image)
		return nil, storeError("failed to create product", err)
	}

	metrics.CatalogMutationsTotal.WithLabelValues("create").Inc()
	s.log.Info().Int64("product", created.ID).Str("name", created.Name).Msg("product created")

	return s.Get(ctx, created.ID)
}

// Update changes only the supplied fields. A new image replaces the old
// one, which is then removed best-effort.
func (s *CatalogService) Update(ctx context.Context, id int64, in ProductInput, upload *Upload) (*model.Product, error) {
	rec, err := store.GetProduct(ctx, s.db, id)
	if err != nil {
		return nil, storeError("failed to get product", err)
	}
	if rec == nil {
		return nil, notFound("product not found")
	}
	if err := s.validate.Validate(in); err != nil {
		return nil, validationError(err.Error())
	}

	if in.Name != nil {
		rec.Name = *in.Name
	}
	if in.Description != nil {
		rec.Description = *in.Description
	}
	if in.Price != nil {
		rec.Price = *in.Price
	}
	if in.Category != nil {
		rec.Category = *in.Category
	}
	if in.Stock != nil {
		rec.Stock = *in.Stock
	}
	if in.Featured != nil {
		rec.Featured = *in.Featured
	}

	oldImage := rec.Image
	if upload != nil {
		ref, err := s.storeImage(upload)
		if err != nil {
			return nil, err
		}
		rec.Image = ref
	}

	ok, err := store.UpdateProduct(ctx, s.db, *rec)
	if err != nil || !ok {
		if rec.Image != oldImage {
			s.remover.Remove(rec.Image)
		}
		if err != nil {
			return nil, storeError("failed to update product", err)
		}
		return nil, notFound("product not found")
	}

	if rec.Image != oldImage {
		s.remover.Remove(oldImage)
	}

	metrics.CatalogMutationsTotal.WithLabelValues("update").Inc()
	s.log.Info().Int64("product", id).Msg("product updated")

	return s.Get(ctx, id)
}

// Delete removes a product and its stored image and returns the deleted id.
func (s *CatalogService) Delete(ctx context.Context, id int64) (int64, error) {
	rec, err := store.GetProduct(ctx, s.db, id)
	if err != nil {
		return 0, storeError("failed to get product", err)
	}
	if rec == nil {
		return 0, notFound("product not found")
	}

	ok, err := store.DeleteProduct(ctx, s.db, id)
	if err != nil {
		return 0, storeError("failed to delete product", err)
	}
	if !ok {
		return 0, notFound("product not found")
	}

	s.remover.Remove(rec.Image)

	metrics.CatalogMutationsTotal.WithLabelValues("delete").Inc()
	s.log.Info().Int64("product", id).Msg("product deleted")
	return id, nil
}

func (s *CatalogService) storeImage(upload *Upload) (string, error) {
	if int64(len(upload.Data)) > s.maxUpload {
		return "", validationError(fmt.Sprintf("image must not exceed %s", humanize.IBytes(uint64(s.maxUpload))))
	}

	img, err := imaging.Inspect(upload.Filename, upload.ContentType, upload.Data)
	if err != nil {
		if errors.Is(err, imaging.ErrUnsupported) {
			return "", validationError(imaging.ErrUnsupported.Error())
		}
		return "", internalError("failed to process image", err)
	}

	ref, err := s.images.Save(img.Ext, img.Data)
	if err != nil {
		return "", internalError("failed to store image", err)
	}
	return ref, nil
}
