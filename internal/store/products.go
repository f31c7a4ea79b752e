package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/erazemk/vitrina/internal/model"
)

const productColumns = `id, name, description, price, image, category, stock, featured, created_at, updated_at`

// CreateProduct inserts a product and returns the stored row.
func CreateProduct(ctx context.Context, db *sql.DB, p model.ProductRecord) (*model.ProductRecord, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO products (name, description, price, image, category, stock, featured)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.Name, nullString(p.Description), p.Price, nullString(p.Image), nullString(p.Category), p.Stock, p.Featured,
	)
	if err != nil {
		return nil, fmt.Errorf("creating product: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting product id: %w", err)
	}

	return GetProduct(ctx, db, id)
}

// GetProduct returns a product by ID, or nil when no row matches.
func GetProduct(ctx context.Context, db *sql.DB, id int64) (*model.ProductRecord, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ?`, id,
	)
	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting product: %w", err)
	}
	return p, nil
}

// ListProducts returns products matching filter, newest first.
// Search matches name or description with LIKE, which ignores ASCII case.
func ListProducts(ctx context.Context, db *sql.DB, filter model.ProductFilter) ([]model.ProductRecord, error) {
	var where []string
	var args []any

	if filter.Category != "" {
		where = append(where, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.Featured != nil {
		where = append(where, "featured = ?")
		args = append(args, *filter.Featured)
	}
	if filter.Search != "" {
		pattern := "%" + escapeLike(filter.Search) + "%"
		where = append(where, `(name LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}

	query := `SELECT ` + productColumns + ` FROM products`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	defer rows.Close()

	var products []model.ProductRecord
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

// UpdateProduct overwrites every mutable column of a product.
// It reports whether a row was changed.
func UpdateProduct(ctx context.Context, db *sql.DB, p model.ProductRecord) (bool, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE products
		 SET name = ?, description = ?, price = ?, image = ?, category = ?, stock = ?, featured = ?,
		     updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		p.Name, nullString(p.Description), p.Price, nullString(p.Image), nullString(p.Category), p.Stock, p.Featured, p.ID,
	)
	if err != nil {
		return false, fmt.Errorf("updating product: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("updating product: %w", err)
	}
	return n > 0, nil
}

// DeleteProduct removes a product. It reports whether a row was deleted.
func DeleteProduct(ctx context.Context, db *sql.DB, id int64) (bool, error) {
	result, err := db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("deleting product: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deleting product: %w", err)
	}
	return n > 0, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanProduct reads one row, coercing loosely typed columns: NULL text
// becomes "", NULL stock becomes 0, price is read as a float whatever its
// storage class.
func scanProduct(s scanner) (*model.ProductRecord, error) {
	p := &model.ProductRecord{}
	var description, image, category sql.NullString
	var price sql.NullFloat64
	var stock, featured sql.NullInt64
	err := s.Scan(&p.ID, &p.Name, &description, &price, &image, &category, &stock, &featured, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Description = description.String
	p.Price = price.Float64
	p.Image = image.String
	p.Category = category.String
	p.Stock = stock.Int64
	p.Featured = featured.Int64 != 0
	return p, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
