package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kouprey/storefront/internal/models"
)

const productColumns = `id, name, category, subcategory, price, discount, sizes, stock, availability, image, images, color, description, updated_at`

func scanProduct(row rowScanner) (*models.Product, error) {
	var p models.Product
	var sizes, images string
	if err := row.Scan(&p.ID, &p.Name, &p.Category, &p.Subcategory, &p.Price, &p.Discount, &sizes,
		&p.Stock, &p.Availability, &p.Image, &images, &p.Color, &p.Description, &p.UpdatedAt); err != nil {
		return nil, err
	}

	p.Sizes = []string{}
	for _, sz := range strings.Split(sizes, ",") {
		if sz = strings.TrimSpace(sz); sz != "" {
			p.Sizes = append(p.Sizes, sz)
		}
	}
	// Older rows may hold garbage; treat it as no gallery.
	if err := json.Unmarshal([]byte(images), &p.Images); err != nil || p.Images == nil {
		p.Images = []string{}
		if p.Image != "" {
			p.Images = []string{p.Image}
		}
	}
	return &p, nil
}

func productArgs(p *models.Product) ([]any, error) {
	images, err := json.Marshal(p.Images)
	if err != nil {
		return nil, err
	}
	return []any{p.Name, p.Category, p.Subcategory, p.Price, p.Discount, strings.Join(p.Sizes, ","),
		p.Stock, p.Availability, p.Image, string(images), p.Color, p.Description, p.UpdatedAt}, nil
}

func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	args, err := productArgs(p)
	if err != nil {
		return err
	}
	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, append([]any{p.ID}, args...)...)
	if isUniqueViolation(err) {
		return fmt.Errorf("product %s: %w", p.ID, ErrDuplicate)
	}
	return err
}

func (s *Store) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

func (s *Store) ListProducts(ctx context.Context) ([]models.Product, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func (s *Store) UpdateProduct(ctx context.Context, p *models.Product) error {
	args, err := productArgs(p)
	if err != nil {
		return err
	}
	res, err := s.DB.ExecContext(ctx, `
		UPDATE products
		SET name = ?, category = ?, subcategory = ?, price = ?, discount = ?, sizes = ?, stock = ?,
			availability = ?, image = ?, images = ?, color = ?, description = ?, updated_at = ?
		WHERE id = ?`, append(args, p.ID)...)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}
