package store

import (
	"context"

	"github.com/kouprey/storefront/internal/models"
)

func (s *Store) AddReview(ctx context.Context, rv *models.Review) error {
	res, err := s.DB.ExecContext(ctx, `
		INSERT INTO reviews (product_id, display_name, email, rating, title, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rv.ProductID, rv.DisplayName, rv.Email, rv.Rating, rv.Title, rv.Content, rv.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rv.ID = int(id)
	return nil
}

// ListReviews returns the newest reviews of a product first.
func (s *Store) ListReviews(ctx context.Context, productID string, limit int) ([]models.Review, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, product_id, display_name, email, rating, title, content, created_at
		FROM reviews
		WHERE product_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, productID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reviews := []models.Review{}
	for rows.Next() {
		var rv models.Review
		if err := rows.Scan(&rv.ID, &rv.ProductID, &rv.DisplayName, &rv.Email, &rv.Rating,
			&rv.Title, &rv.Content, &rv.CreatedAt); err != nil {
			return nil, err
		}
		reviews = append(reviews, rv)
	}
	return reviews, rows.Err()
}
