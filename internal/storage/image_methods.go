package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/mseller-cloud/mseller-server/internal/models"
)

// CreateImageAsset records an uploaded image
func (s *PostgresStore) CreateImageAsset(ctx context.Context, img *models.ImageAsset) error {
	if img.ID == uuid.Nil {
		img.ID = uuid.New()
	}
	if img.CreatedAt.IsZero() {
		img.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO image_assets (
			id, business_id, owner_id, kind, object_key, thumbnail_key,
			url, thumbnail_url, format, width, height, size, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := s.getDB().ExecContext(ctx, query,
		img.ID, img.BusinessID, img.OwnerID, img.Kind, img.ObjectKey, img.ThumbnailKey,
		img.URL, img.ThumbnailURL, img.Format, img.Width, img.Height, img.Size, img.CreatedAt,
	)
	return err
}

// GetImageAsset gets an image asset by ID
func (s *PostgresStore) GetImageAsset(ctx context.Context, id uuid.UUID) (*models.ImageAsset, error) {
	query := `
		SELECT id, business_id, owner_id, kind, object_key, thumbnail_key,
			url, thumbnail_url, format, width, height, size, created_at
		FROM image_assets
		WHERE id = $1`

	img := &models.ImageAsset{}
	err := s.getDB().QueryRowContext(ctx, query, id).Scan(
		&img.ID, &img.BusinessID, &img.OwnerID, &img.Kind, &img.ObjectKey, &img.ThumbnailKey,
		&img.URL, &img.ThumbnailURL, &img.Format, &img.Width, &img.Height, &img.Size, &img.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return img, err
}

// DeleteImageAsset removes an image asset record
func (s *PostgresStore) DeleteImageAsset(ctx context.Context, id uuid.UUID) error {
	result, err := s.getDB().ExecContext(ctx, `DELETE FROM image_assets WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// ListImageAssets lists a business's images, optionally filtered by owner
func (s *PostgresStore) ListImageAssets(ctx context.Context, businessID uuid.UUID, ownerID *uuid.UUID) ([]*models.ImageAsset, error) {
	query := `
		SELECT id, business_id, owner_id, kind, object_key, thumbnail_key,
			url, thumbnail_url, format, width, height, size, created_at
		FROM image_assets
		WHERE business_id = $1`

	args := []interface{}{businessID}
	if ownerID != nil {
		query += ` AND owner_id = $2`
		args = append(args, *ownerID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.getDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var images []*models.ImageAsset
	for rows.Next() {
		img := &models.ImageAsset{}
		if err := rows.Scan(
			&img.ID, &img.BusinessID, &img.OwnerID, &img.Kind, &img.ObjectKey, &img.ThumbnailKey,
			&img.URL, &img.ThumbnailURL, &img.Format, &img.Width, &img.Height, &img.Size, &img.CreatedAt,
		); err != nil {
			return nil, err
		}
		images = append(images, img)
	}

	return images, rows.Err()
}
