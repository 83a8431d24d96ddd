package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/mseller-cloud/mseller-server/internal/models"
)

// CreateDocumentRecord records a generated document
func (s *PostgresStore) CreateDocumentRecord(ctx context.Context, rec *models.DocumentRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO document_records (
			id, business_id, type, document_no, file_name, object_key, url,
			payload, sent_by_whatsapp, sent_by_email, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := s.getDB().ExecContext(ctx, query,
		rec.ID, rec.BusinessID, rec.Type, rec.DocumentNo, rec.FileName,
		rec.ObjectKey, rec.URL, []byte(rec.Payload),
		rec.SentByWhatsApp, rec.SentByEmail, rec.CreatedAt,
	)
	return err
}

// GetDocumentRecord gets a document record by ID
func (s *PostgresStore) GetDocumentRecord(ctx context.Context, id uuid.UUID) (*models.DocumentRecord, error) {
	query := `
		SELECT id, business_id, type, document_no, file_name, object_key,
		       url, payload, sent_by_whatsapp, sent_by_email, created_at
		FROM document_records
		WHERE id = $1`

	rec := &models.DocumentRecord{}
	var payload []byte
	err := s.getDB().QueryRowContext(ctx, query, id).Scan(
		&rec.ID, &rec.BusinessID, &rec.Type, &rec.DocumentNo, &rec.FileName,
		&rec.ObjectKey, &rec.URL, &payload,
		&rec.SentByWhatsApp, &rec.SentByEmail, &rec.CreatedAt,
	)
	rec.Payload = payload
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return rec, err
}

// ListDocumentRecords lists a business's document records, newest first
func (s *PostgresStore) ListDocumentRecords(ctx context.Context, businessID uuid.UUID, limit, offset int) ([]*models.DocumentRecord, int64, error) {
	var total int64
	if err := s.getDB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM document_records WHERE business_id = $1`,
		businessID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, business_id, type, document_no, file_name, object_key,
		       url, payload, sent_by_whatsapp, sent_by_email, created_at
		FROM document_records
		WHERE business_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := s.getDB().QueryContext(ctx, query, businessID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var records []*models.DocumentRecord
	for rows.Next() {
		rec := &models.DocumentRecord{}
		var payload []byte
		if err := rows.Scan(
			&rec.ID, &rec.BusinessID, &rec.Type, &rec.DocumentNo,
			&rec.FileName, &rec.ObjectKey, &rec.URL, &payload,
			&rec.SentByWhatsApp, &rec.SentByEmail, &rec.CreatedAt,
		); err != nil {
			return nil, 0, err
		}
		rec.Payload = payload
		records = append(records, rec)
	}

	return records, total, rows.Err()
}
