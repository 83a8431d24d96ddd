package storage

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mseller-cloud/mseller-server/internal/models"
)

// CreateBusiness creates a new business
func (s *PostgresStore) CreateBusiness(ctx context.Context, business *models.Business) error {
	if business.ID == uuid.Nil {
		business.ID = uuid.New()
	}

	now := time.Now()
	business.CreatedAt = now
	business.UpdatedAt = now

	query := `
		INSERT INTO businesses (
			id, created_at, updated_at, name, rnc, phone, email, contact,
			contact_phone, fax, website, logo_url, photo_url, footer_message,
			footer_receipt, address, config, stripe_customer_id, subscription_id,
			subscription_status, tier, seller_licenses, status, selling_packaging,
			from_portal, start_date
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26
		)`

	_, err := s.getDB().ExecContext(ctx, query,
		business.ID, business.CreatedAt, business.UpdatedAt, business.Name,
		business.RNC, business.Phone, business.Email, business.Contact,
		business.ContactPhone, business.Fax, business.Website, business.LogoURL,
		business.PhotoURL, business.FooterMessage, business.FooterReceipt,
		business.Address, business.Config, business.StripeCustomerID,
		business.SubscriptionID, business.SubscriptionStatus, business.Tier,
		business.SellerLicenses, business.Status, business.SellingPackaging,
		business.FromPortal, business.StartDate,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicateKey
		}
		return err
	}

	return nil
}

const businessColumns = `
	id, created_at, updated_at, name, rnc, phone, email, contact,
	contact_phone, fax, website, logo_url, photo_url, footer_message,
	footer_receipt, address, config, stripe_customer_id, subscription_id,
	subscription_status, tier, seller_licenses, status, selling_packaging,
	from_portal, start_date`

func scanBusiness(row interface{ Scan(...interface{}) error }) (*models.Business, error) {
	b := &models.Business{}
	err := row.Scan(
		&b.ID, &b.CreatedAt, &b.UpdatedAt, &b.Name, &b.RNC, &b.Phone,
		&b.Email, &b.Contact, &b.ContactPhone, &b.Fax, &b.Website,
		&b.LogoURL, &b.PhotoURL, &b.FooterMessage, &b.FooterReceipt,
		&b.Address, &b.Config, &b.StripeCustomerID, &b.SubscriptionID,
		&b.SubscriptionStatus, &b.Tier, &b.SellerLicenses, &b.Status,
		&b.SellingPackaging, &b.FromPortal, &b.StartDate,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return b, err
}

// GetBusiness gets a business by ID
func (s *PostgresStore) GetBusiness(ctx context.Context, id uuid.UUID) (*models.Business, error) {
	query := `SELECT ` + businessColumns + ` FROM businesses WHERE id = $1`
	return scanBusiness(s.getDB().QueryRowContext(ctx, query, id))
}

// GetBusinessByRNC gets a business by tax registration number
func (s *PostgresStore) GetBusinessByRNC(ctx context.Context, rnc string) (*models.Business, error) {
	query := `SELECT ` + businessColumns + ` FROM businesses WHERE rnc = $1`
	return scanBusiness(s.getDB().QueryRowContext(ctx, query, rnc))
}

// UpdateBusiness updates a business
func (s *PostgresStore) UpdateBusiness(ctx context.Context, business *models.Business) error {
	business.UpdatedAt = time.Now()

	query := `
		UPDATE businesses SET
			updated_at = $2, name = $3, rnc = $4, phone = $5, email = $6,
			contact = $7, contact_phone = $8, fax = $9, website = $10,
			logo_url = $11, photo_url = $12, footer_message = $13,
			footer_receipt = $14, address = $15, config = $16,
			stripe_customer_id = $17, subscription_id = $18,
			subscription_status = $19, tier = $20, seller_licenses = $21,
			status = $22, selling_packaging = $23, from_portal = $24,
			start_date = $25
		WHERE id = $1`

	result, err := s.getDB().ExecContext(ctx, query,
		business.ID, business.UpdatedAt, business.Name, business.RNC,
		business.Phone, business.Email, business.Contact, business.ContactPhone,
		business.Fax, business.Website, business.LogoURL, business.PhotoURL,
		business.FooterMessage, business.FooterReceipt, business.Address,
		business.Config, business.StripeCustomerID, business.SubscriptionID,
		business.SubscriptionStatus, business.Tier, business.SellerLicenses,
		business.Status, business.SellingPackaging, business.FromPortal,
		business.StartDate,
	)

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

// DeleteBusiness deletes a business
func (s *PostgresStore) DeleteBusiness(ctx context.Context, id uuid.UUID) error {
	result, err := s.getDB().ExecContext(ctx, `DELETE FROM businesses WHERE id = $1`, id)
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

// ListBusinesses lists businesses with pagination
func (s *PostgresStore) ListBusinesses(ctx context.Context, limit, offset int) ([]*models.Business, int64, error) {
	var total int64
	if err := s.getDB().QueryRowContext(ctx, `SELECT COUNT(*) FROM businesses`).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + businessColumns + `
		FROM businesses
		ORDER BY name
		LIMIT $1 OFFSET $2`

	rows, err := s.getDB().QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var businesses []*models.Business
	for rows.Next() {
		b, err := scanBusiness(rows)
		if err != nil {
			return nil, 0, err
		}
		businesses = append(businesses, b)
	}

	return businesses, total, rows.Err()
}
