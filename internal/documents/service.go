// Package documents generates PDF documents and fans them out over
// WhatsApp and email.
package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mseller-cloud/mseller-server/internal/apperror"
	"github.com/mseller-cloud/mseller-server/internal/models"
	"github.com/mseller-cloud/mseller-server/internal/storage"
	"github.com/mseller-cloud/mseller-server/internal/whatsapp"
)

// Renderer turns a template and payload into PDF bytes
type Renderer interface {
	Render(ctx context.Context, template string, payload interface{}) ([]byte, error)
}

// ObjectWriter uploads an object and returns its download URL
type ObjectWriter interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// WhatsAppSender delivers a templated message
type WhatsAppSender interface {
	SendTemplate(ctx context.Context, creds whatsapp.Credentials, msg *whatsapp.TemplateMessage) error
}

// EmailSender delivers a document link by mail
type EmailSender interface {
	SendDocument(to, toName string, templateID int64, docType models.DocumentType, documentNo, url, businessName string) error
}

// Service orchestrates generation and delivery
type Service struct {
	store    storage.Store
	renderer Renderer
	objects  ObjectWriter
	wa       WhatsAppSender
	mail     EmailSender
}

// NewService creates a document service
func NewService(store storage.Store, renderer Renderer, objects ObjectWriter, wa WhatsAppSender, mail EmailSender) *Service {
	return &Service{
		store:    store,
		renderer: renderer,
		objects:  objects,
		wa:       wa,
		mail:     mail,
	}
}

// Generate renders the requested document, stores the PDF and
// dispatches it on the channels the request flags enable. Delivery
// failures are reported on the record, not as request errors.
func (s *Service) Generate(ctx context.Context, businessID uuid.UUID, req *models.GenerateRequest) (*models.DocumentRecord, error) {
	if !req.DocumentType.Valid() {
		return nil, apperror.Newf(apperror.InvalidArgument, "unknown document type %q", req.DocumentType)
	}

	business, err := s.store.GetBusiness(ctx, businessID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperror.New(apperror.NotFound, "business not found")
		}
		return nil, fmt.Errorf("get business: %w", err)
	}

	doc, err := s.decode(req)
	if err != nil {
		return nil, apperror.Wrap(apperror.InvalidArgument, "invalid document payload", err)
	}

	pdf, err := s.renderer.Render(ctx, string(req.DocumentType), doc.payload)
	if err != nil {
		return nil, apperror.Wrap(apperror.Internal, "render document", err)
	}

	now := time.Now()
	key := fmt.Sprintf("%s/documents/%s/%s/%s.pdf",
		businessID, now.Format("2006-01"), now.Format("02"), uuid.New())

	url, err := s.objects.Put(ctx, key, pdf, "application/pdf")
	if err != nil {
		return nil, apperror.Wrap(apperror.Internal, "store document", err)
	}

	record := &models.DocumentRecord{
		BusinessID: businessID,
		Type:       req.DocumentType,
		DocumentNo: doc.documentNo,
		FileName:   doc.documentNo + ".pdf",
		ObjectKey:  key,
		URL:        url,
		Payload:    req.Payload,
	}

	if req.Metadata.SendByWhatsApp {
		record.SentByWhatsApp = s.sendWhatsApp(ctx, business, req, doc, url)
	}
	if req.Metadata.SendByEmail {
		record.SentByEmail = s.sendEmail(business, req, doc, url)
	}

	if err := s.store.CreateDocumentRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("record document: %w", err)
	}

	log.Info().
		Str("business", businessID.String()).
		Str("type", string(req.DocumentType)).
		Str("documentNo", doc.documentNo).
		Bool("whatsapp", record.SentByWhatsApp).
		Bool("email", record.SentByEmail).
		Msg("Document generated")

	return record, nil
}

// decoded normalizes the two payload shapes for delivery
type decoded struct {
	payload      interface{}
	documentNo   string
	customerName string
	customerMail string
	seller       string
	amount       float64
}

func (s *Service) decode(req *models.GenerateRequest) (*decoded, error) {
	if req.DocumentType == models.DocumentReceipt {
		rec, err := req.DecodeReceipt()
		if err != nil {
			return nil, err
		}
		return &decoded{
			payload:      rec,
			documentNo:   rec.DocumentNo,
			customerName: rec.Customer.Name,
			customerMail: rec.Customer.Email,
			seller:       rec.Seller,
			amount:       rec.TotalCollected,
		}, nil
	}

	doc, err := req.DecodeSales()
	if err != nil {
		return nil, err
	}
	return &decoded{
		payload:      doc,
		documentNo:   doc.DocumentNo,
		customerName: doc.Customer.Name,
		customerMail: doc.Customer.Email,
		seller:       doc.Seller,
		amount:       doc.Total,
	}, nil
}

// sendWhatsApp delivers the document over WhatsApp using the business
// integration credentials. Returns whether the send succeeded.
func (s *Service) sendWhatsApp(ctx context.Context, business *models.Business, req *models.GenerateRequest, doc *decoded, url string) bool {
	integration := business.Config.WhatsAppIntegration()
	if integration == nil || !integration.Enabled {
		log.Warn().
			Str("business", business.ID.String()).
			Msg("WhatsApp delivery requested but integration is not enabled")
		return false
	}
	if req.WhatsApp == nil || req.WhatsApp.Phone == "" || req.WhatsApp.TemplateName == "" {
		log.Warn().
			Str("business", business.ID.String()).
			Msg("WhatsApp delivery requested without a target phone or template")
		return false
	}

	token, phoneNumberID := integration.ActiveCredentials()
	msg := &whatsapp.TemplateMessage{
		To:               req.WhatsApp.Phone,
		TemplateName:     req.WhatsApp.TemplateName,
		LanguageCode:     req.Metadata.Locale,
		DocumentURL:      url,
		DocumentFilename: doc.documentNo + ".pdf",
		BodyParams: []string{
			strings.ToLower(doc.customerName),
			doc.documentNo,
			formatAmount(req.Metadata.Locale, req.Metadata.Currency, doc.amount),
			doc.seller,
			req.WhatsApp.SellerPhone,
		},
	}

	err := s.wa.SendTemplate(ctx, whatsapp.Credentials{Token: token, PhoneNumberID: phoneNumberID}, msg)
	if err != nil {
		log.Error().Err(err).
			Str("documentNo", doc.documentNo).
			Msg("WhatsApp delivery failed")
		return false
	}
	return true
}

// sendEmail mails the document link using the tenant's configured
// mail template. Returns whether the send succeeded.
func (s *Service) sendEmail(business *models.Business, req *models.GenerateRequest, doc *decoded, url string) bool {
	templateID := business.Config.OrderEmailTemplateID
	if req.DocumentType == models.DocumentReceipt {
		templateID = business.Config.PaymentEmailTemplateID
	}
	if templateID == 0 {
		log.Warn().
			Str("business", business.ID.String()).
			Str("type", string(req.DocumentType)).
			Msg("Email delivery requested without a configured template")
		return false
	}

	to := req.Metadata.Email
	if to == "" {
		to = doc.customerMail
	}
	if to == "" {
		log.Warn().
			Str("documentNo", doc.documentNo).
			Msg("Email delivery requested without an address")
		return false
	}

	err := s.mail.SendDocument(to, doc.customerName, templateID, req.DocumentType, doc.documentNo, url, business.Name)
	if err != nil {
		log.Error().Err(err).
			Str("documentNo", doc.documentNo).
			Msg("Email delivery failed")
		return false
	}
	return true
}

// List returns a business's generated documents
func (s *Service) List(ctx context.Context, businessID uuid.UUID, limit, offset int) ([]*models.DocumentRecord, int64, error) {
	return s.store.ListDocumentRecords(ctx, businessID, limit, offset)
}
