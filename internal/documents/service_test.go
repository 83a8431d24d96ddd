package documents

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mseller-cloud/mseller-server/internal/apperror"
	"github.com/mseller-cloud/mseller-server/internal/models"
	"github.com/mseller-cloud/mseller-server/internal/storage"
	"github.com/mseller-cloud/mseller-server/internal/whatsapp"
)

type fakeStore struct {
	storage.Store

	business *models.Business
	records  []*models.DocumentRecord
}

func (f *fakeStore) GetBusiness(ctx context.Context, id uuid.UUID) (*models.Business, error) {
	if f.business == nil || f.business.ID != id {
		return nil, storage.ErrNotFound
	}
	return f.business, nil
}

func (f *fakeStore) CreateDocumentRecord(ctx context.Context, rec *models.DocumentRecord) error {
	f.records = append(f.records, rec)
	return nil
}

type fakeRenderer struct {
	calls []string
	fail  bool
}

func (f *fakeRenderer) Render(ctx context.Context, template string, payload interface{}) ([]byte, error) {
	if f.fail {
		return nil, assert.AnError
	}
	f.calls = append(f.calls, template)
	return []byte("%PDF-1.4 fake"), nil
}

type fakeObjects struct {
	keys []string
}

func (f *fakeObjects) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	f.keys = append(f.keys, key)
	return "https://storage.example.com/" + key, nil
}

type waCall struct {
	creds whatsapp.Credentials
	msg   *whatsapp.TemplateMessage
}

type fakeWhatsApp struct {
	calls []waCall
	fail  bool
}

func (f *fakeWhatsApp) SendTemplate(ctx context.Context, creds whatsapp.Credentials, msg *whatsapp.TemplateMessage) error {
	if f.fail {
		return assert.AnError
	}
	f.calls = append(f.calls, waCall{creds, msg})
	return nil
}

type mailCall struct {
	to, documentNo string
	templateID     int64
	docType        models.DocumentType
}

type fakeMail struct {
	calls []mailCall
}

func (f *fakeMail) SendDocument(to, toName string, templateID int64, docType models.DocumentType, documentNo, url, businessName string) error {
	f.calls = append(f.calls, mailCall{to, documentNo, templateID, docType})
	return nil
}

func testBusiness(whatsappEnabled bool) *models.Business {
	b := &models.Business{
		Name: "Distribuidora Norte",
		Config: models.BusinessConfig{
			OrderEmailTemplateID:   4410021,
			PaymentEmailTemplateID: 4410022,
			Integrations: []models.Integration{
				{
					Provider:         models.IntegrationWhatsApp,
					Enabled:          whatsappEnabled,
					IsDevelopment:    false,
					Token:            "prod-token",
					PhoneNumberID:    "prod-phone",
					DevToken:         "dev-token",
					DevPhoneNumberID: "dev-phone",
				},
			},
		},
	}
	b.ID = uuid.New()
	return b
}

func invoiceRequest(t *testing.T, meta models.DocumentMetadata, target *models.WhatsAppTarget) *models.GenerateRequest {
	t.Helper()
	payload, err := json.Marshal(models.SalesDocument{
		DocumentNo: "FAC-00123",
		Seller:     "Pedro Gomez",
		Customer: models.Customer{
			Name:  "COLMADO LA ESQUINA",
			Email: "cliente@example.com",
		},
		Total: 1250,
	})
	require.NoError(t, err)

	return &models.GenerateRequest{
		DocumentType: models.DocumentInvoice,
		Metadata:     meta,
		WhatsApp:     target,
		Payload:      payload,
	}
}

func newTestService(business *models.Business) (*Service, *fakeStore, *fakeRenderer, *fakeObjects, *fakeWhatsApp, *fakeMail) {
	store := &fakeStore{business: business}
	rend := &fakeRenderer{}
	objects := &fakeObjects{}
	wa := &fakeWhatsApp{}
	mail := &fakeMail{}
	return NewService(store, rend, objects, wa, mail), store, rend, objects, wa, mail
}

func TestGenerateInvoiceWithWhatsApp(t *testing.T) {
	business := testBusiness(true)
	svc, store, rend, objects, wa, _ := newTestService(business)

	req := invoiceRequest(t,
		models.DocumentMetadata{SendByWhatsApp: true, Locale: "es-DO", Currency: "DOP"},
		&models.WhatsAppTarget{Phone: "18095551234", TemplateName: "invoice_delivery", SellerPhone: "18290001111"})

	rec, err := svc.Generate(context.Background(), business.ID, req)
	require.NoError(t, err)

	assert.True(t, rec.SentByWhatsApp)
	assert.False(t, rec.SentByEmail)
	assert.Equal(t, []string{"invoice"}, rend.calls)
	require.Len(t, store.records, 1)
	assert.Equal(t, "FAC-00123.pdf", store.records[0].FileName)
	assert.JSONEq(t, string(req.Payload), string(store.records[0].Payload))

	// Object key is partitioned by business, month and day
	require.Len(t, objects.keys, 1)
	assert.True(t, strings.HasPrefix(objects.keys[0], business.ID.String()+"/documents/"))
	assert.True(t, strings.HasSuffix(objects.keys[0], ".pdf"))

	require.Len(t, wa.calls, 1)
	call := wa.calls[0]
	assert.Equal(t, "prod-token", call.creds.Token)
	assert.Equal(t, "prod-phone", call.creds.PhoneNumberID)
	assert.Equal(t, "18095551234", call.msg.To)
	assert.Equal(t, "FAC-00123.pdf", call.msg.DocumentFilename)

	require.Len(t, call.msg.BodyParams, 5)
	assert.Equal(t, "colmado la esquina", call.msg.BodyParams[0])
	assert.Equal(t, "FAC-00123", call.msg.BodyParams[1])
	assert.Contains(t, call.msg.BodyParams[2], "1,250.00")
	assert.Equal(t, "Pedro Gomez", call.msg.BodyParams[3])
	assert.Equal(t, "18290001111", call.msg.BodyParams[4])
}

func TestGenerateSkipsDisabledIntegration(t *testing.T) {
	business := testBusiness(false)
	svc, store, _, _, wa, _ := newTestService(business)

	req := invoiceRequest(t,
		models.DocumentMetadata{SendByWhatsApp: true},
		&models.WhatsAppTarget{Phone: "18095551234", TemplateName: "invoice_delivery"})

	rec, err := svc.Generate(context.Background(), business.ID, req)
	require.NoError(t, err)

	assert.Empty(t, wa.calls)
	assert.False(t, rec.SentByWhatsApp)
	// The document itself is still generated and recorded
	require.Len(t, store.records, 1)
}

func TestGenerateSkipsWhatsAppWithoutTemplate(t *testing.T) {
	business := testBusiness(true)
	svc, store, _, _, wa, _ := newTestService(business)

	req := invoiceRequest(t,
		models.DocumentMetadata{SendByWhatsApp: true},
		&models.WhatsAppTarget{Phone: "18095551234"})

	rec, err := svc.Generate(context.Background(), business.ID, req)
	require.NoError(t, err)

	assert.Empty(t, wa.calls)
	assert.False(t, rec.SentByWhatsApp)
	require.Len(t, store.records, 1)
}

func TestGenerateUsesSandboxCredentials(t *testing.T) {
	business := testBusiness(true)
	business.Config.Integrations[0].IsDevelopment = true
	svc, _, _, _, wa, _ := newTestService(business)

	req := invoiceRequest(t,
		models.DocumentMetadata{SendByWhatsApp: true},
		&models.WhatsAppTarget{Phone: "18095551234", TemplateName: "invoice_delivery"})

	_, err := svc.Generate(context.Background(), business.ID, req)
	require.NoError(t, err)

	require.Len(t, wa.calls, 1)
	assert.Equal(t, "dev-token", wa.calls[0].creds.Token)
	assert.Equal(t, "dev-phone", wa.calls[0].creds.PhoneNumberID)
}

func TestGenerateEmailFallsBackToCustomerAddress(t *testing.T) {
	business := testBusiness(true)
	svc, _, _, _, _, mail := newTestService(business)

	req := invoiceRequest(t, models.DocumentMetadata{SendByEmail: true}, nil)

	rec, err := svc.Generate(context.Background(), business.ID, req)
	require.NoError(t, err)

	assert.True(t, rec.SentByEmail)
	require.Len(t, mail.calls, 1)
	assert.Equal(t, "cliente@example.com", mail.calls[0].to)
	assert.Equal(t, int64(4410021), mail.calls[0].templateID)
	assert.Equal(t, models.DocumentInvoice, mail.calls[0].docType)
}

func TestGenerateEmailRequiresConfiguredTemplate(t *testing.T) {
	business := testBusiness(true)
	business.Config.OrderEmailTemplateID = 0
	svc, store, _, _, _, mail := newTestService(business)

	req := invoiceRequest(t, models.DocumentMetadata{SendByEmail: true}, nil)

	rec, err := svc.Generate(context.Background(), business.ID, req)
	require.NoError(t, err)

	assert.False(t, rec.SentByEmail)
	assert.Empty(t, mail.calls)
	require.Len(t, store.records, 1)
}

func TestGenerateReceipt(t *testing.T) {
	business := testBusiness(true)
	svc, _, rend, _, wa, _ := newTestService(business)

	payload, err := json.Marshal(models.Receipt{
		DocumentNo: "REC-0042",
		Seller:     "Pedro Gomez",
		Customer:   models.Customer{Name: "Colmado La Esquina"},
		Items: []models.ReceiptItem{
			{DocumentNo: "FAC-00120", Balance: 500, Collected: 500},
		},
		TotalCollected: 500,
	})
	require.NoError(t, err)

	rec, genErr := svc.Generate(context.Background(), business.ID, &models.GenerateRequest{
		DocumentType: models.DocumentReceipt,
		Metadata:     models.DocumentMetadata{SendByWhatsApp: true, Currency: "DOP"},
		WhatsApp:     &models.WhatsAppTarget{Phone: "18095551234", TemplateName: "receipt_delivery"},
		Payload:      payload,
	})
	require.NoError(t, genErr)

	assert.Equal(t, []string{"receipt"}, rend.calls)
	assert.Equal(t, "REC-0042", rec.DocumentNo)
	require.Len(t, wa.calls, 1)
	assert.Contains(t, wa.calls[0].msg.BodyParams[2], "500.00")
}

func TestGenerateRejectsUnknownType(t *testing.T) {
	business := testBusiness(true)
	svc, _, _, _, _, _ := newTestService(business)

	_, err := svc.Generate(context.Background(), business.ID, &models.GenerateRequest{
		DocumentType: "contract",
		Payload:      json.RawMessage(`{}`),
	})
	assert.True(t, apperror.Is(err, apperror.InvalidArgument))
}

func TestGenerateUnknownBusiness(t *testing.T) {
	business := testBusiness(true)
	svc, _, _, _, _, _ := newTestService(business)

	req := invoiceRequest(t, models.DocumentMetadata{}, nil)
	_, err := svc.Generate(context.Background(), uuid.New(), req)
	assert.True(t, apperror.Is(err, apperror.NotFound))
}

func TestFormatAmountGrouping(t *testing.T) {
	out := formatAmount("en", "USD", 1250)
	assert.Contains(t, out, "1,250.00")

	// Unknown currency codes fall back to a bare decimal
	out = formatAmount("en", "", 42.5)
	assert.Contains(t, out, "42.50")
}
