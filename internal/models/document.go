package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DocumentType discriminates the payload of a generation request
type DocumentType string

const (
	DocumentQuote   DocumentType = "quote"
	DocumentOrder   DocumentType = "order"
	DocumentInvoice DocumentType = "invoice"
	DocumentReceipt DocumentType = "receipt"
)

// Valid reports whether t is a known document type.
func (t DocumentType) Valid() bool {
	switch t {
	case DocumentQuote, DocumentOrder, DocumentInvoice, DocumentReceipt:
		return true
	}
	return false
}

// Company is the issuing business block printed on a document
type Company struct {
	Name    string `json:"name"`
	RNC     string `json:"rnc"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
	LogoURL string `json:"logoUrl"`
	Footer  string `json:"footer"`
}

// Customer is the receiving party block printed on a document
type Customer struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	RNC     string `json:"rnc"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
}

// Item is one sales document line
type Item struct {
	Code        string  `json:"code"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
	Price       float64 `json:"price"`
	Discount    float64 `json:"discount"`
	Tax         float64 `json:"tax"`
	Total       float64 `json:"total"`
}

// ReceiptItem is one settled invoice reference on a payment receipt
type ReceiptItem struct {
	DocumentNo string  `json:"documentNo"`
	Date       string  `json:"date"`
	Balance    float64 `json:"balance"`
	Discount   float64 `json:"discount"`
	Collected  float64 `json:"collected"`
}

// SalesDocument is the payload for quotes, orders and invoices
type SalesDocument struct {
	DocumentNo string   `json:"documentNo"`
	Date       string   `json:"date"`
	DueDate    string   `json:"dueDate,omitempty"`
	Seller     string   `json:"seller"`
	Company    Company  `json:"company"`
	Customer   Customer `json:"customer"`
	Items      []Item   `json:"items"`
	Subtotal   float64  `json:"subtotal"`
	Discount   float64  `json:"discount"`
	Tax        float64  `json:"tax"`
	Total      float64  `json:"total"`
	Comment    string   `json:"comment,omitempty"`
}

// Receipt is the payload for payment receipts
type Receipt struct {
	DocumentNo     string        `json:"documentNo"`
	Date           string        `json:"date"`
	Seller         string        `json:"seller"`
	Company        Company       `json:"company"`
	Customer       Customer      `json:"customer"`
	Items          []ReceiptItem `json:"items"`
	TotalCollected float64       `json:"totalCollected"`
	Comment        string        `json:"comment,omitempty"`
}

// WhatsAppTarget addresses the templated delivery of a document
type WhatsAppTarget struct {
	Phone        string `json:"phone"`
	TemplateName string `json:"templateName"`
	SellerPhone  string `json:"sellerPhone,omitempty"`
}

// DocumentMetadata carries the delivery flags of a generation request.
// The flags are authoritative; absence of a channel target only matters
// when its flag is set.
type DocumentMetadata struct {
	SendByWhatsApp bool   `json:"sendByWhatsapp"`
	SendByEmail    bool   `json:"sendByEmail"`
	Email          string `json:"email,omitempty"`
	Locale         string `json:"locale,omitempty"`
	Currency       string `json:"currency,omitempty"`
}

// GenerateRequest is the envelope accepted by the document endpoint.
// Payload is decoded according to DocumentType.
type GenerateRequest struct {
	DocumentType DocumentType     `json:"documentType"`
	Metadata     DocumentMetadata `json:"metadata"`
	WhatsApp     *WhatsAppTarget  `json:"whatsapp,omitempty"`
	Payload      json.RawMessage  `json:"payload"`
}

// DecodeSales decodes the payload as a sales document. Only valid for
// quote, order and invoice requests.
func (r *GenerateRequest) DecodeSales() (*SalesDocument, error) {
	if r.DocumentType == DocumentReceipt {
		return nil, fmt.Errorf("document type %s has no sales payload", r.DocumentType)
	}
	var doc SalesDocument
	if err := json.Unmarshal(r.Payload, &doc); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", r.DocumentType, err)
	}
	return &doc, nil
}

// DecodeReceipt decodes the payload as a payment receipt.
func (r *GenerateRequest) DecodeReceipt() (*Receipt, error) {
	if r.DocumentType != DocumentReceipt {
		return nil, fmt.Errorf("document type %s is not a receipt", r.DocumentType)
	}
	var rec Receipt
	if err := json.Unmarshal(r.Payload, &rec); err != nil {
		return nil, fmt.Errorf("decode receipt payload: %w", err)
	}
	return &rec, nil
}

// DocumentRecord tracks a generated PDF and its delivery outcome. The
// original request payload is kept for reprints and audits.
type DocumentRecord struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	BusinessID uuid.UUID       `json:"businessId" db:"business_id"`
	Type       DocumentType    `json:"type" db:"type"`
	DocumentNo string          `json:"documentNo" db:"document_no"`
	FileName   string          `json:"fileName" db:"file_name"`
	ObjectKey  string          `json:"objectKey" db:"object_key"`
	URL        string          `json:"url" db:"url"`
	Payload    json.RawMessage `json:"payload,omitempty" db:"payload"`

	SentByWhatsApp bool `json:"sentByWhatsapp" db:"sent_by_whatsapp"`
	SentByEmail    bool `json:"sentByEmail" db:"sent_by_email"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
