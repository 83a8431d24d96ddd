package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// IntegrationProvider identifies a third-party integration type
type IntegrationProvider string

const (
	IntegrationWhatsApp IntegrationProvider = "whatsapp"
)

// Integration holds sandbox/production credential pairs for one provider.
// At most one integration per provider is considered active; the first
// match in the config list wins.
type Integration struct {
	Provider         IntegrationProvider `json:"provider"`
	Enabled          bool                `json:"enabled"`
	IsDevelopment    bool                `json:"isDevelopment"`
	Token            string              `json:"token,omitempty"`
	PhoneNumberID    string              `json:"phoneNumberId,omitempty"`
	DevToken         string              `json:"devToken,omitempty"`
	DevPhoneNumberID string              `json:"devPhoneNumberId,omitempty"`
}

// ActiveCredentials returns the credential pair selected by the
// integration's development flag.
func (i Integration) ActiveCredentials() (token, phoneNumberID string) {
	if i.IsDevelopment {
		return i.DevToken, i.DevPhoneNumberID
	}
	return i.Token, i.PhoneNumberID
}

// Address is a business postal address
type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	Country string `json:"country"`
}

// BusinessConfig is the per-tenant configuration bag
type BusinessConfig struct {
	ServerURL   string `json:"serverUrl"`
	ServerPort  string `json:"serverPort"`
	SandboxURL  string `json:"sandboxUrl"`
	SandboxPort string `json:"sandboxPort"`

	TestMode                  bool `json:"testMode"`
	DisplayPriceWithTax       bool `json:"displayPriceWithTax"`
	AllowPriceBelowMinimum    bool `json:"allowPriceBelowMinimum"`
	AllowOrderAboveCredit     bool `json:"allowOrderAboveCreditLimit"`
	AllowLoadLastOrders       bool `json:"allowLoadLastOrders"`
	AllowLoadLastPrices       bool `json:"allowLoadLastPrices"`
	AllowConfirmProductStock  bool `json:"allowConfirmProductStock"`
	AllowCaptureGeolocation   bool `json:"allowCaptureCustomerGeolocation"`
	ShowProductInfoPanel      bool `json:"showProductInfoPanel"`
	TemporalOrder             bool `json:"temporalOrder"`
	CaptureTemporalDoc        bool `json:"captureTemporalDoc"`
	AllowQuote                bool `json:"allowQuote"`
	TrackingLocation          bool `json:"trackingLocation"`
	DefaultUnitSelectorBox    bool `json:"defaultUnitSelectorBox"`
	EnableConfirmSelector     bool `json:"enableConfirmSelector"`

	OrderEmailTemplateID   int64 `json:"orderEmailTemplateID"`
	PaymentEmailTemplateID int64 `json:"paymentEmailTemplateID"`

	Integrations []Integration `json:"integrations"`
	Metadata     []Variables   `json:"metadata"`
}

// Mail template shipped to every tenant until they configure their own
const defaultOrderEmailTemplateID = 4387549

// DefaultBusinessConfig builds the configuration a portal signup starts
// with. Sync endpoints come from the deployment, the feature flags
// mirror what a brand-new tenant expects to see in the app.
func DefaultBusinessConfig(serverURL, serverPort, sandboxURL, sandboxPort string) BusinessConfig {
	return BusinessConfig{
		ServerURL:   serverURL,
		ServerPort:  serverPort,
		SandboxURL:  sandboxURL,
		SandboxPort: sandboxPort,

		AllowCaptureGeolocation: true,
		TemporalOrder:           true,
		CaptureTemporalDoc:      true,
		AllowQuote:              true,

		OrderEmailTemplateID: defaultOrderEmailTemplateID,

		Integrations: []Integration{},
		Metadata:     []Variables{},
	}
}

// WhatsAppIntegration returns the first whatsapp integration on the
// config, or nil when none is present.
func (c *BusinessConfig) WhatsAppIntegration() *Integration {
	for i := range c.Integrations {
		if c.Integrations[i].Provider == IntegrationWhatsApp {
			return &c.Integrations[i]
		}
	}
	return nil
}

// Value implements driver.Valuer for JSONB storage
func (c BusinessConfig) Value() (driver.Value, error) {
	return json.Marshal(c)
}

// Scan implements sql.Scanner for JSONB storage
func (c *BusinessConfig) Scan(value interface{}) error {
	if value == nil {
		*c = BusinessConfig{}
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into BusinessConfig", value)
	}
	return json.Unmarshal(b, c)
}

// Value implements driver.Valuer for JSONB storage
func (a Address) Value() (driver.Value, error) {
	return json.Marshal(a)
}

// Scan implements sql.Scanner for JSONB storage
func (a *Address) Scan(value interface{}) error {
	if value == nil {
		*a = Address{}
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into Address", value)
	}
	return json.Unmarshal(b, a)
}

// Business represents a tenant organization, the unit of data isolation
type Business struct {
	BaseModel

	Name          string  `json:"name" db:"name"`
	RNC           string  `json:"rnc" db:"rnc"`
	Phone         string  `json:"phone" db:"phone"`
	Email         string  `json:"email" db:"email"`
	Contact       string  `json:"contact" db:"contact"`
	ContactPhone  string  `json:"contactPhone" db:"contact_phone"`
	Fax           string  `json:"fax" db:"fax"`
	Website       string  `json:"website" db:"website"`
	LogoURL       string  `json:"logoUrl" db:"logo_url"`
	PhotoURL      string  `json:"photoURL" db:"photo_url"`
	FooterMessage string  `json:"footerMessage" db:"footer_message"`
	FooterReceipt string  `json:"footerReceipt" db:"footer_receipt"`
	Address       Address `json:"address" db:"address"`

	Config BusinessConfig `json:"config" db:"config"`

	// Billing linkage
	StripeCustomerID   string `json:"stripeCustomerId,omitempty" db:"stripe_customer_id"`
	SubscriptionID     string `json:"subscriptionId,omitempty" db:"subscription_id"`
	SubscriptionStatus string `json:"subscriptionStatus,omitempty" db:"subscription_status"`
	Tier               string `json:"tier" db:"tier"`
	SellerLicenses     int    `json:"sellerLicenses" db:"seller_licenses"`

	Status           bool       `json:"status" db:"status"`
	SellingPackaging bool       `json:"sellingPackaging" db:"selling_packaging"`
	FromPortal       bool       `json:"fromPortal" db:"from_portal"`
	StartDate        *time.Time `json:"startDate,omitempty" db:"start_date"`
}
