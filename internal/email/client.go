// Package email sends transactional mail through Mailjet.
package email

import (
	"fmt"

	mailjet "github.com/mailjet/mailjet-apiv3-go/v4"
	"github.com/rs/zerolog/log"

	"github.com/mseller-cloud/mseller-server/internal/config"
	"github.com/mseller-cloud/mseller-server/internal/models"
)

// Subject lines per document type
var documentSubjects = map[models.DocumentType]string{
	models.DocumentInvoice: "Factura",
	models.DocumentOrder:   "Pedido",
	models.DocumentReceipt: "Recibo",
	models.DocumentQuote:   "Cotización",
}

// Client sends transactional email
type Client struct {
	mj  *mailjet.Client
	cfg *config.EmailConfig
}

// NewClient creates a Mailjet-backed client
func NewClient(cfg *config.EmailConfig) *Client {
	return &Client{
		mj:  mailjet.NewMailjetClient(cfg.PublicKey, cfg.PrivateKey),
		cfg: cfg,
	}
}

// SendDocument mails a generated document link to the customer using
// the tenant's stored mail template
func (c *Client) SendDocument(to, toName string, templateID int64, docType models.DocumentType, documentNo, url, businessName string) error {
	subject, ok := documentSubjects[docType]
	if !ok {
		subject = "Documento"
	}
	subject = fmt.Sprintf("%s %s - %s", subject, documentNo, businessName)

	messages := mailjet.MessagesV31{
		Info: []mailjet.InfoMessagesV31{
			{
				From: &mailjet.RecipientV31{
					Email: c.cfg.SenderEmail,
					Name:  c.cfg.SenderName,
				},
				To: &mailjet.RecipientsV31{
					mailjet.RecipientV31{
						Email: to,
						Name:  toName,
					},
				},
				Subject:          subject,
				TemplateID:       int(templateID),
				TemplateLanguage: true,
				Variables: map[string]interface{}{
					"customer":   toName,
					"documentNo": documentNo,
					"url":        url,
					"business":   businessName,
				},
			},
		},
	}

	if _, err := c.mj.SendMailV31(&messages); err != nil {
		return fmt.Errorf("send document email: %w", err)
	}

	log.Info().
		Str("to", to).
		Str("documentNo", documentNo).
		Msg("Document email sent")
	return nil
}

// SendWelcome mails the onboarding welcome to the new administrator
func (c *Client) SendWelcome(to, toName, businessName string, portalURL string) error {
	messages := mailjet.MessagesV31{
		Info: []mailjet.InfoMessagesV31{
			{
				From: &mailjet.RecipientV31{
					Email: c.cfg.SenderEmail,
					Name:  c.cfg.SenderName,
				},
				To: &mailjet.RecipientsV31{
					mailjet.RecipientV31{
						Email: to,
						Name:  toName,
					},
				},
				Subject:          fmt.Sprintf("Bienvenido a %s", businessName),
				TemplateID:       c.cfg.WelcomeTemplateID,
				TemplateLanguage: true,
				Variables: map[string]interface{}{
					"name":      toName,
					"business":  businessName,
					"portalUrl": portalURL,
				},
			},
		},
	}

	if _, err := c.mj.SendMailV31(&messages); err != nil {
		return fmt.Errorf("send welcome email: %w", err)
	}
	return nil
}

// operatorRecipients builds the internal notification recipient list.
// Falls back to the sender address when no operators are configured.
func (c *Client) operatorRecipients() mailjet.RecipientsV31 {
	if len(c.cfg.OperatorEmails) == 0 {
		return mailjet.RecipientsV31{
			mailjet.RecipientV31{Email: c.cfg.SenderEmail, Name: c.cfg.SenderName},
		}
	}
	recipients := make(mailjet.RecipientsV31, 0, len(c.cfg.OperatorEmails))
	for _, addr := range c.cfg.OperatorEmails {
		recipients = append(recipients, mailjet.RecipientV31{Email: addr})
	}
	return recipients
}

// SendSignupNotice mails the internal signup notification
func (c *Client) SendSignupNotice(businessName, contactName, contactEmail, contactPhone string) error {
	to := c.operatorRecipients()
	messages := mailjet.MessagesV31{
		Info: []mailjet.InfoMessagesV31{
			{
				From: &mailjet.RecipientV31{
					Email: c.cfg.SenderEmail,
					Name:  c.cfg.SenderName,
				},
				To:               &to,
				Subject:          fmt.Sprintf("Nuevo registro: %s", businessName),
				TemplateID:       c.cfg.SignupTemplateID,
				TemplateLanguage: true,
				Variables: map[string]interface{}{
					"business": businessName,
					"contact":  contactName,
					"email":    contactEmail,
					"phone":    contactPhone,
				},
			},
		},
	}

	if _, err := c.mj.SendMailV31(&messages); err != nil {
		return fmt.Errorf("send signup notice: %w", err)
	}
	return nil
}

// SendOffboardingNotice confirms a business deletion to the operators
// and the business contact
func (c *Client) SendOffboardingNotice(businessName, contactEmail string, usersRemoved int64) error {
	to := c.operatorRecipients()
	if contactEmail != "" {
		to = append(to, mailjet.RecipientV31{Email: contactEmail})
	}

	messages := mailjet.MessagesV31{
		Info: []mailjet.InfoMessagesV31{
			{
				From: &mailjet.RecipientV31{
					Email: c.cfg.SenderEmail,
					Name:  c.cfg.SenderName,
				},
				To:      &to,
				Subject: fmt.Sprintf("Cuenta eliminada: %s", businessName),
				TextPart: fmt.Sprintf(
					"La cuenta %s fue eliminada junto con %d usuarios.",
					businessName, usersRemoved),
			},
		},
	}

	if _, err := c.mj.SendMailV31(&messages); err != nil {
		return fmt.Errorf("send offboarding notice: %w", err)
	}
	return nil
}
