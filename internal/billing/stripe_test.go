package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stripe/stripe-go/v82"
)

func TestInvoicePaymentIntents(t *testing.T) {
	sub := &stripe.Subscription{
		LatestInvoice: &stripe.Invoice{
			Payments: &stripe.InvoicePaymentList{
				Data: []*stripe.InvoicePayment{
					{
						Payment: &stripe.InvoicePaymentPayment{
							PaymentIntent: &stripe.PaymentIntent{ID: "pi_first"},
						},
					},
					{Payment: nil},
					{
						Payment: &stripe.InvoicePaymentPayment{
							PaymentIntent: &stripe.PaymentIntent{ID: "pi_second"},
						},
					},
				},
			},
		},
	}

	intents := invoicePaymentIntents(sub)
	assert.Len(t, intents, 2)
	assert.Equal(t, "pi_first", intents[0].ID)
	assert.Equal(t, "pi_second", intents[1].ID)
}

func TestInvoicePaymentIntentsEmpty(t *testing.T) {
	assert.Nil(t, invoicePaymentIntents(&stripe.Subscription{}))
	assert.Nil(t, invoicePaymentIntents(&stripe.Subscription{
		LatestInvoice: &stripe.Invoice{},
	}))
}
