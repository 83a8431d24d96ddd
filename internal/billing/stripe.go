// Package billing bridges business subscriptions to Stripe.
package billing

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/charge"
	"github.com/stripe/stripe-go/v82/customer"
	"github.com/stripe/stripe-go/v82/paymentintent"
	"github.com/stripe/stripe-go/v82/paymentmethod"
	"github.com/stripe/stripe-go/v82/price"
	"github.com/stripe/stripe-go/v82/product"
	"github.com/stripe/stripe-go/v82/subscription"

	"github.com/mseller-cloud/mseller-server/internal/config"
)

// Service wraps the Stripe API for customer, payment method,
// subscription and catalog operations
type Service struct{}

// NewService configures the Stripe client key
func NewService(cfg *config.StripeConfig) *Service {
	stripe.Key = cfg.SecretKey
	return &Service{}
}

// CreateCustomer creates a Stripe customer for a business
func (s *Service) CreateCustomer(email, name, businessID string) (*stripe.Customer, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Name:  stripe.String(name),
	}
	params.AddMetadata("businessId", businessID)

	cust, err := customer.New(params)
	if err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	return cust, nil
}

// UpdateCustomer updates customer contact details
func (s *Service) UpdateCustomer(customerID, email, name string) (*stripe.Customer, error) {
	params := &stripe.CustomerParams{}
	if email != "" {
		params.Email = stripe.String(email)
	}
	if name != "" {
		params.Name = stripe.String(name)
	}

	cust, err := customer.Update(customerID, params)
	if err != nil {
		return nil, fmt.Errorf("update customer: %w", err)
	}
	return cust, nil
}

// AttachPaymentMethod attaches a payment method and makes it the
// customer's default for invoices
func (s *Service) AttachPaymentMethod(customerID, paymentMethodID string) (*stripe.PaymentMethod, error) {
	pm, err := paymentmethod.Attach(paymentMethodID, &stripe.PaymentMethodAttachParams{
		Customer: stripe.String(customerID),
	})
	if err != nil {
		return nil, fmt.Errorf("attach payment method: %w", err)
	}

	_, err = customer.Update(customerID, &stripe.CustomerParams{
		InvoiceSettings: &stripe.CustomerInvoiceSettingsParams{
			DefaultPaymentMethod: stripe.String(pm.ID),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("set default payment method: %w", err)
	}

	return pm, nil
}

// DetachPaymentMethod detaches a payment method from its customer
func (s *Service) DetachPaymentMethod(paymentMethodID string) error {
	if _, err := paymentmethod.Detach(paymentMethodID, &stripe.PaymentMethodDetachParams{}); err != nil {
		return fmt.Errorf("detach payment method: %w", err)
	}
	return nil
}

// ListPaymentMethods lists a customer's card payment methods
func (s *Service) ListPaymentMethods(customerID string) ([]*stripe.PaymentMethod, error) {
	params := &stripe.PaymentMethodListParams{
		Customer: stripe.String(customerID),
		Type:     stripe.String(string(stripe.PaymentMethodTypeCard)),
	}

	var methods []*stripe.PaymentMethod
	iter := paymentmethod.List(params)
	for iter.Next() {
		methods = append(methods, iter.PaymentMethod())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("list payment methods: %w", err)
	}

	return methods, nil
}

// CreateSubscription subscribes a customer to a price. Incomplete
// payments are allowed so the caller can confirm the intent.
func (s *Service) CreateSubscription(customerID, priceID string, quantity int64) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionParams{
		Customer: stripe.String(customerID),
		Items: []*stripe.SubscriptionItemsParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(quantity),
			},
		},
		PaymentBehavior: stripe.String("allow_incomplete"),
	}
	params.AddExpand("latest_invoice.payments")

	sub, err := subscription.New(params)
	if err != nil {
		return nil, fmt.Errorf("create subscription: %w", err)
	}

	if err := s.confirmPendingIntents(sub); err != nil {
		return nil, err
	}

	return sub, nil
}

// invoicePaymentIntents collects the payment intents attached to the
// subscription's latest invoice payment records
func invoicePaymentIntents(sub *stripe.Subscription) []*stripe.PaymentIntent {
	if sub.LatestInvoice == nil || sub.LatestInvoice.Payments == nil {
		return nil
	}

	var intents []*stripe.PaymentIntent
	for _, payment := range sub.LatestInvoice.Payments.Data {
		if payment.Payment == nil || payment.Payment.PaymentIntent == nil {
			continue
		}
		intents = append(intents, payment.Payment.PaymentIntent)
	}
	return intents
}

// confirmPendingIntents confirms the subscription's first payment when
// the invoice left it pending
func (s *Service) confirmPendingIntents(sub *stripe.Subscription) error {
	for _, ref := range invoicePaymentIntents(sub) {
		intent, err := paymentintent.Get(ref.ID, nil)
		if err != nil {
			return fmt.Errorf("get payment intent: %w", err)
		}

		switch intent.Status {
		case stripe.PaymentIntentStatusRequiresAction,
			stripe.PaymentIntentStatusRequiresConfirmation:
			if _, err := paymentintent.Confirm(intent.ID, &stripe.PaymentIntentConfirmParams{}); err != nil {
				return fmt.Errorf("confirm payment intent: %w", err)
			}
			log.Info().
				Str("subscription", sub.ID).
				Str("intent", intent.ID).
				Msg("Confirmed pending subscription payment")
		}
	}

	return nil
}

// CancelSubscription cancels a subscription immediately
func (s *Service) CancelSubscription(subscriptionID string) (*stripe.Subscription, error) {
	sub, err := subscription.Cancel(subscriptionID, &stripe.SubscriptionCancelParams{})
	if err != nil {
		return nil, fmt.Errorf("cancel subscription: %w", err)
	}
	return sub, nil
}

// GetSubscription fetches one subscription
func (s *Service) GetSubscription(subscriptionID string) (*stripe.Subscription, error) {
	sub, err := subscription.Get(subscriptionID, &stripe.SubscriptionParams{})
	if err != nil {
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	return sub, nil
}

// UpdateSubscriptionQuantity changes the licensed seat count
func (s *Service) UpdateSubscriptionQuantity(subscriptionID string, quantity int64) (*stripe.Subscription, error) {
	sub, err := subscription.Get(subscriptionID, &stripe.SubscriptionParams{})
	if err != nil {
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	if len(sub.Items.Data) == 0 {
		return nil, fmt.Errorf("subscription %s has no items", subscriptionID)
	}

	updated, err := subscription.Update(subscriptionID, &stripe.SubscriptionParams{
		Items: []*stripe.SubscriptionItemsParams{
			{
				ID:       stripe.String(sub.Items.Data[0].ID),
				Quantity: stripe.Int64(quantity),
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("update subscription quantity: %w", err)
	}
	return updated, nil
}

// ListCharges lists a customer's charges with their invoices expanded
func (s *Service) ListCharges(customerID string, limit int64) ([]*stripe.Charge, error) {
	params := &stripe.ChargeListParams{
		Customer: stripe.String(customerID),
	}
	params.Limit = stripe.Int64(limit)
	params.AddExpand("data.invoice")

	var charges []*stripe.Charge
	iter := charge.List(params)
	for iter.Next() {
		charges = append(charges, iter.Charge())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("list charges: %w", err)
	}

	return charges, nil
}

// Plan is a purchasable product with its prices
type Plan struct {
	Product *stripe.Product `json:"product"`
	Prices  []*stripe.Price `json:"prices"`
}

// ListPlans lists active products of a catalog category with their
// active prices
func (s *Service) ListPlans(category string) ([]*Plan, error) {
	productParams := &stripe.ProductListParams{
		Active: stripe.Bool(true),
	}

	var plans []*Plan
	prodIter := product.List(productParams)
	for prodIter.Next() {
		p := prodIter.Product()
		if category != "" && p.Metadata["category"] != category {
			continue
		}

		priceParams := &stripe.PriceListParams{
			Product: stripe.String(p.ID),
			Active:  stripe.Bool(true),
		}

		var prices []*stripe.Price
		priceIter := price.List(priceParams)
		for priceIter.Next() {
			prices = append(prices, priceIter.Price())
		}
		if err := priceIter.Err(); err != nil {
			return nil, fmt.Errorf("list prices for %s: %w", p.ID, err)
		}

		plans = append(plans, &Plan{Product: p, Prices: prices})
	}
	if err := prodIter.Err(); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	return plans, nil
}
