package stripe

import (
	"context"
	"fmt"
	"time"

	stripeapi "github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"

	"github.com/shopspring/decimal"
	"github.com/ttran/storefront-api/internal/usecase"
)

// Client wraps the Stripe SDK behind the PaymentGateway port. All calls get
// a bounded timeout; a gateway that hangs must not hold a checkout request
// open indefinitely.
type Client struct {
	api      *client.API
	currency string
	timeout  time.Duration
}

func NewClient(secretKey, currency string, timeout time.Duration) *Client {
	if currency == "" {
		currency = "usd"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	api := &client.API{}
	api.Init(secretKey, nil)
	return &Client{api: api, currency: currency, timeout: timeout}
}

func (c *Client) CreateCheckoutSession(ctx context.Context, items []usecase.CheckoutItem,
	successURL, cancelURL string, metadata map[string]string) (usecase.CheckoutSession, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	lineItems := make([]*stripeapi.CheckoutSessionLineItemParams, 0, len(items))
	for _, it := range items {
		productData := &stripeapi.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripeapi.String(it.Name),
		}
		if it.Image != "" {
			productData.Images = stripeapi.StringSlice([]string{it.Image})
		}
		lineItems = append(lineItems, &stripeapi.CheckoutSessionLineItemParams{
			PriceData: &stripeapi.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripeapi.String(c.currency),
				ProductData: productData,
				UnitAmount:  stripeapi.Int64(MinorUnits(it.UnitPrice)),
			},
			Quantity: stripeapi.Int64(it.Quantity),
		})
	}

	params := &stripeapi.CheckoutSessionParams{
		Params:             stripeapi.Params{Context: ctx},
		Mode:               stripeapi.String(string(stripeapi.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripeapi.StringSlice([]string{"card"}),
		LineItems:          lineItems,
		SuccessURL:         stripeapi.String(successURL),
		CancelURL:          stripeapi.String(cancelURL),
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	sess, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return usecase.CheckoutSession{}, fmt.Errorf("create checkout session: %w", err)
	}
	return usecase.CheckoutSession{ID: sess.ID, URL: sess.URL, PaymentStatus: string(sess.PaymentStatus)}, nil
}

func (c *Client) CreatePaymentIntent(ctx context.Context, amount decimal.Decimal,
	currency string, metadata map[string]string) (usecase.PaymentIntent, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if currency == "" {
		currency = c.currency
	}
	params := &stripeapi.PaymentIntentParams{
		Params:   stripeapi.Params{Context: ctx},
		Amount:   stripeapi.Int64(MinorUnits(amount)),
		Currency: stripeapi.String(currency),
		AutomaticPaymentMethods: &stripeapi.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripeapi.Bool(true),
		},
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	pi, err := c.api.PaymentIntents.New(params)
	if err != nil {
		return usecase.PaymentIntent{}, fmt.Errorf("create payment intent: %w", err)
	}
	return usecase.PaymentIntent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

// RetrieveSession is read-only: the success page shows it, but finalize is
// only ever triggered by the confirm call or the webhook.
func (c *Client) RetrieveSession(ctx context.Context, sessionID string) (usecase.CheckoutSession, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	sess, err := c.api.CheckoutSessions.Get(sessionID, &stripeapi.CheckoutSessionParams{
		Params: stripeapi.Params{Context: ctx},
	})
	if err != nil {
		return usecase.CheckoutSession{}, fmt.Errorf("retrieve session %s: %w", sessionID, err)
	}
	return usecase.CheckoutSession{ID: sess.ID, URL: sess.URL, PaymentStatus: string(sess.PaymentStatus)}, nil
}

// MinorUnits converts a decimal currency amount to integer minor units.
// Rounding is half-up, not truncation; truncating would systematically
// underbill fractional cents.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

var _ usecase.PaymentGateway = (*Client)(nil)
