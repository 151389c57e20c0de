package paypal

import "github.com/shopspring/decimal"

// Amount is PayPal's currency/value pair. Values arrive as decimal
// strings ("25.00"), which decimal.Decimal unmarshals without loss.
type Amount struct {
	CurrencyCode string          `json:"currency_code" validate:"required,len=3"`
	Value        decimal.Decimal `json:"value" validate:"required"`
}

// Capture is the payload of PAYMENT.CAPTURE.* webhook events.
type Capture struct {
	ID                        string                     `json:"id" validate:"required"`
	Status                    string                     `json:"status"`
	Amount                    Amount                     `json:"amount"`
	CustomID                  string                     `json:"custom_id"`
	CreateTime                string                     `json:"create_time"`
	SellerReceivableBreakdown *SellerReceivableBreakdown `json:"seller_receivable_breakdown"`
	SupplementaryData         *SupplementaryData         `json:"supplementary_data"`
	Payer                     *Payer                     `json:"payer"`
}

// SellerReceivableBreakdown carries settlement amounts in the merchant's
// receivable currency.
type SellerReceivableBreakdown struct {
	GrossAmount      Amount  `json:"gross_amount"`
	PaypalFee        Amount  `json:"paypal_fee"`
	NetAmount        Amount  `json:"net_amount"`
	ReceivableAmount *Amount `json:"receivable_amount"`
	ExchangeRate     *struct {
		SourceCurrency string          `json:"source_currency"`
		TargetCurrency string          `json:"target_currency"`
		Value          decimal.Decimal `json:"value"`
	} `json:"exchange_rate"`
}

// SupplementaryData links a capture back to its order and subscription.
type SupplementaryData struct {
	RelatedIDs struct {
		OrderID        string `json:"order_id"`
		SubscriptionID string `json:"subscription_id"`
	} `json:"related_ids"`
}

// Payer identifies who paid.
type Payer struct {
	PayerID      string `json:"payer_id"`
	EmailAddress string `json:"email_address"`
	Name         *Name  `json:"name"`
}

// Name is PayPal's split name object.
type Name struct {
	GivenName string `json:"given_name"`
	Surname   string `json:"surname"`
}

// Subscription is the payload of BILLING.SUBSCRIPTION.* webhook events and
// of the subscriptions API.
type Subscription struct {
	ID              string       `json:"id" validate:"required"`
	Status          string       `json:"status"`
	PlanID          string       `json:"plan_id"`
	StartTime       string       `json:"start_time"`
	CustomID        string       `json:"custom_id"`
	Subscriber      *Subscriber  `json:"subscriber"`
	BillingInfo     *BillingInfo `json:"billing_info"`
	BillingInterval string       `json:"-"`
}

// Subscriber carries the donor behind a subscription.
type Subscriber struct {
	PayerID         string           `json:"payer_id"`
	EmailAddress    string           `json:"email_address"`
	Name            *Name            `json:"name"`
	ShippingAddress *ShippingAddress `json:"shipping_address"`
}

// ShippingAddress wraps the portable address object.
type ShippingAddress struct {
	Address struct {
		AddressLine1 string `json:"address_line_1"`
		AddressLine2 string `json:"address_line_2"`
		AdminArea2   string `json:"admin_area_2"`
		AdminArea1   string `json:"admin_area_1"`
		PostalCode   string `json:"postal_code"`
		CountryCode  string `json:"country_code"`
	} `json:"address"`
}

// BillingInfo carries schedule amounts and the next charge time.
type BillingInfo struct {
	LastPayment *struct {
		Amount Amount `json:"amount"`
		Time   string `json:"time"`
	} `json:"last_payment"`
	NextBillingTime string `json:"next_billing_time"`
	CycleExecutions []CycleExecution `json:"cycle_executions"`
}

// CycleExecution distinguishes trial cycles from regular ones.
type CycleExecution struct {
	TenureType      string `json:"tenure_type"`
	Sequence        int    `json:"sequence"`
	CyclesRemaining int    `json:"cycles_remaining"`
}

// Plan is the subset of the billing plan needed to derive the schedule.
type Plan struct {
	ID            string `json:"id"`
	BillingCycles []struct {
		TenureType string `json:"tenure_type"`
		Frequency  struct {
			IntervalUnit  string `json:"interval_unit"`
			IntervalCount int    `json:"interval_count"`
		} `json:"frequency"`
		PricingScheme struct {
			FixedPrice Amount `json:"fixed_price"`
		} `json:"pricing_scheme"`
	} `json:"billing_cycles"`
}
