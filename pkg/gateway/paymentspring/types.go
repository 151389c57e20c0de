package paymentspring

// Transaction is a PaymentSpring transaction record. Monetary fields are
// integer cents.
type Transaction struct {
	ID             string            `json:"id" validate:"required"`
	CustomerID     string            `json:"customer_id"`
	Class          string            `json:"class"`
	AmountSettled  int64             `json:"amount_settled"`
	AmountFailed   int64             `json:"amount_failed"`
	AmountRefunded int64             `json:"amount_refunded"`
	CreatedAt      string            `json:"created_at"`
	Description    string            `json:"description"`
	Email          string            `json:"email_address"`
	FirstName      string            `json:"first_name"`
	LastName       string            `json:"last_name"`
	CardOwnerName  string            `json:"card_owner_name"`
	AccountHolder  string            `json:"account_holder_name"`
	Phone          string            `json:"phone"`
	Address1       string            `json:"address_1"`
	Address2       string            `json:"address_2"`
	City           string            `json:"city"`
	State          string            `json:"state"`
	Zip            string            `json:"zip"`
	Country        string            `json:"country"`
	Metadata       map[string]string `json:"metadata"`
}

// Customer is a PaymentSpring customer record.
type Customer struct {
	ID        string            `json:"id"`
	Email     string            `json:"email_address"`
	FirstName string            `json:"first_name"`
	LastName  string            `json:"last_name"`
	Phone     string            `json:"phone"`
	Address1  string            `json:"address_1"`
	Address2  string            `json:"address_2"`
	City      string            `json:"city"`
	State     string            `json:"state"`
	Zip       string            `json:"zip"`
	Country   string            `json:"country"`
	Metadata  map[string]string `json:"metadata"`
}

// Subscription is a PaymentSpring plan subscription.
type Subscription struct {
	ID         string `json:"id" validate:"required"`
	CustomerID string `json:"customer_id"`
	PlanID     string `json:"plan_id"`
	Frequency  string `json:"frequency"`
	Amount     int64  `json:"amount"`
	Active     bool   `json:"active"`
}
