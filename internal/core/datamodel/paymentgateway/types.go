package paymentgateway

import (
	"encoding/json"
	"errors"
)

// Payment link states reported by PayOS.
const (
	LinkStatusPending    = "PENDING"
	LinkStatusProcessing = "PROCESSING"
	LinkStatusPaid       = "PAID"
	LinkStatusCancelled  = "CANCELLED"
	LinkStatusExpired    = "EXPIRED"
)

// CodeSuccess is the "code" PayOS puts on successful envelopes and paid webhooks.
const CodeSuccess = "00"

type Item struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Price    int64  `json:"price"`
}

type CreatePaymentLinkRequest struct {
	OrderCode   int64  `json:"orderCode"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
	BuyerName   string `json:"buyerName,omitempty"`
	BuyerEmail  string `json:"buyerEmail,omitempty"`
	Items       []Item `json:"items,omitempty"`
	CancelURL   string `json:"cancelUrl"`
	ReturnURL   string `json:"returnUrl"`
	ExpiredAt   int64  `json:"expiredAt,omitempty"`
	Signature   string `json:"signature"`
}

func (r *CreatePaymentLinkRequest) Validate() error {
	if r.OrderCode <= 0 {
		return errors.New("orderCode is required")
	}
	if r.Amount <= 0 {
		return errors.New("amount must be greater than 0")
	}
	if r.Description == "" {
		return errors.New("description is required")
	}
	if len(r.Description) > 25 {
		return errors.New("description must not exceed 25 characters")
	}
	if r.ReturnURL == "" || r.CancelURL == "" {
		return errors.New("returnUrl and cancelUrl are required")
	}
	return nil
}

// Envelope wraps every PayOS API response.
type Envelope struct {
	Code      string          `json:"code"`
	Desc      string          `json:"desc"`
	Data      json.RawMessage `json:"data"`
	Signature string          `json:"signature,omitempty"`
}

type PaymentLink struct {
	Bin           string `json:"bin"`
	AccountNumber string `json:"accountNumber"`
	AccountName   string `json:"accountName"`
	Amount        int64  `json:"amount"`
	Description   string `json:"description"`
	OrderCode     int64  `json:"orderCode"`
	Currency      string `json:"currency"`
	PaymentLinkID string `json:"paymentLinkId"`
	Status        string `json:"status"`
	CheckoutURL   string `json:"checkoutUrl"`
	QRCode        string `json:"qrCode"`
}

type Transaction struct {
	Reference           string `json:"reference"`
	Amount              int64  `json:"amount"`
	AccountNumber       string `json:"accountNumber"`
	Description         string `json:"description"`
	TransactionDateTime string `json:"transactionDateTime"`
}

type PaymentLinkInfo struct {
	ID                 string        `json:"id"`
	OrderCode          int64         `json:"orderCode"`
	Amount             int64         `json:"amount"`
	AmountPaid         int64         `json:"amountPaid"`
	AmountRemaining    int64         `json:"amountRemaining"`
	Status             string        `json:"status"`
	CreatedAt          string        `json:"createdAt"`
	Transactions       []Transaction `json:"transactions"`
	CancellationReason *string       `json:"cancellationReason"`
	CanceledAt         *string       `json:"canceledAt"`
}

// WebhookPayload is the body PayOS posts to the merchant webhook. Data stays
// raw so the signature can be computed over exactly what was sent.
type WebhookPayload struct {
	Code      string          `json:"code"`
	Desc      string          `json:"desc"`
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Signature string          `json:"signature"`
}

type WebhookData struct {
	OrderCode              int64   `json:"orderCode"`
	Amount                 int64   `json:"amount"`
	Description            string  `json:"description"`
	AccountNumber          string  `json:"accountNumber"`
	Reference              string  `json:"reference"`
	TransactionDateTime    string  `json:"transactionDateTime"`
	Currency               string  `json:"currency"`
	PaymentLinkID          string  `json:"paymentLinkId"`
	Code                   string  `json:"code"`
	Desc                   string  `json:"desc"`
	CounterAccountBankID   *string `json:"counterAccountBankId"`
	CounterAccountBankName *string `json:"counterAccountBankName"`
	CounterAccountName     *string `json:"counterAccountName"`
	CounterAccountNumber   *string `json:"counterAccountNumber"`
	VirtualAccountName     *string `json:"virtualAccountName"`
	VirtualAccountNumber   *string `json:"virtualAccountNumber"`
}

func (d WebhookData) Paid() bool {
	return d.Code == CodeSuccess
}
