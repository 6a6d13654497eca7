package gateway

// Wire types for the provider's merchant invoice API. Amounts are minor
// units, matching the rest of the system.

type createInvoiceRequest struct {
	Amount       int64            `json:"amount"`
	Currency     string           `json:"ccy"`
	RedirectURL  string           `json:"redirectUrl,omitempty"`
	WebhookURL   string           `json:"webHookUrl,omitempty"`
	MerchantInfo merchantPaymInfo `json:"merchantPaymInfo"`
}

type merchantPaymInfo struct {
	Reference   string `json:"reference"`
	Destination string `json:"destination"`
	Comment     string `json:"comment,omitempty"`
}

type createInvoiceResponse struct {
	InvoiceID string `json:"invoiceId"`
	PageURL   string `json:"pageUrl"`
}

type cancelInvoiceRequest struct {
	InvoiceID   string `json:"invoiceId"`
	Amount      int64  `json:"amount,omitempty"`
	ExternalRef string `json:"extRef,omitempty"`
}

type cancelInvoiceResponse struct {
	Status      string `json:"status"`
	CreatedDate string `json:"createdDate"`
	ExternalRef string `json:"extRef"`
}

type invoiceStatusResponse struct {
	InvoiceID string `json:"invoiceId"`
	Status    string `json:"status"`
	Amount    int64  `json:"amount"`
	PaymentID string `json:"paymentId"`
}
