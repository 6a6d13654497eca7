package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/okhomenko/eventgate/internal/application"
	"github.com/okhomenko/eventgate/internal/config"
)

// HTTPGatewayClient talks to the provider's merchant invoice API. Every
// request carries the merchant token in the X-Token header.
type HTTPGatewayClient struct {
	baseURL     string
	token       string
	redirectURL string
	webhookURL  string
	httpClient  *http.Client
}

func NewGatewayClient(cfg config.GatewayConfig) application.PaymentGateway {
	return &HTTPGatewayClient{
		baseURL:     cfg.BaseURL,
		token:       cfg.Token,
		redirectURL: cfg.RedirectURL,
		webhookURL:  cfg.WebhookURL,
		httpClient: &http.Client{
			Timeout: cfg.ConnTimeout,
		},
	}
}

func (c *HTTPGatewayClient) CreateInvoice(ctx context.Context, req application.CreateInvoiceRequest) (*application.CreateInvoiceResponse, error) {
	endpoint := fmt.Sprintf("%s/api/merchant/invoice/create", c.baseURL)
	body := createInvoiceRequest{
		Amount:      req.AmountCents,
		Currency:    req.Currency,
		RedirectURL: c.redirectURL,
		WebhookURL:  c.webhookURL,
		MerchantInfo: merchantPaymInfo{
			Reference:   req.MerchantData.RegistrationID,
			Destination: req.MerchantData.EventTitle,
			Comment:     req.Description,
		},
	}

	resp, err := sendRequest[createInvoiceRequest, createInvoiceResponse](c, ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return nil, err
	}
	return &application.CreateInvoiceResponse{
		InvoiceID:   resp.InvoiceID,
		PaymentLink: resp.PageURL,
	}, nil
}

func (c *HTTPGatewayClient) CancelInvoice(ctx context.Context, req application.CancelInvoiceRequest) (*application.CancelInvoiceResponse, error) {
	endpoint := fmt.Sprintf("%s/api/merchant/invoice/cancel", c.baseURL)
	body := cancelInvoiceRequest{
		InvoiceID:   req.InvoiceID,
		Amount:      req.AmountCents,
		ExternalRef: req.ExternalRef,
	}

	resp, err := sendRequest[cancelInvoiceRequest, cancelInvoiceResponse](c, ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return nil, err
	}
	return &application.CancelInvoiceResponse{
		RefundRef: resp.ExternalRef,
		Status:    resp.Status,
	}, nil
}

func (c *HTTPGatewayClient) InvoiceStatus(ctx context.Context, invoiceID string) (*application.InvoiceStatusResponse, error) {
	endpoint := fmt.Sprintf("%s/api/merchant/invoice/status?invoiceId=%s", c.baseURL, url.QueryEscape(invoiceID))

	resp, err := sendRequest[any, invoiceStatusResponse](c, ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	return &application.InvoiceStatusResponse{
		InvoiceID:         resp.InvoiceID,
		Status:            application.ProviderStatus(resp.Status),
		ProviderPaymentID: resp.PaymentID,
		AmountCents:       resp.Amount,
	}, nil
}

func sendRequest[Req any, Resp any](c *HTTPGatewayClient, ctx context.Context, method, endpoint string, reqBody *Req) (*Resp, error) {
	var bodyReader io.Reader
	if reqBody != nil {
		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("error marshalling json: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	httpReq.Header.Set("X-Token", c.token)
	if reqBody != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &application.GatewayError{
				Code:    "timeout",
				Message: err.Error(),
				Timeout: true,
			}
		}
		var urlErr *url.Error
		if errors.As(err, &urlErr) && urlErr.Timeout() {
			return nil, &application.GatewayError{
				Code:    "timeout",
				Message: err.Error(),
				Timeout: true,
			}
		}
		return nil, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		var errResp providerErrorResponse
		if err := json.Unmarshal(body, &errResp); err != nil || errResp.ErrText == "" {
			return nil, &application.GatewayError{
				Code:       "unexpected_response",
				Message:    string(body),
				StatusCode: resp.StatusCode,
			}
		}
		code := errResp.ErrCode
		if code == "" {
			code = "provider_error"
		}
		return nil, &application.GatewayError{
			Code:       code,
			Message:    errResp.ErrText,
			StatusCode: resp.StatusCode,
		}
	}

	var decoded Resp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("error decoding json response: %w", err)
	}

	return &decoded, nil
}
