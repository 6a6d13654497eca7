package gateway

// providerErrorResponse is the provider's error envelope. errCode is absent
// on some endpoints, so errText alone is enough to report.
type providerErrorResponse struct {
	ErrCode string `json:"errCode"`
	ErrText string `json:"errText"`
}
