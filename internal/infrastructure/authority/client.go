package authority

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sangkips/invoicecore/internal/domain/enum"
	"golang.org/x/time/rate"
)

// TokenSource supplies bearer tokens for the authority API
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Invalidate()
}

// Config holds the configuration for the authority client
type Config struct {
	BaseURL        string
	RequestTimeout time.Duration
	RatePerSecond  float64
	RateBurst      int
	HTTPClient     *http.Client
}

// Client talks to the tax authority's verification API
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	limiter    *rate.Limiter
	timeout    time.Duration
}

// NewClient creates a new authority client
func NewClient(cfg Config, tokens TokenSource) *Client {
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.RateBurst
	if burst < 1 {
		burst = 1
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		tokens:     tokens,
		limiter:    rate.NewLimiter(limit, burst),
		timeout:    cfg.RequestTimeout,
	}
}

// VerifyRequest is the body of a verification call
type VerifyRequest struct {
	TaxID   string `json:"taxId"`
	DocType string `json:"docType"`
	Series  string `json:"series"`
	Number  string `json:"number"`
	Date    string `json:"date"`   // dd/mm/yyyy
	Amount  string `json:"amount"` // two decimals
}

// VerifyResult is a verification response already translated into a verdict
type VerifyResult struct {
	Verdict      enum.VerificationVerdict
	StateCode    string
	RucState     string
	Observations []string
}

// Taxpayer is the legal-entity record returned by the lookup endpoint
type Taxpayer struct {
	TaxID     string `json:"taxId"`
	LegalName string `json:"legalName"`
	Status    string `json:"status"`
	Condition string `json:"condition"`
	Address   string `json:"address"`
}

// RequestError describes a failed call. Retryable errors are transport,
// authentication, throttling and server-side failures.
type RequestError struct {
	StatusCode int
	Retryable  bool
	Err        error
}

func (e *RequestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("authority returned %d: %v", e.StatusCode, e.Err)
	}
	return e.Err.Error()
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is a RequestError worth repeating
func IsRetryable(err error) bool {
	var reqErr *RequestError
	return errors.As(err, &reqErr) && reqErr.Retryable
}

// stateCode accepts the authority's state code as a JSON string or number
type stateCode string

func (c *stateCode) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*c = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = stateCode(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("stateCode: %w", err)
	}
	*c = stateCode(n.String())
	return nil
}

type verifyResponse struct {
	StateCode    stateCode `json:"stateCode"`
	RucState     string    `json:"rucState"`
	Observations []string  `json:"observations"`
}

// Verify submits one verification request. It does not retry.
func (c *Client) Verify(ctx context.Context, req *VerifyRequest) (*VerifyResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	var resp verifyResponse
	if err := c.do(ctx, http.MethodPost, "/verify", body, &resp); err != nil {
		return nil, err
	}

	return translate(&resp), nil
}

// LookupTaxpayer fetches the legal-entity record for a tax ID
func (c *Client) LookupTaxpayer(ctx context.Context, taxID string) (*Taxpayer, error) {
	var taxpayer Taxpayer
	if err := c.do(ctx, http.MethodGet, "/ruc/"+url.PathEscape(taxID), nil, &taxpayer); err != nil {
		return nil, err
	}
	return &taxpayer, nil
}

func translate(resp *verifyResponse) *VerifyResult {
	code := strings.TrimSpace(string(resp.StateCode))
	result := &VerifyResult{
		Verdict:      enum.VerdictFromStateCode(code),
		StateCode:    code,
		RucState:     resp.RucState,
		Observations: append([]string(nil), resp.Observations...),
	}

	switch result.Verdict {
	case enum.VerdictAnnulled:
		result.Observations = append(result.Observations, "document annulled by issuer")
	case enum.VerdictUnknown:
		result.Observations = append(result.Observations, "unrecognized state code: "+code)
	}
	return result
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &RequestError{Retryable: true, Err: err}
	}

	callCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(callCtx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			// the caller gave up, not the authority
			return ctx.Err()
		}
		return &RequestError{Retryable: true, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		reqErr := &RequestError{
			StatusCode: resp.StatusCode,
			Err:        errors.New(strings.TrimSpace(string(snippet))),
		}
		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			c.tokens.Invalidate()
			reqErr.Retryable = true
		case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
			reqErr.Retryable = true
		}
		return reqErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &RequestError{StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
