package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	dErrors "paygate/pkg/domain-errors"
)

// Client queries the central directory service over HTTP. Bank processes use
// it where the central process reads its own store. Timeouts surface as the
// transient error class so callers know a retry is legitimate.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type bankPayload struct {
	ID                    string `json:"id"`
	Name                  string `json:"name"`
	SwiftCode             string `json:"swiftCode"`
	Country               string `json:"country"`
	PublicKey             string `json:"publicKeyPem"`
	PaymentEndpointURL    string `json:"paymentEndpointUrl"`
	IdentificationNumbers string `json:"identificationNumbers"`
}

// ResolveBank looks up a bank by identity triple.
func (c *Client) ResolveBank(ctx context.Context, name, swiftCode, country string) (BankEntry, error) {
	q := url.Values{}
	q.Set("name", name)
	q.Set("swiftCode", swiftCode)
	q.Set("country", country)
	return c.getBank(ctx, "/directory/resolve?"+q.Encode())
}

// ResolveBankByID looks up a bank by its directory id.
func (c *Client) ResolveBankByID(ctx context.Context, id string) (BankEntry, error) {
	return c.getBank(ctx, "/directory/banks/"+url.PathEscape(id))
}

// ListPaymentCapableBanks fetches the ordered payment-capable listing.
func (c *Client) ListPaymentCapableBanks(ctx context.Context) ([]BankEntry, error) {
	body, err := c.get(ctx, "/directory/banks")
	if err != nil {
		return nil, err
	}
	var payloads []bankPayload
	if err := json.Unmarshal(body, &payloads); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "decode directory response", err)
	}
	banks := make([]BankEntry, 0, len(payloads))
	for _, p := range payloads {
		banks = append(banks, fromPayload(p))
	}
	return banks, nil
}

func (c *Client) getBank(ctx context.Context, path string) (BankEntry, error) {
	body, err := c.get(ctx, path)
	if err != nil {
		return BankEntry{}, err
	}
	var p bankPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return BankEntry{}, dErrors.Wrap(dErrors.CodeInternal, "decode directory response", err)
	}
	return fromPayload(p), nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "build directory request", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Network failures and timeouts are retryable, not protocol
		// rejections.
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			return nil, dErrors.Wrap(dErrors.CodeTransient, "directory timeout", err)
		}
		return nil, dErrors.Wrap(dErrors.CodeTransient, "directory unreachable", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return io.ReadAll(resp.Body)
	case http.StatusNotFound:
		return nil, dErrors.New(dErrors.CodeUnknownBank, "bank not found")
	default:
		return nil, dErrors.New(dErrors.CodeTransient, fmt.Sprintf("directory returned %d", resp.StatusCode))
	}
}

func fromPayload(p bankPayload) BankEntry {
	return BankEntry{
		ID:                    p.ID,
		Name:                  p.Name,
		SwiftCode:             p.SwiftCode,
		Country:               p.Country,
		PublicKeyPEM:          p.PublicKey,
		PaymentEndpointURL:    p.PaymentEndpointURL,
		IdentificationNumbers: p.IdentificationNumbers,
	}
}
