package transfer

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	dErrors "paygate/pkg/domain-errors"
)

// EnvelopeSender delivers an encoded envelope to a counter-party endpoint.
type EnvelopeSender interface {
	Send(ctx context.Context, endpointURL, encoded string) error
}

// HTTPEnvelopeSender posts envelopes as the `data` form field, matching the
// inbound /pay contract. Timeouts and network failures surface as transient
// errors; they are the only retryable class.
type HTTPEnvelopeSender struct {
	httpClient *http.Client
}

func NewHTTPEnvelopeSender(timeout time.Duration) *HTTPEnvelopeSender {
	return &HTTPEnvelopeSender{httpClient: &http.Client{Timeout: timeout}}
}

// NewHTTPEnvelopeSenderWithClient is for tests that need to intercept
// transport.
func NewHTTPEnvelopeSenderWithClient(hc *http.Client) *HTTPEnvelopeSender {
	return &HTTPEnvelopeSender{httpClient: hc}
}

func (s *HTTPEnvelopeSender) Send(ctx context.Context, endpointURL, encoded string) error {
	form := url.Values{}
	form.Set("data", encoded)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpointURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "build forward request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			return dErrors.Wrap(dErrors.CodeTransient, "counter-party timeout", err)
		}
		return dErrors.Wrap(dErrors.CodeTransient, "counter-party unreachable", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 500 {
		return dErrors.New(dErrors.CodeTransient, "counter-party unavailable")
	}
	if resp.StatusCode >= 300 {
		return dErrors.New(dErrors.CodeInvalidEnvelope, "counter-party rejected envelope")
	}
	return nil
}
