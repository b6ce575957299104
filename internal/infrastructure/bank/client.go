package bank

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/DanielPopoola/posnet-gateway/internal/config"
	"github.com/DanielPopoola/posnet-gateway/internal/domain"
	"github.com/DanielPopoola/posnet-gateway/internal/posnet"
)

// maxResponseBytes bounds how much of a reply is read. Gateway replies are a
// few kilobytes; agreement listings are the largest.
const maxResponseBytes = 1 << 20

// HTTPGatewayClient posts requests to the bank's XML service as the xmldata
// form field and decodes the reply.
type HTTPGatewayClient struct {
	xmlURL     string
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

func NewGatewayClient(cfg config.BankConfig, logger *slog.Logger) *HTTPGatewayClient {
	return &HTTPGatewayClient{
		xmlURL:  cfg.XMLURL,
		timeout: cfg.Timeout,
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConnsPerHost: 16,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		logger: logger,
	}
}

// Send exchanges one request. Transport failures come back as a
// *domain.GatewayError in the Technical category; a decline is a Response.
func (c *HTTPGatewayClient) Send(ctx context.Context, req posnet.Request) (posnet.Response, error) {
	op := req.Operation()

	body, err := posnet.Marshal(req)
	if err != nil {
		return nil, domain.NewTechnicalError(string(op), domain.CodeFormatError, fmt.Errorf("encode request: %w", err))
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	form := url.Values{"xmldata": {string(body)}}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.xmlURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, domain.NewTechnicalError(string(op), domain.CodeConnectionFailure, fmt.Errorf("build request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=ISO-8859-9")
	httpReq.Header.Set("Accept", "text/xml")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, domain.NewTechnicalError(string(op), transportCode(err), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, domain.NewTechnicalError(string(op), transportCode(err), fmt.Errorf("read response: %w", err))
	}

	c.logger.Debug("gateway exchange",
		"operation", op,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed", time.Since(start),
	)

	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewTechnicalError(string(op), domain.CodeSystemMalfunction,
			fmt.Errorf("gateway returned status %d", resp.StatusCode))
	}

	parsed, err := posnet.ParseResponse(op, raw)
	if err != nil {
		return nil, domain.NewTechnicalError(string(op), domain.CodeMalformedPayload, err)
	}
	return parsed, nil
}

// transportCode separates timeouts from other connection failures.
func transportCode(err error) domain.ErrorCode {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.CodeTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.CodeTimeout
	}
	return domain.CodeConnectionFailure
}
