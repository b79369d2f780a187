package allowlist

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/0xblckmrq/signatory-role/core"
	"github.com/0xblckmrq/signatory-role/ports"
)

// payload is the provider response shape. Entries live under the signers
// field; an absent or malformed field decodes to an empty list.
type payload struct {
	Signers []core.AllowlistEntry `json:"signers"`
}

// Client fetches the remote allow-list authenticated by a static API key.
// Transport failures surface as core.ErrAllowlistUnavailable; an empty or
// unparseable body is reported as an empty list, which callers treat as
// "no eligible wallet".
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a new allow-list client
func NewClient(baseURL, apiKey string, logger *slog.Logger) ports.AllowlistClient {
	retry := retryablehttp.NewClient()
	retry.RetryMax = 2
	retry.RetryWaitMin = 200 * time.Millisecond
	retry.RetryWaitMax = 2 * time.Second
	retry.HTTPClient.Timeout = 10 * time.Second
	retry.Logger = nil

	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    retry.StandardClient(),
		logger:  logger,
	}
}

// Fetch performs one provider request and returns the snapshot of entries
func (c *Client) Fetch(ctx context.Context) ([]core.AllowlistEntry, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid allow-list url: %w", core.ErrAllowlistUnavailable)
	}
	q := u.Query()
	q.Set("apiKey", c.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build allow-list request: %w", core.ErrAllowlistUnavailable)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("allow-list fetch failed", "error", err)
		return nil, fmt.Errorf("allow-list request failed: %w", core.ErrAllowlistUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("allow-list provider returned error", "status", resp.StatusCode)
		return nil, fmt.Errorf("allow-list provider returned %d: %w", resp.StatusCode, core.ErrAllowlistUnavailable)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read allow-list response: %w", core.ErrAllowlistUnavailable)
	}

	var decoded payload
	if err := json.Unmarshal(body, &decoded); err != nil {
		// A well-transported but malformed body fails open to an empty list.
		c.logger.Warn("allow-list response not parseable, treating as empty", "error", err)
		return nil, nil
	}

	entries := make([]core.AllowlistEntry, 0, len(decoded.Signers))
	for _, entry := range decoded.Signers {
		if entry.WalletAddress == "" {
			continue
		}
		entry.WalletAddress = strings.ToLower(entry.WalletAddress)
		entries = append(entries, entry)
	}

	return entries, nil
}
