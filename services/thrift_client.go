package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Girls-Girls-Inc/wits-quest-sub001/utils"
)

// Coordinate accepts a JSON number, a numeric string or null.
type Coordinate struct {
	Value float64
	Valid bool
}

func (c *Coordinate) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == `""` {
		*c = Coordinate{}
		return nil
	}
	s = strings.Trim(s, `"`)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// Unparsable coordinates make the store invalid, not the payload.
		*c = Coordinate{}
		return nil
	}
	*c = Coordinate{Value: v, Valid: true}
	return nil
}

// ThriftStore is one entry of GET /external/stores.
type ThriftStore struct {
	StoreName   string  `json:"storeName"`
	Address     *string `json:"address,omitempty"`
	Description *string `json:"description,omitempty"`
	Location    struct {
		Lat Coordinate `json:"lat"`
		Lng Coordinate `json:"lng"`
	} `json:"location"`
}

// StoreFetcher lists third-party stores.
type StoreFetcher interface {
	FetchStores(ctx context.Context) ([]ThriftStore, error)
}

type ThriftClient struct {
	baseURL      string
	endpointPath string
	apiKey       string
	timeout      time.Duration
	httpClient   HTTPDoer
}

func NewThriftClient(baseURL, apiKey string, timeout time.Duration) *ThriftClient {
	return &ThriftClient{
		baseURL:      baseURL,
		endpointPath: "/external/stores",
		apiKey:       apiKey,
		timeout:      timeout,
		httpClient:   utils.NewHTTPClient(0),
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// FetchStores performs one bounded GET. Non-2xx responses and timeouts are UpstreamError.
func (c *ThriftClient) FetchStores(ctx context.Context) ([]ThriftStore, error) {
	base, err := url.Parse(c.baseURL)
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("invalid store API base URL %q", c.baseURL)
	}
	endpoint := base.JoinPath(c.endpointPath).String()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request to %s: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	slog.Debug("[IMPORT] fetching stores", "url", endpoint)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, UpstreamTimeout(err)
		}
		return nil, &Error{Kind: KindUpstream, Message: "store API request failed", Err: err}
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		slog.Error("[IMPORT] store API error", "status", resp.StatusCode, "body", string(body))
		return nil, UpstreamFailure(resp.StatusCode, strings.TrimSpace(string(body)))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return nil, UpstreamTimeout(err)
		}
		return nil, &Error{Kind: KindUpstream, Message: "failed to read store API response", Err: err}
	}
	stores, err := decodeStores(raw)
	if err != nil {
		return nil, &Error{Kind: KindUpstream, Message: "invalid store API response", Err: err}
	}
	return stores, nil
}

// decodeStores accepts a bare array or an object wrapping it in "stores" or "data".
func decodeStores(raw []byte) ([]ThriftStore, error) {
	raw = bytes.TrimSpace(raw)
	var stores []ThriftStore
	if len(raw) > 0 && raw[0] == '[' {
		if err := json.Unmarshal(raw, &stores); err != nil {
			return nil, err
		}
		return stores, nil
	}
	var wrapped struct {
		Stores []ThriftStore `json:"stores"`
		Data   []ThriftStore `json:"data"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, err
	}
	if wrapped.Stores != nil {
		return wrapped.Stores, nil
	}
	return wrapped.Data, nil
}
