package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "optionflow/internal/errors"
	"optionflow/internal/models"
)

// OpenAlgoClient is a Source backed by an OpenAlgo-compatible REST server.
type OpenAlgoClient struct {
	host       string
	apiKey     string
	httpClient *http.Client
}

// NewOpenAlgoClient creates a client for the given host and API key.
func NewOpenAlgoClient(host, apiKey string, timeout time.Duration) *OpenAlgoClient {
	return &OpenAlgoClient{
		host:   strings.TrimRight(host, "/"),
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type quoteRequest struct {
	APIKey   string `json:"apikey"`
	Symbol   string `json:"symbol"`
	Exchange string `json:"exchange"`
}

type quoteData struct {
	LTP       float64 `json:"ltp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	PrevClose float64 `json:"prev_close"`
	Volume    int64   `json:"volume"`
	OI        int64   `json:"oi"`
	Bid       float64 `json:"bid"`
	Ask       float64 `json:"ask"`
}

type quoteResponse struct {
	Status  string     `json:"status"`
	Message string     `json:"message"`
	Data    *quoteData `json:"data"`
}

type expiryRequest struct {
	APIKey         string `json:"apikey"`
	Symbol         string `json:"symbol"`
	Exchange       string `json:"exchange"`
	InstrumentType string `json:"instrumenttype"`
}

type expiryResponse struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Data    []string `json:"data"`
}

// Quote fetches the current quote for a symbol. A response without a
// positive last-traded price is reported as ErrNoData so callers can skip
// illiquid or unlisted contracts.
func (c *OpenAlgoClient) Quote(ctx context.Context, symbol string, exchange models.Exchange) (*models.Quote, error) {
	req := quoteRequest{APIKey: c.apiKey, Symbol: symbol, Exchange: string(exchange)}

	var resp quoteResponse
	if err := c.post(ctx, "/api/v1/quotes", req, &resp); err != nil {
		return nil, apperrors.NewFeedError("quotes", symbol, err)
	}

	if resp.Status != "success" || resp.Data == nil {
		return nil, apperrors.NewFeedError("quotes", symbol,
			fmt.Errorf("%w: %s", apperrors.ErrNoData, resp.Message))
	}
	if resp.Data.LTP <= 0 {
		return nil, apperrors.NewFeedError("quotes", symbol, apperrors.ErrNoData)
	}

	return &models.Quote{
		Symbol:    symbol,
		Exchange:  exchange,
		Timestamp: time.Now().UTC(),
		LTP:       resp.Data.LTP,
		Open:      resp.Data.Open,
		High:      resp.Data.High,
		Low:       resp.Data.Low,
		Close:     resp.Data.PrevClose,
		Volume:    resp.Data.Volume,
		OI:        resp.Data.OI,
		Bid:       resp.Data.Bid,
		Ask:       resp.Data.Ask,
	}, nil
}

// ExpiryList fetches option expiry dates for an underlying.
func (c *OpenAlgoClient) ExpiryList(ctx context.Context, symbol string, exchange models.Exchange) ([]string, error) {
	req := expiryRequest{
		APIKey:         c.apiKey,
		Symbol:         symbol,
		Exchange:       string(exchange),
		InstrumentType: "options",
	}

	var resp expiryResponse
	if err := c.post(ctx, "/api/v1/expiry", req, &resp); err != nil {
		return nil, apperrors.NewFeedError("expiry", symbol, err)
	}

	if resp.Status != "success" {
		return nil, apperrors.NewFeedError("expiry", symbol,
			fmt.Errorf("%w: %s", apperrors.ErrNoData, resp.Message))
	}
	if len(resp.Data) == 0 {
		return nil, apperrors.NewFeedError("expiry", symbol, apperrors.ErrNoData)
	}

	expiries := make([]string, len(resp.Data))
	for i, e := range resp.Data {
		expiries[i] = strings.ToUpper(strings.TrimSpace(e))
	}
	return expiries, nil
}

func (c *OpenAlgoClient) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
