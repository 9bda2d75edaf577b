package store

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
)

const defaultRESTTimeout = 8 * time.Second

// RESTStore inserts rows through the hosted backend's REST table endpoint
// (POST {base}/rest/v1/{table}).
type RESTStore struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewRESTStore(baseURL string, apiKey string, timeout time.Duration) (*RESTStore, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	apiKey = strings.TrimSpace(apiKey)
	if baseURL == "" {
		return nil, errors.New("store url is required")
	}
	if apiKey == "" {
		return nil, errors.New("store key is required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid store url %q", baseURL)
	}
	if timeout <= 0 {
		timeout = defaultRESTTimeout
	}

	return &RESTStore{
		baseURL: baseURL,
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

func (s *RESTStore) Insert(ctx context.Context, table string, row Row) error {
	if err := checkInsert(table, row); err != nil {
		return err
	}

	payload, err := json.Marshal([]Row{row})
	if err != nil {
		return fmt.Errorf("encode row: %w", err)
	}

	endpoint := s.baseURL + "/rest/v1/" + url.PathEscape(table)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Prefer", "return=minimal")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StoreError{
			Table:      table,
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
		}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
