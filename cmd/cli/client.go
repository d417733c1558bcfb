package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/iho/vslaledger/internal/adapter/http/dto"
)

// apiClient is a thin JSON client for the ledger API.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string, timeout time.Duration) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// apiError is a non-2xx reply from the server.
type apiError struct {
	Status  int
	Code    string
	Message string
}

func (e *apiError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s (status %d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("%s (status %d)", e.Code, e.Status)
}

func (c *apiClient) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &apiError{Status: resp.StatusCode, Code: http.StatusText(resp.StatusCode)}
		var errResp dto.ErrorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
			apiErr.Code = errResp.Error
			apiErr.Message = errResp.Message
		}
		return apiErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func (c *apiClient) balance(ctx context.Context, groupID int64, asOf string) (*dto.BalanceResponse, error) {
	query := url.Values{}
	if asOf != "" {
		query.Set("as_of", asOf)
	}
	var out dto.BalanceResponse
	if err := c.get(ctx, fmt.Sprintf("/api/v1/groups/%d/balance", groupID), query, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type entriesQuery struct {
	From     string
	To       string
	Page     int
	PageSize int
}

func (c *apiClient) entries(ctx context.Context, groupID int64, q entriesQuery) (*dto.ListEntriesResponse, error) {
	query := url.Values{}
	if q.From != "" {
		query.Set("from", q.From)
	}
	if q.To != "" {
		query.Set("to", q.To)
	}
	if q.Page > 0 {
		query.Set("page", fmt.Sprint(q.Page))
	}
	if q.PageSize > 0 {
		query.Set("page_size", fmt.Sprint(q.PageSize))
	}
	var out dto.ListEntriesResponse
	if err := c.get(ctx, fmt.Sprintf("/api/v1/groups/%d/entries", groupID), query, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) schedule(ctx context.Context, loanID int64, asOf string) (*dto.ScheduleResponse, error) {
	query := url.Values{}
	if asOf != "" {
		query.Set("as_of", asOf)
	}
	var out dto.ScheduleResponse
	if err := c.get(ctx, fmt.Sprintf("/api/v1/loans/%d/schedule", loanID), query, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) reconcile(ctx context.Context, groupID int64) (*dto.VerificationResponse, error) {
	var out dto.VerificationResponse
	if err := c.get(ctx, fmt.Sprintf("/api/v1/groups/%d/reconciliation", groupID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
