package sheet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"sheet-quiz/internal/domain"

	"go.uber.org/zap"
)

// Client talks to the spreadsheet-backed script endpoint. It is the question
// source, the re-attempt checker and the primary result sink.
type Client struct {
	endpoint string
	http     *http.Client
	log      *zap.Logger
}

func NewClient(endpoint string, httpClient *http.Client, log *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{endpoint: endpoint, http: httpClient, log: log}
}

// FetchRawQuestions returns the sheet rows as served, before normalization.
func (c *Client) FetchRawQuestions(ctx context.Context) ([]domain.RawQuestion, error) {
	var rows []domain.RawQuestion
	if err := c.get(ctx, url.Values{"action": {"getQuestions"}}, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// FetchQuestions loads and normalizes the question set.
func (c *Client) FetchQuestions(ctx context.Context) (domain.QuestionSet, error) {
	rows, err := c.FetchRawQuestions(ctx)
	if err != nil {
		return nil, err
	}
	set := domain.NormalizeQuestions(rows)
	if len(set) == 0 {
		return nil, domain.ErrEmptySet
	}
	c.log.Debug("questions fetched", zap.Int("rows", len(rows)), zap.Int("questions", len(set)))
	return set, nil
}

// CheckEmail asks whether a result is already stored for email.
func (c *Client) CheckEmail(ctx context.Context, email string) (domain.PriorResult, error) {
	var prior domain.PriorResult
	err := c.get(ctx, url.Values{"action": {"checkEmail"}, "email": {email}}, &prior)
	return prior, err
}

// SaveResult posts the finished session. The response body is ignored.
func (c *Client) SaveResult(ctx context.Context, payload domain.ResultPayload) error {
	if payload.Action == "" {
		payload.Action = domain.ActionSaveResult
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: save result: status %d", domain.ErrTransport, resp.StatusCode)
	}
	return nil
}

func (c *Client) get(ctx context.Context, query url.Values, out any) error {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	for k, v := range query {
		q[k] = v
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s: status %d", domain.ErrTransport, query.Get("action"), resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s: decode response: %v", domain.ErrTransport, query.Get("action"), err)
	}
	return nil
}
