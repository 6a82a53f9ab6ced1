package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/guesstheplant/quiz-engine/internal/models"
)

// Client is a Go SDK for the quiz-engine API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new quiz-engine client
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// SpeciesList is the catalog species listing
type SpeciesList struct {
	Species []*models.Species `json:"species"`
	Total   int               `json:"total"`
}

// SpeciesDetail is one species with its resolved extras
type SpeciesDetail struct {
	Species    *models.Species         `json:"species"`
	Names      models.LocalizedNames   `json:"names"`
	Difficulty models.Difficulty       `json:"difficulty"`
	Parameters *models.PlantParameters `json:"parameters,omitempty"`
}

// QuestionList is the derived question listing
type QuestionList struct {
	Questions []*models.Question `json:"questions"`
	Total     int                `json:"total"`
}

// ResultList is the round results of one session
type ResultList struct {
	Results []*models.RoundResult `json:"results"`
	Total   int                   `json:"total"`
}

// RecordedResult is the response to recording a round
type RecordedResult struct {
	Result  *models.RoundResult `json:"result"`
	Session *models.PlaySession `json:"session"`
}

// ListSessionOptions contains options for listing play sessions
type ListSessionOptions struct {
	PlayerID string
	Limit    int
	Offset   int
}

// Health checks the server health endpoint
func (c *Client) Health(ctx context.Context) error {
	_, err := c.doRequest(ctx, "GET", "/health", nil)
	return err
}

// ListSpecies retrieves the species catalog
func (c *Client) ListSpecies(ctx context.Context) (*SpeciesList, error) {
	var out SpeciesList
	if err := c.get(ctx, "/api/v1/catalog/species", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetSpecies retrieves one species by id
func (c *Client) GetSpecies(ctx context.Context, id models.ID) (*SpeciesDetail, error) {
	var out SpeciesDetail
	if err := c.get(ctx, "/api/v1/catalog/species/"+url.PathEscape(id.String()), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListQuestions retrieves the derived questions, optionally filtered by
// difficulty
func (c *Client) ListQuestions(ctx context.Context, difficulty models.Difficulty) (*QuestionList, error) {
	path := "/api/v1/catalog/questions"
	if difficulty != "" {
		path += "?difficulty=" + url.QueryEscape(string(difficulty))
	}
	var out QuestionList
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateSession starts a new persisted play session
func (c *Client) CreateSession(ctx context.Context, req models.CreateSessionRequest) (*models.PlaySession, error) {
	var out models.PlaySession
	if err := c.post(ctx, "/api/v1/sessions", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetSession retrieves a play session by id
func (c *Client) GetSession(ctx context.Context, id string) (*models.PlaySession, error) {
	var out models.PlaySession
	if err := c.get(ctx, "/api/v1/sessions/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListSessions retrieves play sessions
func (c *Client) ListSessions(ctx context.Context, opts ListSessionOptions) ([]*models.PlaySession, error) {
	query := url.Values{}
	if opts.PlayerID != "" {
		query.Set("player_id", opts.PlayerID)
	}
	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		query.Set("offset", strconv.Itoa(opts.Offset))
	}

	path := "/api/v1/sessions"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var out struct {
		Sessions []*models.PlaySession `json:"sessions"`
	}
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out.Sessions, nil
}

// RecordResult records one finished round on a session
func (c *Client) RecordResult(ctx context.Context, sessionID string, req models.RecordResultRequest) (*RecordedResult, error) {
	var out RecordedResult
	if err := c.post(ctx, "/api/v1/sessions/"+url.PathEscape(sessionID)+"/results", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListResults retrieves the round results of a session
func (c *Client) ListResults(ctx context.Context, sessionID string) (*ResultList, error) {
	var out ResultList
	if err := c.get(ctx, "/api/v1/sessions/"+url.PathEscape(sessionID)+"/results", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PlayerSummary retrieves the aggregated results of a player
func (c *Client) PlayerSummary(ctx context.Context, playerID string) (*models.PlayerSummary, error) {
	var out models.PlayerSummary
	if err := c.get(ctx, "/api/v1/players/"+url.PathEscape(playerID)+"/summary", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	resp, err := c.doRequest(ctx, "GET", path, nil)
	if err != nil {
		return err
	}
	return decodeEnvelope(resp, out)
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.doRequest(ctx, "POST", path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	return decodeEnvelope(resp, out)
}

// decodeEnvelope unwraps the apiResponse envelope shared by every
// endpoint
func decodeEnvelope(resp []byte, out any) error {
	var result struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}

	if err := json.Unmarshal(resp, &result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if !result.Success {
		if result.Error != nil {
			return fmt.Errorf("API error: %s - %s", result.Error.Code, result.Error.Message)
		}
		return fmt.Errorf("API error: request failed")
	}

	if out == nil || len(result.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(result.Data, out); err != nil {
		return fmt.Errorf("failed to unmarshal response data: %w", err)
	}
	return nil
}

// doRequest performs an HTTP request
func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	url := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}
