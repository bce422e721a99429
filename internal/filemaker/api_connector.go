package filemaker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	apiDefaultTimeout = 30 * time.Second
	apiKeyHeader      = "X-API-Key"

	actionHealthCheck       = "health_check"
	actionGetWorkshops      = "get_workshops"
	actionGetWorkshopDetail = "get_workshop_detail"
	actionGetSessions       = "get_workshop_sessions"
	actionCheckAvailability = "check_availability"
	actionCheckRegistration = "check_registration"
	actionRegister          = "register_participant"
	actionManageWhitelist   = "manage_whitelist"
	actionGetLogs           = "get_logs"
)

// APIConnector reaches FileMaker through the HTTP bridge deployed next
// to FileMaker Server. Every call is one request to the bridge endpoint
// with an action query parameter and a JSON response envelope.
type APIConnector struct {
	baseURL    string
	apiKey     string
	adminKey   string
	httpClient *http.Client
}

// NewAPIConnector creates a bridge connector. adminKey may be empty;
// admin operations then fail fast with ErrAdminKeyMissing.
func NewAPIConnector(baseURL, apiKey, adminKey string) (*APIConnector, error) {
	if baseURL == "" || apiKey == "" {
		return nil, ErrNotConfigured
	}
	return &APIConnector{
		baseURL:  baseURL,
		apiKey:   apiKey,
		adminKey: adminKey,
		httpClient: &http.Client{
			Timeout: apiDefaultTimeout,
		},
	}, nil
}

func (c *APIConnector) Name() string {
	return ConnectorModeAPI
}

// envelope is the bridge's uniform response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error,omitempty"`
}

func (c *APIConnector) do(ctx context.Context, method, action, key string, params url.Values, body any, out any) error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return &TransportError{Action: action, Err: fmt.Errorf("invalid bridge URL: %w", err)}
	}

	q := u.Query()
	q.Set("action", action)
	for name, values := range params {
		for _, v := range values {
			q.Add(name, v)
		}
	}
	u.RawQuery = q.Encode()

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &TransportError{Action: action, Err: fmt.Errorf("failed to encode request: %w", err)}
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return &TransportError{Action: action, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set(apiKeyHeader, key)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Action: action, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return ErrInvalidAPIKey
	}
	if resp.StatusCode == http.StatusNotFound {
		return ErrWorkshopNotFound
	}
	if resp.StatusCode >= 500 {
		return &TransportError{Action: action, Err: &ServerError{StatusCode: resp.StatusCode}}
	}
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return &TransportError{Action: action, Err: fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(raw))}
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return &TransportError{Action: action, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	if !env.Success {
		return &TransportError{Action: action, Err: fmt.Errorf("bridge reported failure: %s", env.Error)}
	}

	if out != nil {
		if len(env.Data) == 0 || string(env.Data) == "null" {
			return nil
		}
		if err := json.Unmarshal(env.Data, out); err != nil {
			return &TransportError{Action: action, Err: fmt.Errorf("failed to decode data: %w", err)}
		}
	}
	return nil
}

func (c *APIConnector) get(ctx context.Context, action string, params url.Values, out any) error {
	return c.do(ctx, http.MethodGet, action, c.apiKey, params, nil, out)
}

func (c *APIConnector) adminGet(ctx context.Context, action string, params url.Values, out any) error {
	if c.adminKey == "" {
		return ErrAdminKeyMissing
	}
	return c.do(ctx, http.MethodGet, action, c.adminKey, params, nil, out)
}

func (c *APIConnector) TestConnection(ctx context.Context) (*TestResult, error) {
	started := time.Now()
	var status struct {
		Status        string `json:"status"`
		WorkshopCount int    `json:"workshop_count"`
	}
	if err := c.get(ctx, actionHealthCheck, nil, &status); err != nil {
		return &TestResult{
			Success:      false,
			Message:      err.Error(),
			ResponseTime: time.Since(started),
		}, err
	}
	return &TestResult{
		Success:       true,
		Message:       fmt.Sprintf("bridge reachable, status %q", status.Status),
		WorkshopCount: status.WorkshopCount,
		ResponseTime:  time.Since(started),
	}, nil
}

func (c *APIConnector) ListWorkshops(ctx context.Context, limit, offset int) ([]RawWorkshop, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", limit))
	}
	if offset > 0 {
		params.Set("offset", fmt.Sprintf("%d", offset))
	}
	var workshops []RawWorkshop
	if err := c.get(ctx, actionGetWorkshops, params, &workshops); err != nil {
		return nil, err
	}
	return workshops, nil
}

func (c *APIConnector) GetWorkshopDetail(ctx context.Context, workshopNumber string) (*RawWorkshop, error) {
	params := url.Values{}
	params.Set("workshop_number", workshopNumber)

	var workshop RawWorkshop
	if err := c.get(ctx, actionGetWorkshopDetail, params, &workshop); err != nil {
		return nil, err
	}
	if workshop.WorkshopNumber == "" {
		return nil, ErrWorkshopNotFound
	}
	return &workshop, nil
}

func (c *APIConnector) ListSessions(ctx context.Context, workshopNumber string) ([]RawSession, error) {
	params := url.Values{}
	params.Set("workshop_number", workshopNumber)

	var sessions []RawSession
	if err := c.get(ctx, actionGetSessions, params, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (c *APIConnector) CheckAvailability(ctx context.Context, workshopNumber string) (*Availability, error) {
	params := url.Values{}
	params.Set("workshop_number", workshopNumber)

	var availability Availability
	if err := c.get(ctx, actionCheckAvailability, params, &availability); err != nil {
		return nil, err
	}
	availability.WorkshopNumber = workshopNumber
	return &availability, nil
}

func (c *APIConnector) CheckRegistration(ctx context.Context, workshopNumber, email string) (bool, error) {
	params := url.Values{}
	params.Set("workshop_number", workshopNumber)
	params.Set("email", email)

	var result struct {
		Registered bool `json:"registered"`
	}
	if err := c.get(ctx, actionCheckRegistration, params, &result); err != nil {
		return false, err
	}
	return result.Registered, nil
}

// RegisterParticipant submits exactly one registration request. There is
// no retry here: a timeout after the bridge accepted the write would
// otherwise risk a duplicate registration.
func (c *APIConnector) RegisterParticipant(ctx context.Context, workshopNumber string, p Participant) (*RegistrationResult, error) {
	params := url.Values{}
	params.Set("workshop_number", workshopNumber)

	var result RegistrationResult
	if err := c.do(ctx, http.MethodPost, actionRegister, c.apiKey, params, p, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *APIConnector) ManageAllowlist(ctx context.Context, action, email string) ([]string, error) {
	params := url.Values{}
	params.Set("list_action", action)
	if email != "" {
		params.Set("email", email)
	}

	var emails []string
	if err := c.adminGet(ctx, actionManageWhitelist, params, &emails); err != nil {
		return nil, err
	}
	return emails, nil
}

func (c *APIConnector) FetchRemoteLogs(ctx context.Context, limit int) ([]RemoteLogEntry, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", limit))
	}

	var entries []RemoteLogEntry
	if err := c.adminGet(ctx, actionGetLogs, params, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
