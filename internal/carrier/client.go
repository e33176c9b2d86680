// internal/carrier/client.go
package carrier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"enrollment-core/internal/common/config"
	apperrors "enrollment-core/internal/common/errors"
	commonhttp "enrollment-core/internal/common/http"
	"enrollment-core/internal/common/logger"
	"enrollment-core/internal/models"
)

// Client talks to one carrier's quoting/eligibility/submission endpoints.
// The wire formats behind these endpoints are the carrier's own; the client
// only normalizes the error surface: a 422 with a context code becomes a
// ContextError, anything else becomes a CollaboratorError.
type Client struct {
	slug   string
	name   string
	cfg    config.CarrierConfig
	http   *commonhttp.Client
	logger logger.Logger
}

func NewClient(slug string, cfg config.CarrierConfig, log logger.Logger) *Client {
	return &Client{
		slug:   slug,
		name:   cfg.Name,
		cfg:    cfg,
		http:   commonhttp.NewClient(time.Duration(cfg.TimeoutMS) * time.Millisecond),
		logger: log.WithFields(map[string]interface{}{"carrier": slug}),
	}
}

// Slug returns the carrier's normalized identity.
func (c *Client) Slug() string { return c.slug }

// Name returns the carrier's display name.
func (c *Client) Name() string { return c.name }

// contextErrorBody is the carrier's shape for correctable request problems.
type contextErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

type questionsResponse struct {
	Questions []models.EligibilityQuestion `json:"questions"`
}

type submitResponse struct {
	ApplicationID string `json:"applicationId"`
}

// FetchQuestions retrieves the dynamic question set for one submission
// context. An empty set is a valid response.
func (c *Client) FetchQuestions(ctx context.Context, ec models.EligibilityContext) ([]models.EligibilityQuestion, error) {
	body, err := c.post(ctx, "/eligibility/questions", ec)
	if err != nil {
		return nil, err
	}

	var parsed questionsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, apperrors.NewEligibilityFetchError(c.slug, fmt.Errorf("decode questions: %w", err))
	}
	return parsed.Questions, nil
}

// Submit sends one carrier-shaped enrollment payload and returns the
// carrier-issued application id.
func (c *Client) Submit(ctx context.Context, payload map[string]interface{}) (string, error) {
	body, err := c.post(ctx, "/applications", payload)
	if err != nil {
		return "", err
	}

	var parsed submitResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", apperrors.NewCarrierSubmitFailedError(c.slug, fmt.Errorf("decode submit response: %w", err))
	}
	if parsed.ApplicationID == "" {
		return "", apperrors.NewCarrierSubmitFailedError(c.slug, fmt.Errorf("carrier returned no application id"))
	}
	return parsed.ApplicationID, nil
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, apperrors.NewCarrierSubmitFailedError(c.slug, fmt.Errorf("encode request: %w", err))
	}

	req, err := http.NewRequest(http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, apperrors.NewCarrierUnavailableError(c.slug, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.DoWithContext(ctx, req)
	if err != nil {
		return nil, apperrors.NewCarrierUnavailableError(c.slug, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewCarrierUnavailableError(c.slug, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, nil
	case resp.StatusCode == http.StatusUnprocessableEntity:
		// Correctable context problem, distinguishable from infra failure.
		var ce contextErrorBody
		if err := json.Unmarshal(body, &ce); err == nil && ce.Code != "" {
			c.logger.Warn("carrier rejected context", map[string]interface{}{
				"path": path,
				"code": ce.Code,
			})
			return nil, apperrors.NewContextError(ce.Code, ce.Message, ce.Hint)
		}
		return nil, apperrors.NewCarrierSubmitFailedError(c.slug, fmt.Errorf("HTTP 422: %s", string(body)))
	default:
		return nil, apperrors.NewCarrierUnavailableError(c.slug, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body)))
	}
}

// Registry holds one client per configured carrier.
type Registry struct {
	clients map[string]*Client
}

func NewRegistry(cfg config.CarriersConfig, log logger.Logger) *Registry {
	clients := make(map[string]*Client, len(cfg.Endpoints))
	for slug, cc := range cfg.Endpoints {
		clients[slug] = NewClient(slug, cc, log)
	}
	return &Registry{clients: clients}
}

// Get returns the client for slug. The lookup is exact: an unconfigured
// carrier is reported missing rather than silently routed to another
// carrier's endpoint. Absent carrier identity is resolved upstream by the
// partitioner, which maps it to the configured default slug.
func (r *Registry) Get(slug string) (*Client, bool) {
	c, ok := r.clients[slug]
	return c, ok
}
