package backend

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
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"

	"rnetagent/internal/domain/entity"
	"rnetagent/internal/domain/repository"
	"rnetagent/internal/infrastructure/metrics"
)

const (
	healthPath   = "/health"
	generatePath = "/generate"
)

// maxErrorBody bounds how much of a failed response we read for the
// {detail} field.
const maxErrorBody = 1 << 20

// Client calls the r-net backend over HTTP and maps every failure to a
// ClassifiedError. It never retries; a call runs to completion or to the
// configured timeout.
type Client struct {
	log  *slog.Logger
	conn atomic.Pointer[conn]
}

// conn bundles the parameters one HTTP connection is built from. Rebuild
// replaces it wholesale; in-flight calls keep the conn they started with.
type conn struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
}

var _ repository.BackendClient = (*Client)(nil)

func NewClient(baseURL string, timeout time.Duration, log *slog.Logger) *Client {
	c := &Client{log: log}
	c.Rebuild(baseURL, timeout)
	return c
}

// Rebuild constructs a fresh connection from the given parameters and swaps
// it in atomically. Must be called whenever the backend settings change;
// until then the previous parameters stay in effect.
func (c *Client) Rebuild(baseURL string, timeout time.Duration) {
	c.conn.Store(&conn{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		http:    &http.Client{Timeout: timeout},
	})
}

// BaseURL is the effective base URL of the current connection.
func (c *Client) BaseURL() string {
	return c.conn.Load().baseURL
}

// Timeout is the effective request timeout of the current connection.
func (c *Client) Timeout() time.Duration {
	return c.conn.Load().timeout
}

func (c *Client) CheckHealth(ctx context.Context) (entity.HealthStatus, error) {
	metrics.IncBackendRequest("health")
	cn := c.conn.Load()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cn.baseURL+healthPath, nil)
	if err != nil {
		return entity.HealthStatus{}, c.fail(entity.Classify(err, "failed to build health request"))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := cn.http.Do(req)
	if err != nil {
		return entity.HealthStatus{}, c.fail(c.transportError(err, "health check failed"))
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.log.Warn("close response body", "err", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return entity.HealthStatus{}, c.fail(c.statusError(resp))
	}

	var health entity.HealthStatus
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return entity.HealthStatus{}, c.fail(entity.Classify(err, "failed to decode health response"))
	}
	return health, nil
}

func (c *Client) GenerateCode(ctx context.Context, genReq entity.GenerationRequest) (entity.GenerationResponse, error) {
	requestID := uuid.NewString()
	metrics.IncBackendRequest("generate")
	cn := c.conn.Load()

	body, err := json.Marshal(genReq)
	if err != nil {
		return entity.GenerationResponse{}, c.fail(entity.Classify(err, "failed to encode generation request"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cn.baseURL+generatePath, bytes.NewReader(body))
	if err != nil {
		return entity.GenerationResponse{}, c.fail(entity.Classify(err, "failed to build generation request"))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	c.log.Info("sending generation request",
		"request_id", requestID, "url", cn.baseURL+generatePath, "timeout", cn.timeout)

	resp, err := cn.http.Do(req)
	if err != nil {
		return entity.GenerationResponse{}, c.fail(c.transportError(err, "code generation failed"))
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.log.Warn("close response body", "err", err, "request_id", requestID)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return entity.GenerationResponse{}, c.fail(c.statusError(resp))
	}

	var genResp entity.GenerationResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return entity.GenerationResponse{}, c.fail(entity.Classify(err, "failed to decode generation response"))
	}

	c.log.Info("generation response received",
		"request_id", requestID, "success", genResp.Success, "files", len(genResp.Files))
	return genResp, nil
}

func (c *Client) TestConnection(ctx context.Context) entity.ConnectionStatus {
	health, err := c.CheckHealth(ctx)
	if err != nil {
		return entity.ConnectionStatus{Success: false, Error: err.Error()}
	}
	if !health.Healthy() {
		return entity.ConnectionStatus{
			Success: false,
			Error:   fmt.Sprintf("backend reported status %q", health.Status),
		}
	}
	return entity.ConnectionStatus{Success: true}
}

// transportError maps a failed round trip (no response received) to a
// ClassifiedError. Structured error values are checked first; message
// markers are the fallback for transports that do not expose them.
// Precedence: connection refused, unresolvable host, timeout, then the
// caller-supplied context.
func (c *Client) transportError(err error, fallback string) *entity.ClassifiedError {
	var dnsErr *net.DNSError
	var netErr net.Error

	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return entity.NewNetworkError(
			"Backend service is not running.",
			err.Error(),
			"Start the r-net backend and try again",
			"Verify the backend port in settings",
		)
	case errors.As(err, &dnsErr):
		return entity.NewNetworkError(
			"Backend host could not be resolved. Check the backend URL.",
			err.Error(),
			"Check the backend URL in settings",
		)
	case errors.As(err, &netErr) && netErr.Timeout():
		return entity.NewNetworkError(
			"No response from the backend (request timed out).",
			err.Error(),
			"Increase the backend timeout in settings",
			"Verify the backend is responsive",
		)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "connection refused"):
		return entity.NewNetworkError(
			"Backend service is not running.",
			err.Error(),
			"Start the r-net backend and try again",
		)
	case strings.Contains(msg, "no such host"):
		return entity.NewNetworkError(
			"Backend host could not be resolved. Check the backend URL.",
			err.Error(),
			"Check the backend URL in settings",
		)
	case strings.Contains(msg, "timeout"):
		return entity.NewNetworkError(
			"No response from the backend (request timed out).",
			err.Error(),
			"Increase the backend timeout in settings",
		)
	}

	return entity.Classify(err, fallback)
}

// statusError maps a non-2xx response to an Api ClassifiedError. A JSON
// body carrying {detail} takes precedence as the user-facing message.
func (c *Client) statusError(resp *http.Response) *entity.ClassifiedError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	detail := extractDetail(body)

	var message string
	var suggestions []string
	switch resp.StatusCode {
	case http.StatusBadRequest:
		message = "The backend rejected the request as invalid."
		suggestions = []string{"Check the request fields and try again"}
	case http.StatusUnauthorized:
		message = "Authentication failed. Check the backend API key configuration."
		suggestions = []string{"Check the API key configuration on the backend"}
	case http.StatusForbidden:
		message = "Access denied by the backend."
		suggestions = []string{"Check the API key permissions on the backend"}
	case http.StatusNotFound:
		message = "Backend endpoint not found."
		suggestions = []string{"Check the backend URL in settings", "Verify the backend version"}
	case http.StatusTooManyRequests:
		message = "The backend is rate limiting requests."
		suggestions = []string{"Wait a moment and try again"}
	case http.StatusInternalServerError:
		message = "The backend reported an internal server error."
		suggestions = []string{"Check the backend logs", "Try again shortly"}
	case http.StatusServiceUnavailable:
		message = "The backend is temporarily unavailable."
		suggestions = []string{"Try again shortly"}
	default:
		message = fmt.Sprintf("The backend returned an unexpected error (status %d).", resp.StatusCode)
		suggestions = []string{"Check the backend logs"}
	}

	details := fmt.Sprintf("HTTP %d from %s", resp.StatusCode, resp.Request.URL.Path)
	if detail != "" {
		// Server-provided detail becomes the headline; the generic per-status
		// text moves into details.
		details = message + " " + details
		message = detail
	}

	return entity.NewAPIError(message, details, suggestions...)
}

// fail logs a classified error once at the failure site and passes it on.
func (c *Client) fail(ce *entity.ClassifiedError) error {
	metrics.IncError("backend", string(ce.Kind))
	c.log.Warn("backend request failed", "kind", ce.Kind, "message", ce.Message, "details", ce.Details)
	return ce
}

func extractDetail(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Detail
}
