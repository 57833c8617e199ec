package cloud

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/tempocut/tempocut-agent/internal/plans"
)

// UploadError represents an error from the plan ingest endpoint.
type UploadError struct {
	StatusCode int
	Body       string
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("plan upload failed: HTTP %d: %s", e.StatusCode, e.Body)
}

// IsRetryable returns true for server errors (5xx) and network errors.
// Client errors (4xx) are considered permanent.
func (e *UploadError) IsRetryable() bool {
	return e.StatusCode >= 500
}

// HTTPClient talks to the Tempocut SaaS ingest API. It implements
// plans.Uploader so the job runner can push completed plans.
type HTTPClient struct {
	baseURL    string
	token      string
	orgSlug    string
	projectID  string
	deviceID   string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewHTTPClient(baseURL, token, orgSlug string, logger *slog.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		token:   token,
		orgSlug: orgSlug,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}
}

func (c *HTTPClient) SetDeviceID(id string) {
	c.deviceID = id
}

// SetProjectID pins uploads to a SaaS project. Resolved at startup via
// Projects().GetOrCreate.
func (c *HTTPClient) SetProjectID(id string) {
	c.projectID = id
}

func (c *HTTPClient) Projects() ProjectService {
	return &HTTPProjectService{client: c}
}

// UploadPlan sends a completed plan to the ingest endpoint.
func (c *HTTPClient) UploadPlan(ctx context.Context, plan *plans.Plan) error {
	payload := BuildPlanPayload(plan, c.projectID)

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal plan payload: %w", err)
	}

	url := fmt.Sprintf("%s/api/ingest/plans", c.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("X-Tempocut-Request-Id", generateRequestID())
	if c.deviceID != "" {
		req.Header.Set("X-Tempocut-Device-Id", c.deviceID)
	}

	// The SaaS resolves the org from the Host header subdomain.
	if c.orgSlug != "" {
		req.Host = c.orgSlug + ".app.tempocut.local"
	}

	c.logger.Info("uploading plan to cloud",
		"url", url,
		"host", req.Host,
		"plan_id", payload.PlanID,
		"clip_count", len(payload.Clips),
		"body_bytes", len(body),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var result PlanIngestResponse
		if err := json.Unmarshal(respBody, &result); err == nil {
			c.logger.Info("plan upload succeeded",
				"plan_id", result.PlanID,
				"indexed_count", result.IndexedCount,
			)
		}
		return nil
	}

	return &UploadError{StatusCode: resp.StatusCode, Body: string(respBody)}
}

// StubPlanUploader is the offline default: uploads are logged and dropped.
type StubPlanUploader struct {
	logger *slog.Logger
}

func NewStubPlanUploader(logger *slog.Logger) *StubPlanUploader {
	return &StubPlanUploader{logger: logger}
}

func (s *StubPlanUploader) UploadPlan(ctx context.Context, plan *plans.Plan) error {
	s.logger.Info("cloud upload stub: plan upload requested", "plan_id", plan.ID)
	return nil
}

func generateRequestID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:])
}
