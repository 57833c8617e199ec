package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// ProjectService groups uploaded plans under a SaaS project.
type ProjectService interface {
	GetOrCreate(ctx context.Context, name string) (*ProjectResult, error)
	List(ctx context.Context) ([]ProjectResult, error)
}

type ProjectResult struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Created bool   `json:"created"`
}

type HTTPProjectService struct {
	client *HTTPClient
}

func (s *HTTPProjectService) GetOrCreate(ctx context.Context, name string) (*ProjectResult, error) {
	body, err := json.Marshal(map[string]string{"name": name})
	if err != nil {
		return nil, fmt.Errorf("marshal project request: %w", err)
	}

	url := fmt.Sprintf("%s/api/projects", s.client.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.client.token)
	if s.client.orgSlug != "" {
		req.Host = s.client.orgSlug + ".app.tempocut.local"
	}

	resp, err := s.client.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UploadError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var result ProjectResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("unmarshal project response: %w", err)
	}

	return &result, nil
}

func (s *HTTPProjectService) List(ctx context.Context) ([]ProjectResult, error) {
	url := fmt.Sprintf("%s/api/projects", s.client.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.client.token)
	if s.client.orgSlug != "" {
		req.Host = s.client.orgSlug + ".app.tempocut.local"
	}

	resp, err := s.client.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 65536))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UploadError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var wrapper struct {
		Projects []ProjectResult `json:"projects"`
	}
	if err := json.Unmarshal(respBody, &wrapper); err != nil {
		return nil, fmt.Errorf("unmarshal projects response: %w", err)
	}

	return wrapper.Projects, nil
}

type StubProjectService struct {
	logger *slog.Logger
}

func (s *StubProjectService) GetOrCreate(ctx context.Context, name string) (*ProjectResult, error) {
	s.logger.Info("cloud stub: project get-or-create requested", "name", name)
	return &ProjectResult{ID: "stub-project-id", Name: name, Created: true}, nil
}

func (s *StubProjectService) List(ctx context.Context) ([]ProjectResult, error) {
	s.logger.Info("cloud stub: project list requested")
	return nil, nil
}
