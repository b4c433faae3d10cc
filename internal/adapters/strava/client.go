package strava

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/chalkin/chalkin/internal/core/domain"
	"github.com/chalkin/chalkin/internal/core/ports"
)

// Client implements ports.StravaAPI.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Client for the API rooted at baseURL, e.g.
// https://www.strava.com/api/v3. A nil httpClient gets a 30 s timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: baseURL, http: httpClient}
}

// uploadResponse mirrors Strava's upload object.
type uploadResponse struct {
	ID         int64  `json:"id"`
	Status     string `json:"status"`
	Error      string `json:"error"`
	ActivityID int64  `json:"activity_id"`
}

// Upload posts a GPX file to /uploads.
func (c *Client) Upload(ctx context.Context, accessToken string, req ports.StravaUploadRequest) (*domain.StravaUpload, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	fields := [][2]string{
		{"data_type", "gpx"},
		{"name", req.Name},
		{"description", req.Description},
		{"external_id", req.ExternalID},
	}
	for _, f := range fields {
		if f[1] == "" {
			continue
		}
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, err
		}
	}
	part, err := w.CreateFormFile("file", req.ExternalID)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(req.GPX); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/uploads", &body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", w.FormDataContentType())
	return c.do(httpReq, accessToken)
}

// GetUpload fetches the processing state of an upload.
func (c *Client) GetUpload(ctx context.Context, accessToken string, uploadID int64) (*domain.StravaUpload, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/uploads/"+strconv.FormatInt(uploadID, 10), nil)
	if err != nil {
		return nil, err
	}
	return c.do(httpReq, accessToken)
}

func (c *Client) do(req *http.Request, accessToken string) (*domain.StravaUpload, error) {
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("strava %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read strava response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("strava %s: %w", req.URL.Path, domain.ErrUnauthorized)
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("strava %s: %w", req.URL.Path, domain.ErrNotFound)
	case resp.StatusCode >= 300:
		return nil, fmt.Errorf("strava %s: status %d: %s", req.URL.Path, resp.StatusCode, bytes.TrimSpace(data))
	}

	var up uploadResponse
	if err := json.Unmarshal(data, &up); err != nil {
		return nil, fmt.Errorf("decode strava upload: %w", err)
	}
	return &domain.StravaUpload{
		ID:         up.ID,
		Status:     up.Status,
		ActivityID: up.ActivityID,
		Error:      up.Error,
	}, nil
}
