// Package analysis is the HTTP client for the remote screen-defect analysis service.
package analysis

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"screenscan/domain/inspection"
	"screenscan/internal/errors"
	"screenscan/ports"

	"github.com/tidwall/gjson"
)

const (
	serviceName  = "analysis"
	analyzePath  = "/api/analyze"
	maxErrorBody = 4 << 10
)

// Client implements ports.AnalysisService over HTTP
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient creates an analysis client; timeout 0 leaves deadlines to the caller's context
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
	}
}

var _ ports.AnalysisService = (*Client)(nil)

// Analyze posts the image as multipart fields file, device_name and (when known) user_id
func (c *Client) Analyze(ctx context.Context, req ports.AnalysisRequest) (inspection.Verdict, error) {
	body, contentType, err := encodeRequest(req)
	if err != nil {
		return inspection.Verdict{}, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+analyzePath, body)
	if err != nil {
		return inspection.Verdict{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return inspection.Verdict{}, errors.NetworkError(serviceName, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return inspection.Verdict{}, errors.NetworkError(serviceName, fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return inspection.Verdict{}, errors.ExternalServiceError(serviceName, resp.StatusCode, errorDetail(raw))
	}

	verdict, err := inspection.ParseVerdict(raw)
	if err != nil {
		return inspection.Verdict{}, errors.ExternalServiceError(serviceName, resp.StatusCode, err)
	}
	return verdict, nil
}

func encodeRequest(req ports.AnalysisRequest) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	filename := req.Filename
	if filename == "" {
		filename = "upload"
	}
	contentType := req.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(filename)))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(req.Image); err != nil {
		return nil, "", err
	}

	if err := w.WriteField("device_name", req.DeviceName); err != nil {
		return nil, "", err
	}
	if req.UserID != "" {
		if err := w.WriteField("user_id", req.UserID); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// errorDetail pulls a readable message out of an error body (FastAPI detail, error or message)
func errorDetail(raw []byte) error {
	if len(raw) > maxErrorBody {
		raw = raw[:maxErrorBody]
	}
	if gjson.ValidBytes(raw) {
		for _, path := range []string{"detail", "error", "message"} {
			if r := gjson.GetBytes(raw, path); r.Exists() && r.String() != "" {
				return fmt.Errorf("%s", r.String())
			}
		}
	}
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return nil
	}
	return fmt.Errorf("%s", text)
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
