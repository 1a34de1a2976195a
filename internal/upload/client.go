// Package upload submits rendered cards to the upload server as one multipart
// request per batch.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"brandgen/internal/pkg/errors"
)

const (
	// BatchPath is the upload endpoint on the server.
	BatchPath = "/api/upload-batch"
	// FieldName is the multipart field carrying the files.
	FieldName = "images"
)

// File is one artifact ready to be sent.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// SavedFile describes how the server stored one file.
type SavedFile struct {
	OriginalName string `json:"originalName"`
	SavedName    string `json:"savedName"`
	Size         int64  `json:"size"`
}

// Response is the body of POST /api/upload-batch.
type Response struct {
	Success bool        `json:"success"`
	Count   *int        `json:"count,omitempty"`
	Files   []SavedFile `json:"files,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// FileResult is the per-file part of an Outcome.
type FileResult struct {
	Filename  string
	SavedName string
	Size      int64
	Accepted  bool
}

// Outcome is the result of one batch submission.
type Outcome struct {
	Accepted int
	// Reported is false when the server did not send a count and Accepted
	// falls back to the number of files sent.
	Reported bool
	Files    []FileResult
}

// Transport submits a batch of files.
type Transport interface {
	Upload(ctx context.Context, files []File) (Outcome, error)
}

// Client is the HTTP Transport.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient returns a client for the server at baseURL. A nil httpClient gets
// a five minute timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Minute}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  httpClient,
	}
}

// Upload implements Transport. Any failure is an UPLOAD_ERROR.
func (c *Client) Upload(ctx context.Context, files []File) (Outcome, error) {
	if len(files) == 0 {
		return Outcome{}, errors.Upload(fmt.Errorf("no files to upload"), 0)
	}

	body, contentType, err := encodeMultipart(files)
	if err != nil {
		return Outcome{}, errors.Upload(err, 0)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+BatchPath, body)
	if err != nil {
		return Outcome{}, errors.Upload(err, 0)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return Outcome{}, errors.Upload(err, 0)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return Outcome{}, errors.Upload(err, res.StatusCode)
	}

	var payload Response
	decodeErr := json.Unmarshal(raw, &payload)

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		msg := strings.TrimSpace(string(raw))
		if decodeErr == nil && payload.Error != "" {
			msg = payload.Error
		}
		return Outcome{}, errors.Upload(fmt.Errorf("HTTP %d: %s", res.StatusCode, msg), res.StatusCode)
	}
	if decodeErr != nil {
		return Outcome{}, errors.Upload(fmt.Errorf("invalid upload response: %w", decodeErr), res.StatusCode)
	}
	if !payload.Success {
		msg := payload.Error
		if msg == "" {
			msg = "server reported failure"
		}
		return Outcome{}, errors.Upload(fmt.Errorf("%s", msg), res.StatusCode)
	}

	return buildOutcome(files, payload), nil
}

func buildOutcome(files []File, payload Response) Outcome {
	out := Outcome{Accepted: len(files)}
	if payload.Count != nil {
		out.Accepted = *payload.Count
		out.Reported = true
	}

	saved := make(map[string]SavedFile, len(payload.Files))
	for _, f := range payload.Files {
		saved[f.OriginalName] = f
	}

	out.Files = make([]FileResult, 0, len(files))
	for _, f := range files {
		r := FileResult{Filename: f.Name, Size: int64(len(f.Data))}
		if s, ok := saved[f.Name]; ok {
			r.SavedName = s.SavedName
			r.Size = s.Size
			r.Accepted = true
		} else if len(payload.Files) == 0 {
			r.Accepted = true
		}
		out.Files = append(out.Files, r)
	}
	return out
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func encodeMultipart(files []File) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			FieldName, quoteEscaper.Replace(f.Name)))
		ct := f.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)

		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
