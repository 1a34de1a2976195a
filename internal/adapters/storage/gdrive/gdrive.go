package gdrive

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"

	"brandgen/internal/ports"
)

// Client implements ports.StorageProvider backed by Google Drive.
// Objects are keyed by file name inside the configured folder, so storing a
// name that already exists updates that file instead of creating a sibling.
type Client struct {
	srv      *drive.Service
	folderID string
}

func NewClient(srv *drive.Service, folderID string) *Client {
	return &Client{srv: srv, folderID: folderID}
}

func (c *Client) Provider() string { return "gdrive" }

func (c *Client) PutObject(ctx context.Context, in ports.PutObjectInput) (ports.PutObjectOutput, error) {
	if in.ObjectKey == "" {
		return ports.PutObjectOutput{}, fmt.Errorf("object_key is required")
	}

	existingID, err := c.lookup(ctx, in.ObjectKey)
	if err != nil && err != ports.ErrObjectNotFound {
		return ports.PutObjectOutput{}, err
	}

	var media []googleapi.MediaOption
	if in.ContentType != "" {
		media = append(media, googleapi.ContentType(in.ContentType))
	}

	if existingID != "" {
		_, err = c.srv.Files.Update(existingID, &drive.File{}).
			Media(in.Reader, media...).
			SupportsAllDrives(true).
			Context(ctx).
			Do()
		if err != nil {
			return ports.PutObjectOutput{}, fmt.Errorf("gdrive update failed: %w", err)
		}
		return ports.PutObjectOutput{ObjectKey: in.ObjectKey, Size: in.Size}, nil
	}

	file := &drive.File{Name: in.ObjectKey}
	if c.folderID != "" {
		file.Parents = []string{c.folderID}
	}
	_, err = c.srv.Files.Create(file).
		Media(in.Reader, media...).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return ports.PutObjectOutput{}, fmt.Errorf("gdrive upload failed: %w", err)
	}
	return ports.PutObjectOutput{ObjectKey: in.ObjectKey, Size: in.Size}, nil
}

func (c *Client) GetObject(ctx context.Context, objectKey string) (rc io.ReadCloser, contentType string, size int64, err error) {
	id, err := c.lookup(ctx, objectKey)
	if err != nil {
		return nil, "", 0, err
	}

	resp, err := c.srv.Files.Get(id).
		SupportsAllDrives(true).
		Context(ctx).
		Download()
	if err != nil {
		return nil, "", 0, err
	}

	contentType = resp.Header.Get("Content-Type")
	size = resp.ContentLength
	return resp.Body, contentType, size, nil
}

func (c *Client) DeleteObject(ctx context.Context, objectKey string) error {
	id, err := c.lookup(ctx, objectKey)
	if err != nil {
		return err
	}
	return c.srv.Files.Delete(id).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
}

func (c *Client) GetSignedURL(ctx context.Context, objectKey string, expiresIn time.Duration) (ports.SignedURLOutput, error) {
	// Drive no firma URLs; el API hace stream del contenido.
	return ports.SignedURLOutput{URL: "", ExpiresAt: time.Now().UTC().Add(expiresIn)}, nil
}

// lookup returns the id of the most recently modified file named name.
func (c *Client) lookup(ctx context.Context, name string) (string, error) {
	res, err := c.srv.Files.List().
		Q(nameQuery(name, c.folderID)).
		Fields("files(id, name)").
		OrderBy("modifiedTime desc").
		PageSize(1).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		if gerr, ok := err.(*googleapi.Error); ok && gerr.Code == http.StatusNotFound {
			return "", ports.ErrObjectNotFound
		}
		return "", fmt.Errorf("gdrive lookup failed: %w", err)
	}
	if len(res.Files) == 0 {
		return "", ports.ErrObjectNotFound
	}
	return res.Files[0].Id, nil
}

var queryEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

func nameQuery(name, folderID string) string {
	q := fmt.Sprintf("name = '%s' and trashed = false", queryEscaper.Replace(name))
	if folderID != "" {
		q += fmt.Sprintf(" and '%s' in parents", queryEscaper.Replace(folderID))
	}
	return q
}
