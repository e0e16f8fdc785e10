// Package drive is the Google Drive document-source connector. It lists
// files and fetches their content as plain text, exporting Google
// Workspace formats where needed.
package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	driveapi "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"docqa/internal/domain"
)

// Google Workspace MIME types that require an export instead of a raw
// download.
const (
	mimeGoogleDoc    = "application/vnd.google-apps.document"
	mimeGoogleSheet  = "application/vnd.google-apps.spreadsheet"
	mimeGoogleSlides = "application/vnd.google-apps.presentation"
	mimeFolder       = "application/vnd.google-apps.folder"
)

// maxFetchSize caps downloaded content at 5MB.
const maxFetchSize = 5 * 1024 * 1024

// FileInfo is the listing entry shape exposed to callers.
type FileInfo struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MimeType     string `json:"mimeType"`
	Size         int64  `json:"size"`
	ModifiedTime string `json:"modifiedTime"`
	WebViewLink  string `json:"webViewLink"`
}

// Connector wraps the Drive v3 API.
type Connector struct {
	svc *driveapi.Service
}

// NewConnector creates a Drive connector authenticated by the given token
// source.
func NewConnector(ctx context.Context, ts oauth2.TokenSource) (*Connector, error) {
	if ts == nil {
		return nil, fmt.Errorf("%w: missing drive token source", domain.ErrConfiguration)
	}
	svc, err := driveapi.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("%w: create drive service: %v", domain.ErrConfiguration, err)
	}
	return &Connector{svc: svc}, nil
}

// List returns up to max non-trashed files, most recently modified first.
// A non-empty query filters by name substring.
func (c *Connector) List(ctx context.Context, query string, max int) ([]FileInfo, error) {
	if max <= 0 {
		max = 50
	}
	q := "trashed=false"
	if query != "" {
		q = fmt.Sprintf("name contains '%s' and trashed=false", strings.ReplaceAll(query, "'", `\'`))
	}
	resp, err := c.svc.Files.List().
		Q(q).
		PageSize(int64(max)).
		OrderBy("modifiedTime desc").
		Fields("files(id, name, mimeType, size, modifiedTime, webViewLink)").
		Context(ctx).
		Do()
	if err != nil {
		return nil, wrapErr(err)
	}
	files := make([]FileInfo, 0, len(resp.Files))
	for _, f := range resp.Files {
		if f.MimeType == mimeFolder {
			continue
		}
		files = append(files, FileInfo{
			ID:           f.Id,
			Name:         f.Name,
			MimeType:     f.MimeType,
			Size:         f.Size,
			ModifiedTime: f.ModifiedTime,
			WebViewLink:  f.WebViewLink,
		})
	}
	return files, nil
}

// FetchText retrieves the plain-text content of a file by id. Google Docs
// and Slides export as text/plain, Sheets as text/csv; regular text files
// download as-is. Binary formats fail with ErrUnsupportedType.
func (c *Connector) FetchText(ctx context.Context, fileID string) (name, text, mimeType string, err error) {
	meta, err := c.svc.Files.Get(fileID).Fields("id, name, mimeType").Context(ctx).Do()
	if err != nil {
		return "", "", "", wrapErr(err)
	}

	switch {
	case meta.MimeType == mimeGoogleDoc, meta.MimeType == mimeGoogleSlides:
		text, err = c.export(ctx, fileID, "text/plain")
		mimeType = "text/plain"
	case meta.MimeType == mimeGoogleSheet:
		text, err = c.export(ctx, fileID, "text/csv")
		mimeType = "text/csv"
	case strings.HasPrefix(meta.MimeType, "text/"):
		text, err = c.download(ctx, fileID)
		mimeType = meta.MimeType
	default:
		return "", "", "", fmt.Errorf("%w: %s", domain.ErrUnsupportedType, meta.MimeType)
	}
	if err != nil {
		return "", "", "", err
	}
	return meta.Name, text, mimeType, nil
}

func (c *Connector) export(ctx context.Context, fileID, exportMime string) (string, error) {
	resp, err := c.svc.Files.Export(fileID, exportMime).Context(ctx).Download()
	if err != nil {
		return "", wrapErr(err)
	}
	return readBody(resp)
}

func (c *Connector) download(ctx context.Context, fileID string) (string, error) {
	resp, err := c.svc.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return "", wrapErr(err)
	}
	return readBody(resp)
}

func readBody(resp *http.Response) (string, error) {
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchSize))
	if err != nil {
		return "", fmt.Errorf("read drive content: %w", err)
	}
	return string(data), nil
}

// wrapErr maps Drive API failures onto the core error taxonomy.
func wrapErr(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: drive: %s", domain.ErrRateLimited, gerr.Message)
		case http.StatusNotFound:
			return fmt.Errorf("drive: file not found: %w", err)
		}
		if gerr.Code >= 500 {
			return fmt.Errorf("%w: drive: %s", domain.ErrProviderUnavailable, gerr.Message)
		}
		return err
	}
	return fmt.Errorf("%w: drive: %v", domain.ErrProviderUnavailable, err)
}
