package gdrive

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	e "nuclight.org/drive-preview-bot/pkg/entities"
)

const fields googleapi.Field = "name, webViewLink, mimeType, modifiedTime"

// Error kinds reported to the Recorder.
const (
	KindNotFound     = "not_found"
	KindAccessDenied = "access_denied"
	KindTransient    = "transient"
)

type Recorder interface {
	ObserveMetadataError(kind string)
}

// Client reads file metadata from Google Drive.
type Client struct {
	service *drive.Service
	metrics Recorder
}

// ReadCredentials accepts credentials JSON inline or a path to a JSON file.
func ReadCredentials(value string) ([]byte, error) {
	if strings.HasPrefix(strings.TrimSpace(value), "{") {
		return []byte(value), nil
	}

	data, err := os.ReadFile(value)
	if err != nil {
		return nil, fmt.Errorf("reading credentials file: %w", err)
	}
	return data, nil
}

// NewService creates a read-only Drive service from a service account or authorized
// user credentials JSON.
func NewService(ctx context.Context, credentialsJSON []byte) (*drive.Service, error) {
	creds, err := google.CredentialsFromJSON(ctx, credentialsJSON, drive.DriveReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parsing google credentials: %w", err)
	}

	service, err := drive.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("creating drive service: %w", err)
	}

	return service, nil
}

// NewClient wraps service. metrics may be nil.
func NewClient(service *drive.Service, metrics Recorder) *Client {
	return &Client{
		service: service,
		metrics: metrics,
	}
}

func (c *Client) GetMetadata(ctx context.Context, fileID string) (e.FileMetadata, error) {
	file, err := c.service.Files.Get(fileID).
		Fields(fields).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		kind, err := classifyError(err)
		if c.metrics != nil {
			c.metrics.ObserveMetadataError(kind)
		}
		return e.FileMetadata{}, fmt.Errorf("getting drive file: %w", err)
	}

	return e.FileMetadata{
		FileID:       fileID,
		Name:         file.Name,
		URL:          file.WebViewLink,
		MimeType:     file.MimeType,
		ModifiedTime: file.ModifiedTime,
	}, nil
}

func classifyError(err error) (string, error) {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return KindTransient, err
	}

	switch apiErr.Code {
	case http.StatusNotFound:
		return KindNotFound, fmt.Errorf("%w: %w", e.ErrFileNotFound, err)
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindAccessDenied, fmt.Errorf("%w: %w", e.ErrAccessDenied, err)
	default:
		return KindTransient, err
	}
}
