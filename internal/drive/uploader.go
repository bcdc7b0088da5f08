// Package drive keeps a copy of every rendered invoice in a Google Drive
// folder, either in My Drive or in a Shared Drive.
package drive

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"faktura/internal/logger"
)

// FolderMimeType identifies Drive folders.
const FolderMimeType = "application/vnd.google-apps.folder"

// Scope is the narrowest scope that allows creating the folder and files.
const Scope = drive.DriveFileScope

var (
	// ErrUploadForbidden is returned when the credentials may not write to
	// the target drive, typically a service account without storage quota.
	ErrUploadForbidden = errors.New("drive upload forbidden")

	// ErrSharedDriveNotFound is returned when the shared drive ID is wrong or
	// not shared with the credentials.
	ErrSharedDriveNotFound = errors.New("shared drive not found or inaccessible")
)

// Config selects the target folder.
type Config struct {
	Folder        string
	SharedDriveID string
	Timeout       time.Duration
}

// Uploader uploads PDFs to a named folder, creating it on first use.
type Uploader struct {
	files    *drive.FilesService
	cfg      Config
	folderID string
	log      zerolog.Logger
}

// NewUploader creates an uploader using client for authentication. Extra
// options are applied after the client.
func NewUploader(ctx context.Context, client *http.Client, cfg Config, opts ...option.ClientOption) (*Uploader, error) {
	const op = "NewUploader"

	opts = append([]option.ClientOption{option.WithHTTPClient(client)}, opts...)
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create drive service: %w", op, err)
	}
	if cfg.Folder == "" {
		cfg.Folder = "stfaktura"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	cfg.SharedDriveID = strings.TrimSpace(cfg.SharedDriveID)

	return &Uploader{
		files: svc.Files,
		cfg:   cfg,
		log:   logger.WithComponent("drive"),
	}, nil
}

func (u *Uploader) shared() bool {
	return u.cfg.SharedDriveID != ""
}

func (u *Uploader) location() string {
	if u.shared() {
		return "Shared Drive"
	}
	return "My Drive"
}

// Upload stores the file at path in the folder and returns the Drive file ID.
func (u *Uploader) Upload(ctx context.Context, path string) (string, error) {
	const op = "Upload"

	ctx, cancel := context.WithTimeout(ctx, u.cfg.Timeout)
	defer cancel()

	folderID, err := u.folder(ctx)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	defer f.Close()

	name := filepath.Base(path)
	created, err := u.files.Create(&drive.File{Name: name, Parents: []string{folderID}}).
		Media(f, googleapi.ContentType("application/pdf")).
		SupportsAllDrives(u.shared()).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("%s: failed to upload %s: %w", op, name, u.classify(err))
	}

	u.log.Info().
		Str("file", name).
		Str("folder", u.cfg.Folder).
		Str("location", u.location()).
		Str("file_id", created.Id).
		Msg("Invoice uploaded to Drive")
	return created.Id, nil
}

// folder finds the target folder or creates it.
func (u *Uploader) folder(ctx context.Context) (string, error) {
	if u.folderID != "" {
		return u.folderID, nil
	}

	q := fmt.Sprintf("name='%s' and mimeType='%s' and trashed=false",
		strings.ReplaceAll(u.cfg.Folder, "'", `\'`), FolderMimeType)
	call := u.files.List().Q(q).Fields("files(id)")
	if u.shared() {
		call = call.Corpora("drive").
			DriveId(u.cfg.SharedDriveID).
			IncludeItemsFromAllDrives(true).
			SupportsAllDrives(true)
	} else {
		call = call.Spaces("drive")
	}

	list, err := call.Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to look up folder %q: %w", u.cfg.Folder, u.classify(err))
	}
	if len(list.Files) > 0 {
		u.folderID = list.Files[0].Id
		return u.folderID, nil
	}

	meta := &drive.File{Name: u.cfg.Folder, MimeType: FolderMimeType}
	if u.shared() {
		meta.Parents = []string{u.cfg.SharedDriveID}
	}
	folder, err := u.files.Create(meta).
		SupportsAllDrives(u.shared()).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to create folder %q: %w", u.cfg.Folder, u.classify(err))
	}

	u.log.Info().Str("folder", u.cfg.Folder).Str("folder_id", folder.Id).Str("location", u.location()).Msg("Created Drive folder")
	u.folderID = folder.Id
	return u.folderID, nil
}

func (u *Uploader) classify(err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}

	reason := ""
	if len(apiErr.Errors) > 0 {
		reason = apiErr.Errors[0].Reason
	}
	u.log.Error().Int("status", apiErr.Code).Str("reason", reason).Msg("Drive request failed")

	switch {
	case apiErr.Code == http.StatusForbidden, reason == "storageQuotaExceeded", reason == "teamDriveFileLimitExceeded":
		return fmt.Errorf("%w: %v", ErrUploadForbidden, err)
	case apiErr.Code == http.StatusNotFound, reason == "notFound":
		if u.shared() {
			return fmt.Errorf("%w (ID=%s): %v", ErrSharedDriveNotFound, u.cfg.SharedDriveID, err)
		}
	}
	return err
}

// Hint returns remediation advice for an upload error, or "".
func Hint(err error) string {
	switch {
	case errors.Is(err, ErrUploadForbidden):
		return "If you intended a Shared Drive: set GOOGLE_DRIVE_SHARED_DRIVE_ID and add the service account as a member.\n" +
			"Otherwise switch to OAuth user credentials (AUTH_METHOD=oauth)."
	case errors.Is(err, ErrSharedDriveNotFound):
		return "Verify the shared drive ID (it is part of the shared drive URL) and\n" +
			"ensure the credentials have at least Content Manager access."
	}
	return ""
}
