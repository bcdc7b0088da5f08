package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"faktura/internal/company"
	"faktura/internal/config"
	"faktura/internal/drive"
	"faktura/internal/flow"
	"faktura/internal/gauth"
	"faktura/internal/mail"
	"faktura/internal/ocr"
	"faktura/internal/repository"
	"faktura/internal/sheets"
)

// app builds the services a command needs from the configuration. Google
// credentials are obtained once and shared by Sheets, Drive and Vision.
type app struct {
	cfg    *config.Config
	log    zerolog.Logger
	tokens oauth2.TokenSource
	client *http.Client
}

func newApp(log zerolog.Logger) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("Invalid configuration")
		return nil, fmt.Errorf("invalid configuration. Please check your .env file: %w", err)
	}
	return &app{cfg: cfg, log: log}, nil
}

// createCommandContext returns a context cancelled on interrupt signals.
func createCommandContext(log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, cancelling")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

func (a *app) googleConfig() gauth.Config {
	return gauth.Config{
		Method:             a.cfg.AuthMethod,
		ServiceAccountFile: a.cfg.GoogleServiceAccountFile,
		CredentialsJSON:    a.cfg.GoogleCredentialsJSON,
		ClientSecretFile:   a.cfg.OAuthClientSecretFile,
		TokenFile:          a.cfg.OAuthTokenFile,
		Scopes:             []string{sheets.Scope, drive.Scope, ocr.Scope},
		Authorize:          gauth.LoopbackAuthorize(os.Stdout),
	}
}

func (a *app) tokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	if a.tokens != nil {
		return a.tokens, nil
	}
	ts, err := gauth.NewTokenSource(ctx, a.googleConfig())
	if err != nil {
		a.log.Error().Err(err).Str("method", a.cfg.AuthMethod).Msg("Google credentials not available")
		return nil, err
	}
	a.tokens = ts
	return ts, nil
}

func (a *app) httpClient(ctx context.Context) (*http.Client, error) {
	if a.client != nil {
		return a.client, nil
	}
	ts, err := a.tokenSource(ctx)
	if err != nil {
		return nil, err
	}
	a.client = oauth2.NewClient(ctx, ts)
	return a.client, nil
}

// store opens the configured spreadsheet backend.
func (a *app) store(ctx context.Context) (sheets.Store, error) {
	if err := a.cfg.RequireStore(); err != nil {
		return nil, err
	}
	if a.cfg.StoreBackend == config.BackendWorkbook {
		a.log.Debug().Str("file", a.cfg.WorkbookPath).Msg("Using local workbook")
		return sheets.NewWorkbook(a.cfg.WorkbookPath), nil
	}

	client, err := a.httpClient(ctx)
	if err != nil {
		return nil, err
	}
	ref := a.cfg.GoogleSheetURL
	if ref == "" {
		ref = a.cfg.SpreadsheetID
	}
	return sheets.NewSheetsService(ctx, ref, client, a.cfg.NetworkTimeout)
}

func (a *app) repository(ctx context.Context) (*repository.Repository, error) {
	rate, err := decimal.NewFromString(strings.ReplaceAll(a.cfg.DefaultHourlyRate, ",", "."))
	if err != nil {
		return nil, fmt.Errorf("%w: DEFAULT_HOURLY_RATE must be a number, got %q", config.ErrMissingSetting, a.cfg.DefaultHourlyRate)
	}
	store, err := a.store(ctx)
	if err != nil {
		return nil, err
	}
	names := repository.SheetNames{
		Customers: a.cfg.CustomersSheet,
		Tasks:     a.cfg.TasksSheet,
		TaskTypes: a.cfg.TaskTypesSheet,
		Company:   a.cfg.CompanySheet,
	}
	return repository.New(store, names, rate), nil
}

func (a *app) company(repo *repository.Repository) *company.Service {
	if repo == nil {
		return company.NewService(a.cfg.CompanyDetailsFile, nil)
	}
	return company.NewService(a.cfg.CompanyDetailsFile, repo)
}

// uploader returns nil when Drive copies are disabled or unavailable.
func (a *app) uploader(ctx context.Context) *drive.Uploader {
	if !a.cfg.DriveUpload {
		return nil
	}
	client, err := a.httpClient(ctx)
	if err != nil {
		a.log.Warn().Err(err).Msg("Drive upload disabled: no Google credentials")
		return nil
	}
	u, err := drive.NewUploader(ctx, client, drive.Config{
		Folder:        a.cfg.DriveFolder,
		SharedDriveID: a.cfg.DriveSharedDriveID,
		Timeout:       a.cfg.NetworkTimeout,
	})
	if err != nil {
		a.log.Warn().Err(err).Msg("Drive upload disabled")
		return nil
	}
	return u
}

// mailer builds the email dispatcher for the configured SMTP account.
func (a *app) mailer(ctx context.Context) (*mail.Dispatcher, error) {
	if err := a.cfg.RequireMail(); err != nil {
		return nil, err
	}

	smtpCfg := mail.SMTPConfig{
		Host:     a.cfg.SMTPServer,
		Port:     a.cfg.SMTPPort,
		Username: a.cfg.SenderEmail,
		Password: a.cfg.SenderPassword,
		Method:   a.cfg.EmailAuthMethod,
		Timeout:  a.cfg.NetworkTimeout,
	}
	if a.cfg.EmailAuthMethod == config.AuthOAuth {
		ts, err := gauth.NewTokenSource(ctx, gauth.Config{
			Method:           gauth.MethodOAuth,
			ClientSecretFile: a.cfg.GmailClientSecretFile,
			TokenFile:        a.cfg.GmailTokenFile,
			Scopes:           []string{gauth.GmailScope},
			Authorize:        gauth.LoopbackAuthorize(os.Stdout),
		})
		if err != nil {
			return nil, fmt.Errorf("Gmail OAuth: %w", err)
		}
		smtpCfg.Tokens = gauth.NewTokenProvider(ts)
	}

	transport, err := mail.NewSMTPTransport(smtpCfg)
	if err != nil {
		return nil, err
	}
	return mail.NewDispatcher(a.cfg.SenderEmail, a.cfg.EmailBrand, transport), nil
}

// extractor reads PDF text locally, adding Cloud Vision for scanned pages
// when withOCR is set. close releases the Vision client.
func (a *app) extractor(ctx context.Context, withOCR bool) (extractor ocr.TextExtractor, closeFn func(), err error) {
	local := ocr.NewFitzExtractor()
	if !withOCR {
		return local, func() {}, nil
	}

	ts, err := a.tokenSource(ctx)
	if err != nil {
		return nil, nil, err
	}
	vision, err := ocr.NewVisionExtractor(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, nil, err
	}
	return ocr.WithFallback(local, vision), func() {
		if err := vision.Close(); err != nil {
			a.log.Warn().Err(err).Msg("Failed to close Vision client")
		}
	}, nil
}

// handleCommandError turns failures into messages with a remediation hint.
func handleCommandError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("Command failed")

	errStr := err.Error()

	switch {
	case errors.Is(err, config.ErrMissingSetting):
		return fmt.Errorf("%v\nAdd the missing setting to your .env file and try again", err)
	case errors.Is(err, company.ErrMissingName):
		return fmt.Errorf("company details not found. Run 'faktura company edit' first to set up your company information")
	case errors.Is(err, flow.ErrNoCustomers):
		return fmt.Errorf("no customers found. Run 'faktura customer create' to add one")
	case errors.Is(err, flow.ErrNoTasks):
		return fmt.Errorf("%v\nRun 'faktura task create' to register work for the customer", err)
	case errors.Is(err, gauth.ErrMissingCredentials):
		return fmt.Errorf("Google credentials are not configured. Please set one of:\n" +
			"  GOOGLE_SERVICE_ACCOUNT_FILE=/path/to/service-account-key.json\n" +
			"  GOOGLE_CREDENTIALS='<json-credentials>'\n" +
			"or use AUTH_METHOD=oauth with OAUTH_CLIENT_SECRET_FILE.\n" +
			"Original error: %w", err)
	case errors.Is(err, gauth.ErrAuthorizationDeclined):
		return fmt.Errorf("Google authorization was not completed. Run the command again and approve access in the browser")
	case errors.Is(err, sheets.ErrPermissionDenied):
		return fmt.Errorf("permission denied for the spreadsheet. Share it with the service account email (Editor access): %w", err)
	case errors.Is(err, sheets.ErrInvalidSpreadsheetURL):
		return fmt.Errorf("GOOGLE_SHEET_URL does not look like a Google Sheets URL: %w", err)
	case strings.Contains(errStr, "invalid_grant") ||
		strings.Contains(errStr, "Unauthenticated"):
		return fmt.Errorf("Google authentication failed. Delete the cached token file (OAUTH_TOKEN_FILE) and authorize again, "+
			"or check the service account key.\nOriginal error: %v", err)
	default:
		return err
	}
}
