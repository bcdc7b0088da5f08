// Package gauth obtains Google credentials for Sheets, Drive and Gmail.
//
// Two strategies are supported:
//   - service_account: a service account key file or inline JSON
//   - oauth: a desktop OAuth client; the user authorizes once in the browser
//     and the token is cached in a file and refreshed as needed
package gauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"faktura/internal/fsutil"
	"faktura/internal/logger"
)

// Strategies
const (
	MethodServiceAccount = "service_account"
	MethodOAuth          = "oauth"
)

// GmailScope grants SMTP access with XOAUTH2.
const GmailScope = "https://mail.google.com/"

var (
	// ErrMissingCredentials is returned when no credential source is configured.
	ErrMissingCredentials = errors.New("missing Google credentials")

	// ErrAuthorizationDeclined is returned when the browser flow yields no code.
	ErrAuthorizationDeclined = errors.New("authorization was not granted")
)

// AuthorizeFunc runs the user consent flow for cfg and returns the token it
// produced.
type AuthorizeFunc func(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error)

// Config selects and locates credentials.
type Config struct {
	Method             string
	ServiceAccountFile string
	CredentialsJSON    string
	ClientSecretFile   string
	TokenFile          string
	Scopes             []string

	// Authorize runs the interactive consent flow when no cached token
	// exists. Defaults to LoopbackAuthorize.
	Authorize AuthorizeFunc
}

// NewTokenSource returns a token source for the configured strategy.
func NewTokenSource(ctx context.Context, cfg Config) (oauth2.TokenSource, error) {
	const op = "NewTokenSource"

	switch cfg.Method {
	case MethodOAuth:
		ts, err := userTokenSource(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return ts, nil
	case MethodServiceAccount, "":
		creds, err := serviceAccountJSON(cfg)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		jwt, err := google.JWTConfigFromJSON(creds, cfg.Scopes...)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to parse credentials: %w", op, err)
		}
		return jwt.TokenSource(ctx), nil
	default:
		return nil, fmt.Errorf("%s: unknown auth method %q", op, cfg.Method)
	}
}

// NewHTTPClient returns an HTTP client that authorizes every request.
func NewHTTPClient(ctx context.Context, cfg Config) (*http.Client, error) {
	ts, err := NewTokenSource(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return oauth2.NewClient(ctx, ts), nil
}

func serviceAccountJSON(cfg Config) ([]byte, error) {
	if cfg.ServiceAccountFile != "" {
		creds, err := os.ReadFile(cfg.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
		return creds, nil
	}
	if cfg.CredentialsJSON != "" {
		return []byte(cfg.CredentialsJSON), nil
	}
	return nil, fmt.Errorf("%w: set GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_CREDENTIALS", ErrMissingCredentials)
}

func userTokenSource(ctx context.Context, cfg Config) (oauth2.TokenSource, error) {
	log := logger.WithComponent("gauth")

	secret, err := os.ReadFile(cfg.ClientSecretFile)
	if err != nil {
		return nil, fmt.Errorf("%w: OAuth client secret file %s: %v", ErrMissingCredentials, cfg.ClientSecretFile, err)
	}
	oauthCfg, err := google.ConfigFromJSON(secret, cfg.Scopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse OAuth client secret: %w", err)
	}

	tok, err := LoadToken(cfg.TokenFile)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Str("file", cfg.TokenFile).Msg("Ignoring unreadable token file")
		}

		authorize := cfg.Authorize
		if authorize == nil {
			authorize = LoopbackAuthorize(os.Stdout)
		}
		tok, err = authorize(ctx, oauthCfg)
		if err != nil {
			return nil, err
		}
		if err := SaveToken(cfg.TokenFile, tok); err != nil {
			log.Error().Err(err).Str("file", cfg.TokenFile).Msg("Failed saving token")
		} else {
			log.Info().Str("file", cfg.TokenFile).Msg("Saved OAuth token")
		}
	}

	return &persistingSource{
		base: oauthCfg.TokenSource(ctx, tok),
		path: cfg.TokenFile,
		last: tok.AccessToken,
		log:  log,
	}, nil
}

// LoadToken reads a cached token file.
func LoadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("token file %s: %w", path, err)
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, fmt.Errorf("token file %s holds no token", path)
	}
	return &tok, nil
}

// SaveToken writes tok to path.
func SaveToken(path string, tok *oauth2.Token) error {
	return fsutil.WriteJSON(path, tok)
}

// persistingSource writes refreshed tokens back to the cache file.
type persistingSource struct {
	mu   sync.Mutex
	base oauth2.TokenSource
	path string
	last string
	log  zerolog.Logger
}

func (s *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		if err := SaveToken(s.path, tok); err != nil {
			s.log.Error().Err(err).Str("file", s.path).Msg("Failed saving refreshed token")
		} else {
			s.log.Debug().Str("file", s.path).Msg("Saved refreshed token")
		}
	}
	return tok, nil
}

// TokenProvider hands out access tokens for SMTP XOAUTH2.
type TokenProvider struct {
	ts  oauth2.TokenSource
	log zerolog.Logger
}

// NewTokenProvider wraps a token source.
func NewTokenProvider(ts oauth2.TokenSource) *TokenProvider {
	return &TokenProvider{ts: ts, log: logger.WithComponent("gauth")}
}

// AccessToken returns a currently valid access token for account.
func (p *TokenProvider) AccessToken(ctx context.Context, account string) (string, error) {
	const op = "AccessToken"

	if err := ctx.Err(); err != nil {
		return "", err
	}
	tok, err := p.ts.Token()
	if err != nil {
		return "", fmt.Errorf("%s: failed to obtain token for %s: %w", op, account, err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("%s: empty access token for %s", op, account)
	}
	p.log.Debug().Str("account", account).Time("expiry", tok.Expiry).Msg("Obtained access token")
	return tok.AccessToken, nil
}
