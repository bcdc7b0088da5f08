package mail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// SMTP authentication strategies
const (
	AuthPassword = "password"
	AuthOAuth    = "oauth"
)

// ErrUnknownAuth is returned for an unsupported authentication method.
var ErrUnknownAuth = errors.New("unknown email auth method")

// TokenProvider returns an OAuth2 access token for account.
type TokenProvider interface {
	AccessToken(ctx context.Context, account string) (string, error)
}

// SMTPConfig configures an SMTP transport.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Method   string
	Tokens   TokenProvider
	Timeout  time.Duration
}

// SMTPTransport sends mail over SMTP. STARTTLS is mandatory and happens
// before authentication; the password method uses LOGIN and the oauth method
// XOAUTH2.
type SMTPTransport struct {
	cfg SMTPConfig
}

// NewSMTPTransport validates cfg and returns a transport.
func NewSMTPTransport(cfg SMTPConfig) (*SMTPTransport, error) {
	const op = "NewSMTPTransport"

	switch cfg.Method {
	case AuthPassword:
		if cfg.Password == "" {
			return nil, fmt.Errorf("%s: password auth requires a password", op)
		}
	case AuthOAuth:
		if cfg.Tokens == nil {
			return nil, fmt.Errorf("%s: oauth auth requires a token provider", op)
		}
	default:
		return nil, fmt.Errorf("%s: %w %q", op, ErrUnknownAuth, cfg.Method)
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &SMTPTransport{cfg: cfg}, nil
}

// Send delivers msg in a single connection.
func (t *SMTPTransport) Send(ctx context.Context, msg Message) error {
	const op = "Send"

	auth, secret, err := t.credentials(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	m, err := buildMessage(msg)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	client, err := gomail.NewClient(t.cfg.Host,
		gomail.WithPort(t.cfg.Port),
		gomail.WithTLSPolicy(gomail.TLSMandatory),
		gomail.WithSMTPAuth(auth),
		gomail.WithUsername(t.cfg.Username),
		gomail.WithPassword(secret),
		gomail.WithTimeout(t.cfg.Timeout),
	)
	if err != nil {
		return fmt.Errorf("%s: failed to create SMTP client: %w", op, err)
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("%s: %s:%d: %w", op, t.cfg.Host, t.cfg.Port, err)
	}
	return nil
}

func (t *SMTPTransport) credentials(ctx context.Context) (gomail.SMTPAuthType, string, error) {
	if t.cfg.Method == AuthOAuth {
		token, err := t.cfg.Tokens.AccessToken(ctx, t.cfg.Username)
		if err != nil {
			return "", "", fmt.Errorf("failed to obtain access token: %w", err)
		}
		return gomail.SMTPAuthXOAUTH2, token, nil
	}
	return gomail.SMTPAuthLogin, t.cfg.Password, nil
}

func buildMessage(msg Message) (*gomail.Msg, error) {
	m := gomail.NewMsg()
	if err := m.From(msg.From); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", msg.From, err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", msg.To, err)
	}
	if len(msg.Cc) > 0 {
		if err := m.Cc(msg.Cc...); err != nil {
			return nil, fmt.Errorf("invalid cc %v: %w", msg.Cc, err)
		}
	}
	m.Subject(msg.Subject)
	m.SetBodyString(gomail.TypeTextPlain, msg.Body)

	err := m.AttachReader(msg.AttachmentName, bytes.NewReader(msg.Attachment),
		gomail.WithFileContentType(gomail.TypeAppOctetStream))
	if err != nil {
		return nil, fmt.Errorf("failed to attach %s: %w", msg.AttachmentName, err)
	}
	return m, nil
}
