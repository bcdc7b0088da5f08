// Package mail sends rendered invoices by email.
//
// The Dispatcher composes the message (subject, fixed Danish body, PDF
// attachment) and hands it to a Transport. Every send is independent: a
// failure is returned to the caller as a *SendError for that recipient and
// never affects other sends.
package mail

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"faktura/internal/logger"
	"faktura/pkg/models"
)

var (
	// ErrNoRecipient is returned when an envelope has no To address.
	ErrNoRecipient = errors.New("no recipient address")

	// ErrAttachment is returned when the PDF cannot be read.
	ErrAttachment = errors.New("failed to read attachment")
)

const signature = "ST_Faktura"

// Envelope describes one invoice email.
type Envelope struct {
	To            string
	Cc            []string
	RecipientName string
	InvoiceNumber int
	TermsDays     int
	PDFPath       string
}

// Message is a composed email ready for delivery.
type Message struct {
	From           string
	To             string
	Cc             []string
	Subject        string
	Body           string
	AttachmentName string
	Attachment     []byte
}

// Transport delivers composed messages.
type Transport interface {
	Send(ctx context.Context, msg Message) error
}

// SendError reports a failed delivery to one recipient.
type SendError struct {
	Recipient string
	Err       error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("sending to %s: %v", e.Recipient, e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// Dispatcher composes and sends invoice emails.
type Dispatcher struct {
	from      string
	brand     string
	transport Transport
	log       zerolog.Logger
}

// NewDispatcher creates a dispatcher sending as from. brand is appended to
// every subject line.
func NewDispatcher(from, brand string, transport Transport) *Dispatcher {
	return &Dispatcher{
		from:      from,
		brand:     brand,
		transport: transport,
		log:       logger.WithComponent("mail"),
	}
}

// Subject is the subject line for an invoice number.
func (d *Dispatcher) Subject(number int) string {
	return fmt.Sprintf("Faktura #%d - %s", number, d.brand)
}

// Body renders the fixed message text.
func Body(name string, number, termsDays int) string {
	if termsDays <= 0 {
		termsDays = models.DefaultPaymentTermsDays
	}
	return fmt.Sprintf("Kære %s,\n\nVedhæftet finder du faktura #%d.\n\nBetalingsfristen er %d dage fra fakturadato.\n\nMed venlig hilsen,\n%s\n",
		name, number, termsDays, signature)
}

// Compose builds the message for env. The attachment is read here so a
// missing file fails before any connection is made.
func (d *Dispatcher) Compose(env Envelope) (Message, error) {
	to := strings.TrimSpace(env.To)
	if to == "" {
		return Message{}, ErrNoRecipient
	}

	data, err := os.ReadFile(env.PDFPath)
	if err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrAttachment, err)
	}

	return Message{
		From:           d.from,
		To:             to,
		Cc:             CleanCC(to, env.Cc),
		Subject:        d.Subject(env.InvoiceNumber),
		Body:           Body(env.RecipientName, env.InvoiceNumber, env.TermsDays),
		AttachmentName: fmt.Sprintf("faktura_%d.pdf", env.InvoiceNumber),
		Attachment:     data,
	}, nil
}

// Send composes and delivers env. Any failure is returned as a *SendError.
func (d *Dispatcher) Send(ctx context.Context, env Envelope) error {
	log := d.log.With().Int("invoice_number", env.InvoiceNumber).Str("to", env.To).Logger()

	msg, err := d.Compose(env)
	if err != nil {
		log.Error().Err(err).Msg("Failed to compose invoice email")
		return &SendError{Recipient: env.To, Err: err}
	}

	if err := d.transport.Send(ctx, msg); err != nil {
		log.Error().Err(err).Msg("Failed to send invoice email")
		return &SendError{Recipient: msg.To, Err: err}
	}

	log.Info().Strs("cc", msg.Cc).Msg("Invoice email sent")
	return nil
}

// CleanCC trims cc, drops blanks and duplicates, and removes the primary
// recipient. Comparison ignores case; the first spelling is kept.
func CleanCC(to string, cc []string) []string {
	seen := map[string]bool{strings.ToLower(strings.TrimSpace(to)): true}
	var out []string
	for _, addr := range cc {
		a := strings.TrimSpace(addr)
		key := strings.ToLower(a)
		if a == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, a)
	}
	return out
}

// ParseCC splits comma separated input, keeping entries that contain '@'.
func ParseCC(input string) []string {
	var out []string
	for _, raw := range strings.Split(input, ",") {
		addr := strings.TrimSpace(raw)
		if addr != "" && strings.Contains(addr, "@") {
			out = append(out, addr)
		}
	}
	return CleanCC("", out)
}

// BookkeepingCopy returns the envelope for the internal copy of env. ok is
// false when there is no bookkeeping address or it already received the
// invoice as To or CC.
func BookkeepingCopy(env Envelope, bookkeeping string) (Envelope, bool) {
	bookkeeping = strings.TrimSpace(bookkeeping)
	if bookkeeping == "" {
		return Envelope{}, false
	}
	for _, a := range append([]string{env.To}, env.Cc...) {
		if strings.EqualFold(strings.TrimSpace(a), bookkeeping) {
			return Envelope{}, false
		}
	}
	return Envelope{
		To:            bookkeeping,
		RecipientName: env.RecipientName,
		InvoiceNumber: env.InvoiceNumber,
		TermsDays:     env.TermsDays,
		PDFPath:       env.PDFPath,
	}, true
}
