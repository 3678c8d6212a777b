// Package notify composes and sends one personalized message per recipient.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"sheetmail/internal/content"
	"sheetmail/internal/logger"
	"sheetmail/internal/model"
	"sheetmail/internal/tracker"
	"sheetmail/internal/util"
)

// MailClient delivers a prepared message and knows who it sends as.
type MailClient interface {
	Send(ctx context.Context, msg *model.Message) (messageID string, err error)
	SenderAddress(ctx context.Context) (string, error)
}

// Registrar records a send with the open tracker.
type Registrar interface {
	Register(ctx context.Context, rec model.TrackingRecord) error
}

// Options holds the fixed parts of every message.
type Options struct {
	Cc             []string
	AttachmentPath string
	TrackerBase    string // empty disables the pixel and registration
	SenderFallback string // used when the provider cannot tell us the sender
	NewID          func() string
}

type Notifier struct {
	mail      MailClient
	renderer  *content.Renderer
	registrar Registrar
	opts      Options
	log       *slog.Logger

	senderOnce sync.Once
	sender     string
}

// New builds a Notifier. registrar may be nil when no tracker is configured.
func New(mail MailClient, renderer *content.Renderer, registrar Registrar, opts Options, log *slog.Logger) *Notifier {
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Notifier{
		mail:      mail,
		renderer:  renderer,
		registrar: registrar,
		opts:      opts,
		log:       log,
	}
}

// Send composes and delivers one message. A nil error means the provider
// accepted it; problems that did not prevent delivery (attachment, tracker)
// are reported in Delivery.Warnings.
func (n *Notifier) Send(ctx context.Context, r model.Recipient) (model.Delivery, error) {
	addr := util.NormalizeRecipient(r.Email)
	if addr == "" {
		return model.Delivery{}, fmt.Errorf("%w: %q", model.ErrInvalidRecipient, r.Email)
	}

	rendered, err := n.renderer.Render(content.Data{Name: r.Name, Email: addr, Fields: r.Fields})
	if err != nil {
		return model.Delivery{}, fmt.Errorf("%w: %w", model.ErrRender, err)
	}

	d := model.Delivery{TrackID: n.opts.NewID(), Subject: rendered.Subject}

	body := rendered.HTML
	if n.opts.TrackerBase != "" {
		body = embedPixel(body, tracker.PixelTag(n.opts.TrackerBase, d.TrackID, n.opts.NewID()))
	}

	msg := &model.Message{
		To:      addr,
		Cc:      n.opts.Cc,
		Subject: rendered.Subject,
		HTML:    body,
		Text:    rendered.Text,
		Headers: map[string]string{"X-Entity-Ref-ID": d.TrackID},
	}

	att, err := loadAttachment(n.opts.AttachmentPath)
	switch {
	case err != nil:
		d.Warnings = append(d.Warnings, err)
	case att != nil:
		msg.Attachments = []model.Attachment{*att}
	}

	d.MessageID, err = n.mail.Send(ctx, msg)
	if err != nil {
		return d, fmt.Errorf("%w: %w", model.ErrSend, err)
	}
	d.Sender = n.senderAddress(ctx)

	if n.registrar != nil && n.opts.TrackerBase != "" {
		rec := model.TrackingRecord{
			TrackID:        d.TrackID,
			RecipientEmail: addr,
			SenderEmail:    d.Sender,
			Subject:        d.Subject,
			MessageID:      d.MessageID,
		}
		if err := n.registrar.Register(ctx, rec); err != nil {
			d.Warnings = append(d.Warnings, fmt.Errorf("%w: %w", model.ErrTrackerRegister, err))
		}
	}
	return d, nil
}

// senderAddress asks the provider once per Notifier and caches the answer.
func (n *Notifier) senderAddress(ctx context.Context) string {
	n.senderOnce.Do(func() {
		addr, err := n.mail.SenderAddress(ctx)
		if err != nil || addr == "" {
			n.log.WarnContext(ctx, "sender lookup failed, using fallback",
				slog.String("fallback", n.opts.SenderFallback), logger.Err(err))
			addr = n.opts.SenderFallback
		}
		n.sender = addr
	})
	return n.sender
}

// embedPixel places the pixel just before </body> when there is one.
func embedPixel(body, pixel string) string {
	if i := strings.LastIndex(strings.ToLower(body), "</body>"); i >= 0 {
		return body[:i] + pixel + body[i:]
	}
	return body + pixel
}
