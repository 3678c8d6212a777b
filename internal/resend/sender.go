// Package resend delivers messages through the Resend API instead of Gmail.
package resend

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v3"

	"sheetmail/internal/model"
)

// emailSender is the part of resend.EmailsSvc this package uses.
type emailSender interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// Client sends from a fixed, verified sender address.
type Client struct {
	emails emailSender
	from   string
}

// New creates a Resend-backed client.
func New(apiKey, from string) *Client {
	return &Client{emails: resend.NewClient(apiKey).Emails, from: from}
}

// Send implements the notifier's mail client and returns Resend's email id.
func (c *Client) Send(ctx context.Context, msg *model.Message) (string, error) {
	req := &resend.SendEmailRequest{
		From:    c.from,
		To:      []string{msg.To},
		Cc:      msg.Cc,
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
		Headers: msg.Headers,
	}
	for _, a := range msg.Attachments {
		req.Attachments = append(req.Attachments, &resend.Attachment{
			Filename:    a.Filename,
			Content:     a.Content,
			ContentType: a.ContentType,
		})
	}

	resp, err := c.emails.SendWithContext(ctx, req)
	if err != nil {
		return "", fmt.Errorf("resend: send to %s: %w", msg.To, err)
	}
	return resp.Id, nil
}

// SenderAddress is the configured from address; Resend has no profile call.
func (c *Client) SenderAddress(context.Context) (string, error) {
	return c.from, nil
}
