package gmail

import (
	"context"
	"encoding/base64"
	"fmt"

	gmailv1 "google.golang.org/api/gmail/v1"

	"sheetmail/internal/model"
)

// Client sends mail as the authenticated user.
type Client struct {
	svc *gmailv1.Service
}

// NewClient wraps an authenticated Gmail service.
func NewClient(svc *gmailv1.Service) *Client {
	return &Client{svc: svc}
}

// Send encodes msg as MIME and submits it. It returns the Gmail message id.
func (c *Client) Send(ctx context.Context, msg *model.Message) (string, error) {
	user := "me"
	raw, err := BuildMIME(msg)
	if err != nil {
		return "", fmt.Errorf("build message for %s: %w", msg.To, err)
	}
	out, err := c.svc.Users.Messages.Send(user, &gmailv1.Message{
		Raw: base64.URLEncoding.EncodeToString(raw),
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("send message to %s: %w", msg.To, err)
	}
	return out.Id, nil
}

// SenderAddress returns the mailbox address of the authenticated user.
// With only the gmail.send scope this call is refused; callers fall back to
// a configured address.
func (c *Client) SenderAddress(ctx context.Context) (string, error) {
	user := "me"
	p, err := c.svc.Users.GetProfile(user).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("get profile: %w", err)
	}
	return p.EmailAddress, nil
}
