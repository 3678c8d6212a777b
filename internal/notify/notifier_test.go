package notify

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheetmail/internal/content"
	"sheetmail/internal/logger"
	"sheetmail/internal/model"
)

type fakeMail struct {
	sent       []*model.Message
	sendErr    error
	sender     string
	senderErr  error
	senderHits int
}

func (f *fakeMail) Send(_ context.Context, msg *model.Message) (string, error) {
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.sent = append(f.sent, msg)
	return fmt.Sprintf("msg-%d", len(f.sent)), nil
}

func (f *fakeMail) SenderAddress(context.Context) (string, error) {
	f.senderHits++
	return f.sender, f.senderErr
}

type fakeRegistrar struct {
	recs []model.TrackingRecord
	err  error
}

func (f *fakeRegistrar) Register(_ context.Context, rec model.TrackingRecord) error {
	f.recs = append(f.recs, rec)
	return f.err
}

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func newNotifier(t *testing.T, mail MailClient, reg Registrar, opts Options) *Notifier {
	t.Helper()
	r, err := content.Load("", "")
	require.NoError(t, err)
	if opts.NewID == nil {
		opts.NewID = seqIDs()
	}
	return New(mail, r, reg, opts, logger.Nop())
}

func TestSendComposesMessage(t *testing.T) {
	mail := &fakeMail{sender: "me@example.com"}
	reg := &fakeRegistrar{}
	n := newNotifier(t, mail, reg, Options{
		Cc:          []string{"boss@example.com"},
		TrackerBase: "https://t.example.com",
	})

	d, err := n.Send(context.Background(), model.Recipient{Email: "Ana@Example.COM", Name: "Ana"})
	require.NoError(t, err)
	require.Len(t, mail.sent, 1)

	msg := mail.sent[0]
	assert.Equal(t, "Ana@example.com", msg.To)
	assert.Equal(t, []string{"boss@example.com"}, msg.Cc)
	assert.Equal(t, content.DefaultSubject, msg.Subject)
	assert.Contains(t, msg.HTML, "Dear Ana,")
	assert.Contains(t, msg.HTML, `<img src="https://t.example.com/pixel/id-1.png?cb=id-2" width="1" height="1"/></body>`)
	assert.Contains(t, msg.Text, "Dear Ana,")
	assert.Empty(t, msg.Attachments)

	assert.Equal(t, "id-1", d.TrackID)
	assert.Equal(t, "msg-1", d.MessageID)
	assert.Equal(t, "me@example.com", d.Sender)
	assert.Empty(t, d.Warnings)

	require.Len(t, reg.recs, 1)
	assert.Equal(t, model.TrackingRecord{
		TrackID:        "id-1",
		RecipientEmail: "Ana@example.com",
		SenderEmail:    "me@example.com",
		Subject:        content.DefaultSubject,
		MessageID:      "msg-1",
	}, reg.recs[0])
}

func TestSendWithoutTracker(t *testing.T) {
	mail := &fakeMail{sender: "me@example.com"}
	reg := &fakeRegistrar{}
	n := newNotifier(t, mail, reg, Options{})

	_, err := n.Send(context.Background(), model.Recipient{Email: "a@x.com", Name: "A"})
	require.NoError(t, err)
	assert.NotContains(t, mail.sent[0].HTML, "<img")
	assert.Empty(t, reg.recs)
}

func TestSendInvalidRecipient(t *testing.T) {
	mail := &fakeMail{}
	n := newNotifier(t, mail, nil, Options{})

	for _, addr := range []string{"", "not-an-address", "a@b@c"} {
		_, err := n.Send(context.Background(), model.Recipient{Email: addr})
		assert.ErrorIs(t, err, model.ErrInvalidRecipient, addr)
	}
	assert.Empty(t, mail.sent)
}

func TestSendProviderFailure(t *testing.T) {
	mail := &fakeMail{sendErr: errors.New("quota exceeded")}
	reg := &fakeRegistrar{}
	n := newNotifier(t, mail, reg, Options{TrackerBase: "https://t.example.com"})

	_, err := n.Send(context.Background(), model.Recipient{Email: "a@x.com"})
	require.ErrorIs(t, err, model.ErrSend)
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.Empty(t, reg.recs)
	assert.Zero(t, mail.senderHits)
}

func TestSendAttachment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deck.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o600))

	mail := &fakeMail{sender: "me@example.com"}
	n := newNotifier(t, mail, nil, Options{AttachmentPath: path})

	d, err := n.Send(context.Background(), model.Recipient{Email: "a@x.com"})
	require.NoError(t, err)
	assert.Empty(t, d.Warnings)
	require.Len(t, mail.sent[0].Attachments, 1)

	att := mail.sent[0].Attachments[0]
	assert.Equal(t, "deck.pdf", att.Filename)
	assert.Equal(t, "application/pdf", att.ContentType)
	assert.Equal(t, []byte("%PDF-1.4"), att.Content)
}

func TestSendMissingAttachmentStillSends(t *testing.T) {
	mail := &fakeMail{sender: "me@example.com"}
	n := newNotifier(t, mail, nil, Options{AttachmentPath: filepath.Join(t.TempDir(), "gone.pdf")})

	d, err := n.Send(context.Background(), model.Recipient{Email: "a@x.com"})
	require.NoError(t, err)
	require.Len(t, mail.sent, 1)
	assert.Empty(t, mail.sent[0].Attachments)
	require.Len(t, d.Warnings, 1)
	assert.ErrorIs(t, d.Warnings[0], model.ErrAttachment)
}

func TestSendTrackerFailureIsWarning(t *testing.T) {
	mail := &fakeMail{sender: "me@example.com"}
	reg := &fakeRegistrar{err: errors.New("connection refused")}
	n := newNotifier(t, mail, reg, Options{TrackerBase: "https://t.example.com"})

	d, err := n.Send(context.Background(), model.Recipient{Email: "a@x.com"})
	require.NoError(t, err)
	require.Len(t, d.Warnings, 1)
	assert.ErrorIs(t, d.Warnings[0], model.ErrTrackerRegister)
}

func TestSenderFallbackIsCached(t *testing.T) {
	mail := &fakeMail{senderErr: errors.New("insufficient scope")}
	n := newNotifier(t, mail, nil, Options{SenderFallback: "ops@example.com"})

	for i := 0; i < 3; i++ {
		d, err := n.Send(context.Background(), model.Recipient{Email: "a@x.com"})
		require.NoError(t, err)
		assert.Equal(t, "ops@example.com", d.Sender)
	}
	assert.Equal(t, 1, mail.senderHits)
}

func TestEmbedPixel(t *testing.T) {
	assert.Equal(t, "<p>x</p><img/>", embedPixel("<p>x</p>", "<img/>"))
	assert.Equal(t, "<BODY>x<img/></BODY>", embedPixel("<BODY>x</BODY>", "<img/>"))
	assert.True(t, strings.HasSuffix(embedPixel("<body></body></html>", "<img/>"), "<img/></body></html>"))
}
