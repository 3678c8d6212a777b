package gmail

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/textproto"
	"sort"
	"strings"

	"sheetmail/internal/model"
)

// BuildMIME renders msg as an RFC 5322 message:
//
//	multipart/mixed
//	├── multipart/alternative (text/plain, text/html)  or a lone text/html part
//	└── one part per attachment (base64)
func BuildMIME(msg *model.Message) ([]byte, error) {
	if msg.To == "" {
		return nil, errors.New("message has no recipient")
	}

	var buf bytes.Buffer
	mixed := multipart.NewWriter(&buf)

	writeHeader(&buf, "To", msg.To)
	if len(msg.Cc) > 0 {
		writeHeader(&buf, "Cc", strings.Join(msg.Cc, ", "))
	}
	writeHeader(&buf, "Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	keys := make([]string, 0, len(msg.Headers))
	for k := range msg.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		writeHeader(&buf, k, msg.Headers[k])
	}
	writeHeader(&buf, "MIME-Version", "1.0")
	writeHeader(&buf, "Content-Type", "multipart/mixed; boundary="+mixed.Boundary())
	buf.WriteString("\r\n")

	if err := writeBody(mixed, msg); err != nil {
		return nil, err
	}
	for _, a := range msg.Attachments {
		if err := writeAttachment(mixed, a); err != nil {
			return nil, fmt.Errorf("attach %s: %w", a.Filename, err)
		}
	}
	if err := mixed.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeHeader(w io.Writer, key, value string) {
	// Header injection guard: values never span lines.
	value = strings.NewReplacer("\r", " ", "\n", " ").Replace(value)
	fmt.Fprintf(w, "%s: %s\r\n", key, value)
}

func writeBody(mixed *multipart.Writer, msg *model.Message) error {
	if msg.Text == "" {
		return writeTextPart(mixed, "text/html", msg.HTML)
	}

	var alt bytes.Buffer
	aw := multipart.NewWriter(&alt)
	if err := writeTextPart(aw, "text/plain", msg.Text); err != nil {
		return err
	}
	if err := writeTextPart(aw, "text/html", msg.HTML); err != nil {
		return err
	}
	if err := aw.Close(); err != nil {
		return err
	}

	h := textproto.MIMEHeader{}
	h.Set("Content-Type", "multipart/alternative; boundary="+aw.Boundary())
	part, err := mixed.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = part.Write(alt.Bytes())
	return err
}

func writeTextPart(w *multipart.Writer, contentType, body string) error {
	h := textproto.MIMEHeader{}
	h.Set("Content-Type", contentType+"; charset=UTF-8")
	h.Set("Content-Transfer-Encoding", "base64")
	part, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	return writeBase64(part, []byte(body))
}

func writeAttachment(w *multipart.Writer, a model.Attachment) error {
	ct := a.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h := textproto.MIMEHeader{}
	h.Set("Content-Type", mime.FormatMediaType(ct, map[string]string{"name": a.Filename}))
	h.Set("Content-Transfer-Encoding", "base64")
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": a.Filename}))
	part, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	return writeBase64(part, a.Content)
}

// writeBase64 writes data base64-encoded in 76-column lines.
func writeBase64(w io.Writer, data []byte) error {
	enc := base64.StdEncoding.EncodeToString(data)
	for len(enc) > 76 {
		if _, err := io.WriteString(w, enc[:76]+"\r\n"); err != nil {
			return err
		}
		enc = enc[76:]
	}
	_, err := io.WriteString(w, enc+"\r\n")
	return err
}
