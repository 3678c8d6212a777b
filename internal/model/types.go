package model

import (
	"strings"
	"time"
)

// StatusField is the header every Row is guaranteed to carry.
const StatusField = "Status"

// Status is the value written back into a row's Status cell.
type Status string

const (
	StatusCompleted Status = "Completed"
	StatusError     Status = "Error"
	StatusPending   Status = "pending"
)

// Row is one data row of the fetched range.
type Row struct {
	Index  int               // 0-based position below the header row
	Values []string          // raw cells, right-padded to header length
	Fields map[string]string // normalized header -> value; later duplicates win
}

// Get returns the value for a normalized header name, or "" if absent.
func (r Row) Get(name string) string {
	return r.Fields[name]
}

// Status returns the row's Status field.
func (r Row) Status() string { return r.Fields[StatusField] }

// IsPending reports whether the row still needs a send: a blank or "pending"
// status, compared case-insensitively.
func (r Row) IsPending() bool {
	s := strings.ToLower(strings.TrimSpace(r.Status()))
	return s == "" || s == string(StatusPending)
}

// RowTable is the snapshot of a sheet range taken once per run.
type RowTable struct {
	Range   string   // A1 range the table was read from
	Headers []string // normalized headers; includes Status
	Rows    []Row
}

// Len returns the number of data rows.
func (t *RowTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Pending returns the rows whose status marks them as not yet sent, in
// original order.
func (t *RowTable) Pending() []Row {
	if t == nil {
		return nil
	}
	var out []Row
	for _, r := range t.Rows {
		if r.IsPending() {
			out = append(out, r)
		}
	}
	return out
}

// ColumnIndex returns the 0-based index of the named header, or -1.
// With duplicate headers the last one wins, matching Row.Fields.
func (t *RowTable) ColumnIndex(name string) int {
	if t == nil {
		return -1
	}
	for i := len(t.Headers) - 1; i >= 0; i-- {
		if t.Headers[i] == name {
			return i
		}
	}
	return -1
}

// Recipient is who a single send is addressed to.
type Recipient struct {
	Email  string
	Name   string
	Fields map[string]string // full row, available to templates
}

// RecipientFromRow maps the conventional Name/Email columns.
func RecipientFromRow(r Row) Recipient {
	return Recipient{
		Email:  r.Get("Email"),
		Name:   r.Get("Name"),
		Fields: r.Fields,
	}
}

// Attachment is a file carried by a Message.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Message is a provider-neutral email ready to hand to a mail client.
type Message struct {
	To          string
	Cc          []string
	Subject     string
	HTML        string
	Text        string // plain text alternative (may be empty)
	Attachments []Attachment
	Headers     map[string]string
}

// TrackingRecord is what gets registered with the external tracker after a
// successful send. The JSON names are the tracker's wire contract.
type TrackingRecord struct {
	TrackID        string `json:"track_id"`
	RecipientEmail string `json:"recipient_email"`
	SenderEmail    string `json:"sender_email"`
	Subject        string `json:"subject"`
	MessageID      string `json:"gmail_message_id"`
}

// Delivery describes a message the provider accepted.
type Delivery struct {
	TrackID   string
	MessageID string // provider-assigned id
	Sender    string
	Subject   string
	Warnings  []error // recoverable problems (attachment, tracker)
}

// SendRecord is one ledger entry: the outcome of a single pending row.
type SendRecord struct {
	RunID     string
	TrackID   string
	RowIndex  int
	Recipient string
	Sender    string
	Subject   string
	MessageID string
	Status    Status
	Error     string
	Cell      string // A1 address of the Status cell written
	SentAt    time.Time
}
