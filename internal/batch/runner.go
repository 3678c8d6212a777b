// Package batch drives one pass over a sheet: authenticate, take a snapshot
// of the rows, and for every pending row send one message and record exactly
// one status. Progress lives only in the sheet, so an interrupted run simply
// resumes on the next invocation.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"sheetmail/internal/logger"
	"sheetmail/internal/model"
	"sheetmail/internal/sheets"
)

const (
	MsgNoPending = "No pending rows found."
	MsgComplete  = "Email automation run complete."
)

// DefaultDelay separates consecutive sends.
const DefaultDelay = 2 * time.Second

type Fetcher interface {
	Fetch(ctx context.Context) (*model.RowTable, error)
}

type Sender interface {
	Send(ctx context.Context, r model.Recipient) (model.Delivery, error)
}

type StatusWriter interface {
	Write(ctx context.Context, table *model.RowTable, rowIndex int, status model.Status) (sheets.Cell, error)
}

// Pipeline is what authentication yields: everything that talks to Google.
type Pipeline struct {
	Source   Fetcher
	Notifier Sender
	Writer   StatusWriter
}

// Authenticator resolves credentials and builds the pipeline.
type Authenticator interface {
	Authenticate(ctx context.Context) (*Pipeline, error)
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(ctx context.Context) (*Pipeline, error)

func (f AuthenticatorFunc) Authenticate(ctx context.Context) (*Pipeline, error) { return f(ctx) }

// Journal receives one record per processed row. It is an audit trail only.
type Journal interface {
	RecordSend(ctx context.Context, rec model.SendRecord) error
	SetLastRun(ctx context.Context, at time.Time) error
}

type Options struct {
	Delay    time.Duration
	Journal  Journal
	Observer Observer

	// Sleep and Now default to real time.
	Sleep func(ctx context.Context, d time.Duration) error
	Now   func() time.Time
}

type Runner struct {
	auth Authenticator
	opts Options
	log  *slog.Logger
}

func NewRunner(auth Authenticator, opts Options, log *slog.Logger) *Runner {
	if opts.Sleep == nil {
		opts.Sleep = sleep
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Observer == nil {
		opts.Observer = func(Event) {}
	}
	return &Runner{auth: auth, opts: opts, log: log}
}

// Summary reports what a run did.
type Summary struct {
	RunID         string
	Message       string
	Rows          int
	Pending       int
	Completed     int
	Failed        int
	WriteFailures int
	Warnings      int
}

func (s Summary) String() string {
	if s.Pending == 0 {
		return s.Message
	}
	return fmt.Sprintf("%s %d sent, %d failed", s.Message, s.Completed, s.Failed)
}

// Run processes one snapshot of the sheet. It returns an error only for
// failures that abort the run (credentials, fetch, cancellation); per-row
// failures are recorded in the sheet and counted in the Summary.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	sum := Summary{RunID: uuid.NewString()}
	log := r.log.With(slog.String("run", sum.RunID))
	r.emit(Event{State: StateInit})
	log.InfoContext(ctx, "Starting email automation")

	p, err := r.auth.Authenticate(ctx)
	if err != nil {
		log.ErrorContext(ctx, "authentication failed", logger.Err(err))
		r.emit(Event{State: StateDone, Err: err})
		return sum, err
	}
	r.emit(Event{State: StateAuthenticated})

	table, err := p.Source.Fetch(ctx)
	if err != nil && Policy(err) == Abort {
		log.ErrorContext(ctx, "fetch failed", logger.Err(err))
		r.emit(Event{State: StateDone, Err: err})
		return sum, err
	}
	pending := table.Pending()
	sum.Rows, sum.Pending = table.Len(), len(pending)
	log.InfoContext(ctx, "Loaded rows", slog.Int("rows", sum.Rows), slog.Int("pending", sum.Pending))
	r.emit(Event{State: StateFetched, Total: sum.Pending})

	if len(pending) == 0 {
		sum.Message = MsgNoPending
		log.InfoContext(ctx, MsgNoPending)
		r.finish(ctx, log, sum)
		return sum, nil
	}

	for i, row := range pending {
		if err := ctx.Err(); err != nil {
			return r.interrupted(ctx, log, sum, err)
		}
		r.processRow(ctx, log, p, table, row, i, &sum)

		if i < len(pending)-1 && r.opts.Delay > 0 {
			if err := r.opts.Sleep(ctx, r.opts.Delay); err != nil {
				return r.interrupted(ctx, log, sum, err)
			}
		}
	}

	sum.Message = MsgComplete
	log.InfoContext(ctx, MsgComplete,
		slog.Int("completed", sum.Completed), slog.Int("failed", sum.Failed),
		slog.Int("write_failures", sum.WriteFailures))
	r.finish(ctx, log, sum)
	return sum, nil
}

// processRow sends to one recipient and writes its status. Nothing it
// encounters stops the run.
func (r *Runner) processRow(ctx context.Context, log *slog.Logger, p *Pipeline, table *model.RowTable, row model.Row, i int, sum *Summary) {
	rcpt := model.RecipientFromRow(row)
	log = log.With(slog.Int("row", row.Index), slog.String("email", rcpt.Email))
	r.emit(Event{State: StateSending, Index: i, Total: sum.Pending, Recipient: rcpt.Email})
	log.InfoContext(ctx, "Sending email")

	d, sendErr := p.Notifier.Send(ctx, rcpt)
	status := model.StatusCompleted
	if sendErr != nil {
		status = model.StatusError
		sum.Failed++
		log.ErrorContext(ctx, "send failed", logger.Err(sendErr), slog.String("policy", Policy(sendErr).String()))
	} else {
		sum.Completed++
		log.InfoContext(ctx, "Email sent", slog.String("track_id", d.TrackID), slog.String("message_id", d.MessageID))
	}
	for _, w := range d.Warnings {
		sum.Warnings++
		log.WarnContext(ctx, "send warning", logger.Err(w))
	}

	// The row's status is written even if the run was cancelled mid-send.
	cell, writeErr := p.Writer.Write(context.WithoutCancel(ctx), table, row.Index, status)
	switch {
	case errors.Is(writeErr, model.ErrStatusWrite):
		sum.WriteFailures++
		log.ErrorContext(ctx, "status write failed", slog.String("cell", cell.A1()), logger.Err(writeErr))
	case writeErr != nil:
		sum.Warnings++
		log.WarnContext(ctx, "status written to fallback cell", slog.String("cell", cell.A1()), logger.Err(writeErr))
	default:
		log.DebugContext(ctx, "status written", slog.String("cell", cell.A1()), slog.String("status", string(status)))
	}

	rec := model.SendRecord{
		RunID:     sum.RunID,
		TrackID:   d.TrackID,
		RowIndex:  row.Index,
		Recipient: rcpt.Email,
		Sender:    d.Sender,
		Subject:   d.Subject,
		MessageID: d.MessageID,
		Status:    status,
		Cell:      cell.A1(),
		SentAt:    r.opts.Now(),
	}
	if sendErr != nil {
		rec.Error = sendErr.Error()
	}
	r.journal(ctx, log, rec)

	r.emit(Event{State: StateSending, Index: i, Total: sum.Pending, Recipient: rcpt.Email,
		Status: status, Cell: cell.A1(), Err: errors.Join(sendErr, writeErr), Done: true})
}

func (r *Runner) interrupted(ctx context.Context, log *slog.Logger, sum Summary, err error) (Summary, error) {
	sum.Message = "Run interrupted."
	log.WarnContext(ctx, "run interrupted", slog.Int("completed", sum.Completed), slog.Int("failed", sum.Failed), logger.Err(err))
	r.emit(Event{State: StateDone, Err: err, Summary: &sum})
	return sum, err
}

func (r *Runner) finish(ctx context.Context, log *slog.Logger, sum Summary) {
	if r.opts.Journal != nil {
		if err := r.opts.Journal.SetLastRun(ctx, r.opts.Now()); err != nil {
			log.WarnContext(ctx, "ledger update failed", logger.Err(fmt.Errorf("%w: %w", model.ErrLedger, err)))
		}
	}
	r.emit(Event{State: StateDone, Summary: &sum})
}

func (r *Runner) journal(ctx context.Context, log *slog.Logger, rec model.SendRecord) {
	if r.opts.Journal == nil {
		return
	}
	if err := r.opts.Journal.RecordSend(context.WithoutCancel(ctx), rec); err != nil {
		log.WarnContext(ctx, "ledger write failed", logger.Err(fmt.Errorf("%w: %w", model.ErrLedger, err)))
	}
}

func (r *Runner) emit(e Event) { r.opts.Observer(e) }

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
