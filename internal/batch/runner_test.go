package batch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheetmail/internal/logger"
	"sheetmail/internal/model"
	"sheetmail/internal/sheets"
)

type fakeTable struct {
	values    [][]string
	getErr    error
	updateErr error
	updates   []update
}

type update struct{ cell, value string }

func (f *fakeTable) Values(context.Context, string, string) ([][]string, error) {
	return f.values, f.getErr
}

func (f *fakeTable) UpdateValue(_ context.Context, _, cell, value string) error {
	f.updates = append(f.updates, update{cell, value})
	return f.updateErr
}

type fakeSender struct {
	fail  map[string]error
	calls []string
	// onSend runs after each send; tests use it to cancel mid-run.
	onSend func()
}

func (f *fakeSender) Send(_ context.Context, r model.Recipient) (model.Delivery, error) {
	f.calls = append(f.calls, r.Email)
	if f.onSend != nil {
		f.onSend()
	}
	if err := f.fail[r.Email]; err != nil {
		return model.Delivery{}, err
	}
	return model.Delivery{TrackID: "t-" + r.Email, MessageID: "m-" + r.Email, Subject: "Hi"}, nil
}

type fakeJournal struct {
	recs    []model.SendRecord
	lastRun time.Time
}

func (f *fakeJournal) RecordSend(_ context.Context, rec model.SendRecord) error {
	f.recs = append(f.recs, rec)
	return nil
}

func (f *fakeJournal) SetLastRun(_ context.Context, at time.Time) error {
	f.lastRun = at
	return nil
}

type harness struct {
	table  *fakeTable
	sender *fakeSender
	sleeps []time.Duration
	events []Event
	runner *Runner
}

func newHarness(t *testing.T, rangeName string, values [][]string, opts Options) *harness {
	t.Helper()
	h := &harness{table: &fakeTable{values: values}, sender: &fakeSender{}}
	auth := AuthenticatorFunc(func(context.Context) (*Pipeline, error) {
		return &Pipeline{
			Source:   sheets.NewSource(h.table, "sheet-id", rangeName, logger.Nop()),
			Notifier: h.sender,
			Writer:   sheets.NewWriter(h.table, "sheet-id", rangeName),
		}, nil
	})
	if opts.Sleep == nil {
		opts.Sleep = func(_ context.Context, d time.Duration) error {
			h.sleeps = append(h.sleeps, d)
			return nil
		}
	}
	opts.Observer = func(e Event) { h.events = append(h.events, e) }
	h.runner = NewRunner(auth, opts, logger.Nop())
	return h
}

func TestRun_OnlyPendingRowsAreSent(t *testing.T) {
	h := newHarness(t, "Sheet1!A:C", [][]string{
		{"Name", "Email", "Status"},
		{"Ana", "a@x.com", ""},
		{"Bo", "b@x.com", "Completed"},
		{"Cy", "c@x.com", " PENDING "},
		{"Di", "d@x.com", "Error"},
		{"Ed", "e@x.com"},
	}, Options{Delay: time.Second})

	sum, err := h.runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"a@x.com", "c@x.com", "e@x.com"}, h.sender.calls)
	assert.Equal(t, []update{
		{"Sheet1!C2", "Completed"},
		{"Sheet1!C4", "Completed"},
		{"Sheet1!C6", "Completed"},
	}, h.table.updates)
	assert.Equal(t, MsgComplete, sum.Message)
	assert.Equal(t, 5, sum.Rows)
	assert.Equal(t, 3, sum.Pending)
	assert.Equal(t, 3, sum.Completed)
	assert.Zero(t, sum.Failed)
}

func TestRun_SingleRowScenario(t *testing.T) {
	h := newHarness(t, "Sheet1!A:C", [][]string{
		{"Name", "Email", "Status"},
		{"Ana", "a@x.com", ""},
	}, Options{Delay: DefaultDelay})

	sum, err := h.runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []update{{"Sheet1!C2", "Completed"}}, h.table.updates)
	assert.Empty(t, h.sleeps, "no delay after the last row")
	assert.Equal(t, "Email automation run complete. 1 sent, 0 failed", sum.String())
}

func TestRun_SendFailureMarksErrorAndContinues(t *testing.T) {
	h := newHarness(t, "Sheet1!A:C", [][]string{
		{"Name", "Email", "Status"},
		{"Ana", "a@x.com", ""},
		{"Bo", "b@x.com", ""},
		{"Cy", "c@x.com", ""},
	}, Options{Delay: 2 * time.Second})
	h.sender.fail = map[string]error{"b@x.com": errors.Join(model.ErrSend, errors.New("boom"))}

	sum, err := h.runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"a@x.com", "b@x.com", "c@x.com"}, h.sender.calls)
	assert.Equal(t, []update{
		{"Sheet1!C2", "Completed"},
		{"Sheet1!C3", "Error"},
		{"Sheet1!C4", "Completed"},
	}, h.table.updates)
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, h.sleeps)
	assert.Equal(t, 2, sum.Completed)
	assert.Equal(t, 1, sum.Failed)
}

func TestRun_Idempotent(t *testing.T) {
	h := newHarness(t, "Sheet1!A:C", [][]string{
		{"Name", "Email", "Status"},
		{"Ana", "a@x.com", "Completed"},
		{"Bo", "b@x.com", "completed"},
	}, Options{})

	sum, err := h.runner.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, h.sender.calls)
	assert.Empty(t, h.table.updates)
	assert.Equal(t, MsgNoPending, sum.Message)
	assert.Equal(t, MsgNoPending, sum.String())
}

func TestRun_EmptySheet(t *testing.T) {
	h := newHarness(t, "Sheet1!A:C", nil, Options{})

	sum, err := h.runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, MsgNoPending, sum.Message)
	assert.Zero(t, sum.Rows)
	assert.Empty(t, h.sender.calls)
}

func TestRun_StatusColumnAppendedWhenMissing(t *testing.T) {
	h := newHarness(t, "Leads!B3:C", [][]string{
		{"name", "EMAIL"},
		{"Ana", "a@x.com"},
		{"Bo", "b@x.com"},
	}, Options{})

	_, err := h.runner.Run(context.Background())
	require.NoError(t, err)
	// Status lands in the column after the last header, offset by the range.
	assert.Equal(t, []update{
		{"Leads!D4", "Completed"},
		{"Leads!D5", "Completed"},
	}, h.table.updates)
}

func TestRun_StatusWriteFailureDoesNotAbort(t *testing.T) {
	h := newHarness(t, "Sheet1!A:C", [][]string{
		{"Name", "Email", "Status"},
		{"Ana", "a@x.com", ""},
		{"Bo", "b@x.com", ""},
	}, Options{})
	h.table.updateErr = errors.New("quota")

	sum, err := h.runner.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, h.sender.calls, 2)
	assert.Len(t, h.table.updates, 2, "one write attempt per row, never retried")
	assert.Equal(t, 2, sum.WriteFailures)
}

func TestRun_AuthFailureAborts(t *testing.T) {
	authErr := errors.Join(model.ErrNoCredentials, errors.New("no token"))
	r := NewRunner(AuthenticatorFunc(func(context.Context) (*Pipeline, error) {
		return nil, authErr
	}), Options{}, logger.Nop())

	_, err := r.Run(context.Background())
	require.ErrorIs(t, err, model.ErrNoCredentials)
	assert.Equal(t, Abort, Policy(err))
}

func TestRun_FetchFailureAborts(t *testing.T) {
	h := newHarness(t, "Sheet1!A:C", nil, Options{})
	h.table.getErr = errors.New("403")

	_, err := h.runner.Run(context.Background())
	require.ErrorIs(t, err, model.ErrFetch)
	assert.Empty(t, h.sender.calls)
}

func TestRun_CancelBetweenRows(t *testing.T) {
	h := newHarness(t, "Sheet1!A:C", [][]string{
		{"Name", "Email", "Status"},
		{"Ana", "a@x.com", ""},
		{"Bo", "b@x.com", ""},
		{"Cy", "c@x.com", ""},
	}, Options{Delay: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.sender.onSend = cancel
	h.runner.opts.Sleep = sleep

	sum, err := h.runner.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"a@x.com"}, h.sender.calls)
	// The row in flight still gets its status.
	assert.Equal(t, []update{{"Sheet1!C2", "Completed"}}, h.table.updates)
	assert.Equal(t, 1, sum.Completed)
}

func TestRun_JournalAndEvents(t *testing.T) {
	j := &fakeJournal{}
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	h := newHarness(t, "Sheet1!A:C", [][]string{
		{"Name", "Email", "Status"},
		{"Ana", "a@x.com", ""},
		{"Bo", "bad", ""},
	}, Options{Journal: j, Now: func() time.Time { return now }})
	h.sender.fail = map[string]error{"bad": model.ErrInvalidRecipient}

	sum, err := h.runner.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, j.recs, 2)
	assert.Equal(t, model.SendRecord{
		RunID: sum.RunID, TrackID: "t-a@x.com", RowIndex: 0, Recipient: "a@x.com",
		Subject: "Hi", MessageID: "m-a@x.com", Status: model.StatusCompleted, Cell: "Sheet1!C2", SentAt: now,
	}, j.recs[0])
	assert.Equal(t, model.StatusError, j.recs[1].Status)
	assert.Equal(t, model.ErrInvalidRecipient.Error(), j.recs[1].Error)
	assert.Equal(t, now, j.lastRun)

	var states []State
	for _, e := range h.events {
		states = append(states, e.State)
	}
	assert.Equal(t, []State{
		StateInit, StateAuthenticated, StateFetched,
		StateSending, StateSending, StateSending, StateSending,
		StateDone,
	}, states)
	last := h.events[len(h.events)-1]
	require.NotNil(t, last.Summary)
	assert.Equal(t, MsgComplete, last.Summary.Message)
}

func TestPolicy(t *testing.T) {
	assert.Equal(t, Abort, Policy(errors.Join(model.ErrFetch, errors.New("x"))))
	assert.Equal(t, Abort, Policy(model.ErrNoCredentials))
	for _, err := range []error{
		model.ErrSend, model.ErrRender, model.ErrInvalidRecipient, model.ErrStatusWrite,
		model.ErrStatusColumn, model.ErrTrackerRegister, model.ErrAttachment, errors.New("other"),
	} {
		assert.Equal(t, Continue, Policy(err), err.Error())
	}
}
