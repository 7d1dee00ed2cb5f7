package tasks

import (
	"context"
	"errors"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"

	"github.com/t2bot/discord-chat-archiver/common"
	"github.com/t2bot/discord-chat-archiver/common/rcontext"
	"github.com/t2bot/discord-chat-archiver/discord"
	"github.com/t2bot/discord-chat-archiver/export"
	"github.com/t2bot/discord-chat-archiver/util"
	"github.com/t2bot/discord-chat-archiver/util/ids"
)

// Task is one background job: a single export or a whole batch. Consumers
// read Events() until it closes; Cancel() is cooperative and takes effect at
// the pipeline's checkpoints.
type Task struct {
	JobId  string
	events chan Event
	cancel context.CancelFunc
}

func (t *Task) Events() <-chan Event {
	return t.events
}

func (t *Task) Cancel() {
	t.cancel()
}

func newTask(ctx rcontext.RequestContext) (*Task, rcontext.RequestContext) {
	jobId, err := ids.NewJobId()
	if err != nil {
		// Exceptionally unlikely; fall back to a non-correlatable job.
		logrus.Warn("Could not generate a job id: ", err)
		jobId = "unknown"
	}

	jobCtx, cancel := context.WithCancel(ctx.Context)
	ctx = ctx.WithContext(jobCtx).LogWithFields(logrus.Fields{"job_id": jobId})

	return &Task{
		JobId:  jobId,
		events: make(chan Event, 16),
		cancel: cancel,
	}, ctx
}

// RunExport starts one export job on its own goroutine. The credential and
// client session are exclusive to the job and released on every exit path.
func RunExport(ctx rcontext.RequestContext, token string, opts export.Options) *Task {
	t, jobCtx := newTask(ctx)

	go func() {
		defer close(t.events)
		defer recoverToErrorEvent(jobCtx, t)

		client, err := discord.NewClient(jobCtx, token, nil)
		if err != nil {
			t.events <- ErrorEvent{Message: err.Error()}
			return
		}
		defer client.Close()

		result, err := export.Execute(jobCtx, client, opts, export.Callbacks{
			Status:  func(text string) { t.events <- StatusEvent{Text: text} },
			Preview: func(text string) { t.events <- PreviewEvent{Text: text} },
		})
		if err != nil {
			t.events <- ErrorEvent{Message: surfaceError(jobCtx, err)}
			return
		}
		t.events <- ResultEvent{Result: result}
	}()

	return t
}

// RunBatch starts a batch job on its own goroutine. The batch itself always
// produces a BatchResultEvent, even when every item failed; ErrorEvent is
// reserved for failures of the batch machinery itself.
func RunBatch(ctx rcontext.RequestContext, token string, targets []export.BatchTarget) *Task {
	t, jobCtx := newTask(ctx)

	go func() {
		defer close(t.events)
		defer recoverToErrorEvent(jobCtx, t)

		result := export.ExecuteBatch(jobCtx, token, targets, nil, export.BatchCallbacks{
			Status:  func(text string) { t.events <- StatusEvent{Text: text} },
			Preview: func(text string) { t.events <- PreviewEvent{Text: text} },
			ItemStarted: func(index int, total int, label string) {
				t.events <- ItemStartedEvent{Index: index, Total: total, Label: label}
			},
			Progress: func(attempted int, total int) {
				t.events <- ProgressEvent{Attempted: attempted, Total: total}
			},
		})
		t.events <- BatchResultEvent{Result: result}
	}()

	return t
}

// surfaceError turns a pipeline error into the message shown to the caller.
// API, network, and cancellation errors carry their own message; anything
// else is unexpected, gets full diagnostics logged, and surfaces generically.
func surfaceError(ctx rcontext.RequestContext, err error) string {
	if errors.Is(err, common.ErrCancelled) {
		ctx.Log.Info("Export cancelled")
		return err.Error()
	}
	apiErr := &discord.ErrorResponse{}
	netErr := &discord.NetworkError{}
	if errors.As(err, &apiErr) || errors.As(err, &netErr) || errors.Is(err, common.ErrTokenEmpty) {
		ctx.Log.Errorf("Export failed: %v", err)
		return err.Error()
	}

	ctx.Log.Errorf("Unexpected export error: %v", err)
	sentry.CaptureException(err)
	return "Unexpected error"
}

func recoverToErrorEvent(ctx rcontext.RequestContext, t *Task) {
	if r := recover(); r != nil {
		err := util.PanicToError(r)
		ctx.Log.Errorf("Panic in export task: %v", err)
		sentry.CaptureException(err)
		t.events <- ErrorEvent{Message: "Unexpected error"}
	}
}
