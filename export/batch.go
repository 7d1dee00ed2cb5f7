package export

import (
	"errors"
	"fmt"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"

	"github.com/t2bot/discord-chat-archiver/common"
	"github.com/t2bot/discord-chat-archiver/common/rcontext"
	"github.com/t2bot/discord-chat-archiver/discord"
)

// BatchTarget is one row of a batch. StableId is an opaque identity used to
// correlate the item result back to whoever queued it; Label is display-only.
type BatchTarget struct {
	StableId string
	Label    string
	Options  Options
}

// BatchItemResult is recorded for every target that was started - targets
// never started because of cancellation produce no record at all.
type BatchItemResult struct {
	StableId string
	Label    string
	Success  bool
	Error    string
	Result   *Result
}

type BatchResult struct {
	Attempted   int
	Succeeded   int
	Failed      int
	Cancelled   bool
	LastSuccess *Result
	Items       []BatchItemResult
}

type BatchCallbacks struct {
	Status      func(text string)
	Preview     func(text string)
	ItemStarted func(index int, total int, label string)
	Progress    func(attempted int, total int)
}

func (cb BatchCallbacks) emitStatus(text string) {
	if cb.Status != nil {
		cb.Status(text)
	}
}

func (cb BatchCallbacks) emitItemStarted(index int, total int, label string) {
	if cb.ItemStarted != nil {
		cb.ItemStarted(index, total, label)
	}
}

func (cb BatchCallbacks) emitProgress(attempted int, total int) {
	if cb.Progress != nil {
		cb.Progress(attempted, total)
	}
}

// ExecuteBatch runs targets strictly in order, one at a time - the remote
// rate limit is a single shared budget, so there is nothing to gain from
// intra-batch concurrency. Each item gets its own client session. One item's
// failure never aborts its siblings; cancellation stops the batch before the
// next unstarted target.
func ExecuteBatch(ctx rcontext.RequestContext, token string, targets []BatchTarget, clock discord.Clock, cb BatchCallbacks) *BatchResult {
	total := len(targets)
	ctx.Log.Infof("Batch export started. Total items: %d", total)
	cb.emitStatus(fmt.Sprintf("Batch export started: %d items", total))
	cb.emitProgress(0, total)

	batch := &BatchResult{Items: make([]BatchItemResult, 0, total)}

	for i, target := range targets {
		idx := i + 1
		if ctx.Err() != nil {
			batch.Cancelled = true
			ctx.Log.Warnf("Batch export cancelled before item %d/%d. Attempted=%d Succeeded=%d Failed=%d",
				idx, total, batch.Attempted, batch.Succeeded, batch.Failed)
			break
		}

		cb.emitItemStarted(idx, total, target.Label)
		itemCtx := ctx.LogWithFields(logrus.Fields{
			"batch_index": idx,
			"batch_total": total,
		})
		itemCtx.Log.Infof("Batch item started: %s", target.Label)

		result, err := runBatchItem(itemCtx, token, target.Options, clock, cb, idx, total)
		batch.Attempted++
		if err != nil {
			batch.Failed++
			message := itemErrorMessage(itemCtx, target.Label, err)
			batch.Items = append(batch.Items, BatchItemResult{
				StableId: target.StableId,
				Label:    target.Label,
				Success:  false,
				Error:    message,
			})
			cb.emitStatus(fmt.Sprintf("[%d/%d] Failed: %s (%s)", idx, total, target.Label, message))
		} else {
			batch.Succeeded++
			batch.LastSuccess = result
			batch.Items = append(batch.Items, BatchItemResult{
				StableId: target.StableId,
				Label:    target.Label,
				Success:  true,
				Result:   result,
			})
			itemCtx.Log.Infof("Batch item completed: %s", target.Label)
		}

		cb.emitProgress(batch.Attempted, total)
	}

	if batch.Cancelled {
		ctx.Log.Warnf("Batch export cancelled. Attempted=%d Succeeded=%d Failed=%d Total=%d",
			batch.Attempted, batch.Succeeded, batch.Failed, total)
		cb.emitStatus(fmt.Sprintf("Batch export cancelled. Attempted %d/%d, succeeded %d, failed %d",
			batch.Attempted, total, batch.Succeeded, batch.Failed))
	} else {
		ctx.Log.Infof("Batch export completed. Attempted=%d Succeeded=%d Failed=%d Total=%d",
			batch.Attempted, batch.Succeeded, batch.Failed, total)
		cb.emitStatus(fmt.Sprintf("Batch export complete. Attempted %d/%d, succeeded %d, failed %d",
			batch.Attempted, total, batch.Succeeded, batch.Failed))
	}

	return batch
}

func runBatchItem(ctx rcontext.RequestContext, token string, opts Options, clock discord.Clock, cb BatchCallbacks, idx int, total int) (*Result, error) {
	client, err := discord.NewClient(ctx, token, clock)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	return Execute(ctx, client, opts, Callbacks{
		Status: func(text string) {
			cb.emitStatus(fmt.Sprintf("[%d/%d] %s", idx, total, text))
		},
		Preview: cb.Preview,
	})
}

func itemErrorMessage(ctx rcontext.RequestContext, label string, err error) string {
	apiErr := &discord.ErrorResponse{}
	netErr := &discord.NetworkError{}
	if errors.Is(err, common.ErrCancelled) || errors.Is(err, common.ErrTokenEmpty) ||
		errors.As(err, &apiErr) || errors.As(err, &netErr) {
		ctx.Log.Errorf("Batch item failed: %s | %v", label, err)
		return err.Error()
	}

	ctx.Log.Errorf("Unexpected batch error on item: %s | %v", label, err)
	sentry.CaptureException(err)
	return "Unexpected error"
}
