package export

import (
	"errors"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/t2bot/discord-chat-archiver/common"
	"github.com/t2bot/discord-chat-archiver/common/rcontext"
	"github.com/t2bot/discord-chat-archiver/discord"
	"github.com/t2bot/discord-chat-archiver/metrics"
	"github.com/t2bot/discord-chat-archiver/util"
)

// Preview callbacks fire every this many formatted blocks, plus once with the
// complete text at the end.
const previewInterval = 200

// Callbacks carry progress upward to whoever started the job. All fields are
// optional and one-way.
type Callbacks struct {
	Status  func(text string)
	Preview func(text string)
}

func (cb Callbacks) emitStatus(text string) {
	if cb.Status != nil {
		cb.Status(text)
	}
}

func (cb Callbacks) emitPreview(text string) {
	if cb.Preview != nil {
		cb.Preview(text)
	}
}

type fetchedMessage struct {
	msg *discord.Message
	ts  time.Time
}

func checkpoint(ctx rcontext.RequestContext) error {
	select {
	case <-ctx.Done():
		return common.ErrCancelled
	default:
		return nil
	}
}

// Execute runs one export job: validate credential, fetch pages under the
// time-window filter, sort ascending, format, persist. Cancellation is polled
// at the top of each page fetch, per formatted message, and before each
// persistence step; artifacts persisted before a cancellation checkpoint are
// kept, never rolled back.
func Execute(ctx rcontext.RequestContext, client *discord.Client, opts Options, cb Callbacks) (*Result, error) {
	result, err := execute(ctx, client, opts, cb)
	outcome := "success"
	if errors.Is(err, common.ErrCancelled) {
		outcome = "cancelled"
	} else if err != nil {
		outcome = "failed"
	}
	metrics.ExportsFinished.With(map[string]string{"outcome": outcome}).Inc()
	return result, err
}

func execute(ctx rcontext.RequestContext, client *discord.Client, opts Options, cb Callbacks) (*Result, error) {
	cb.emitStatus("Validating token...")
	ctx.Log.Info("Validating token")
	if _, err := client.WhoAmI(ctx); err != nil {
		return nil, err
	}
	if err := checkpoint(ctx); err != nil {
		return nil, err
	}

	fetched, err := fetchWindow(ctx, client, opts, cb)
	if err != nil {
		return nil, err
	}

	cb.emitStatus("Formatting output...")
	ctx.Log.Infof("Formatting %s messages", humanize.Comma(int64(len(fetched))))

	messages := make([]*discord.Message, 0, len(fetched))
	// Pagination order is newest-first; the artifacts want oldest-first. The
	// sort must be stable so same-timestamp messages keep their original
	// relative order.
	sort.SliceStable(fetched, func(i int, j int) bool {
		return fetched[i].ts.Before(fetched[j].ts)
	})
	for _, fm := range fetched {
		messages = append(messages, fm.msg)
	}

	lookup := BuildReplyLookup(ctx, messages)

	blocks := make([]string, 0, len(messages))
	for _, m := range messages {
		if err := checkpoint(ctx); err != nil {
			return nil, err
		}
		blocks = append(blocks, FormatMessage(ctx, m, lookup, opts.IncludeEditMarkers, opts.IncludePinMarkers, opts.IncludeReplies))
		if len(blocks)%previewInterval == 0 {
			cb.emitPreview(strings.Join(blocks, "\n\n"))
			ctx.Log.Debugf("Formatted %d messages...", len(blocks))
		}
	}
	formattedText := strings.Join(blocks, "\n\n")
	cb.emitPreview(formattedText)

	result := &Result{
		FormattedText: formattedText,
		Messages:      messages,
	}

	// Persist order is fixed: JSON, then text, then attachments. Artifacts
	// written before a cancellation checkpoint stay valid on their own.
	if opts.ExportJson {
		if err := checkpoint(ctx); err != nil {
			return nil, err
		}
		path := filepath.Join(opts.OutputDirectory, opts.BaseFilename+".json")
		if err := SaveJson(messages, path); err != nil {
			return nil, err
		}
		result.JsonPath = path
	}

	if opts.ExportText {
		if err := checkpoint(ctx); err != nil {
			return nil, err
		}
		path := filepath.Join(opts.OutputDirectory, opts.BaseFilename+".txt")
		if err := SaveText(formattedText, path); err != nil {
			return nil, err
		}
		result.TextPath = path
	}

	if opts.ExportAttachments {
		if err := checkpoint(ctx); err != nil {
			return nil, err
		}
		dir := filepath.Join(opts.OutputDirectory, opts.BaseFilename+"_attachments")
		saved, savedBytes, err := DownloadAttachments(ctx, messages, dir)
		if err != nil {
			return nil, err
		}
		result.AttachmentsDir = dir
		result.AttachmentsSaved = saved
		ctx.Log.Infof("Saved %d attachments (%s)", saved, humanize.Bytes(uint64(savedBytes)))
	}

	cb.emitStatus("Export complete.")
	ctx.Log.Infof("Export finished. JSON=%s TXT=%s Attachments=%s",
		orNone(result.JsonPath), orNone(result.TextPath), orNone(result.AttachmentsDir))
	return result, nil
}

func fetchWindow(ctx rcontext.RequestContext, client *discord.Client, opts Options, cb Callbacks) ([]fetchedMessage, error) {
	cb.emitStatus("Fetching messages...")
	ctx.Log.Infof("Fetching messages for channel %s", opts.ChannelId)

	pageSize := ctx.Config.Api.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 100
	}

	fetched := make([]fetchedMessage, 0)
	beforeId := ""
	stopAfterPage := false

	for {
		if err := checkpoint(ctx); err != nil {
			return nil, err
		}
		page, err := client.ListChannelMessages(ctx, opts.ChannelId, beforeId, pageSize)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}

		for _, m := range page {
			ts, err := util.ParseDiscordTimestamp(m.Timestamp)
			if err != nil {
				return nil, err
			}
			if opts.Before != nil && ts.After(*opts.Before) {
				// Too new, but older messages are still below - keep paging.
				continue
			}
			if opts.After != nil && ts.Before(*opts.After) {
				// Pages walk backward in time, so everything after this page
				// is older still. Finish the page (it may straddle the
				// bound), then stop.
				stopAfterPage = true
				continue
			}
			fetched = append(fetched, fetchedMessage{msg: m, ts: ts})
		}

		beforeId = page[len(page)-1].Id
		if stopAfterPage {
			break
		}
	}

	return fetched, nil
}

func orNone(path string) string {
	if path == "" {
		return "none"
	}
	return path
}
