package export

import (
	"strings"

	"github.com/t2bot/discord-chat-archiver/common/rcontext"
	"github.com/t2bot/discord-chat-archiver/discord"
	"github.com/t2bot/discord-chat-archiver/util"
)

const unknownAuthorLabel = "Unknown"
const unresolvedReplyAuthor = "Unknown User"
const unresolvedReplyContent = "Original message not found"
const attachmentsPlaceholder = "[Attachments]"
const noContentPlaceholder = "[No content]"

// ReplySummary is how a referenced message is described when quoted in a
// reply line.
type ReplySummary struct {
	Author  string
	Content string
}

// ReplyLookup maps message id to its summary. Built once per job from the
// retained message set and discarded after formatting.
type ReplyLookup map[string]ReplySummary

func authorLabel(author *discord.User) string {
	if author == nil {
		return unknownAuthorLabel
	}
	username := author.Username
	if username == "" {
		username = unknownAuthorLabel
	}
	if author.Discriminator == nil {
		return username
	}
	return username + "#" + *author.Discriminator
}

func messageSummary(m *discord.Message) string {
	if m.Content != "" {
		return m.Content
	}
	if len(m.Attachments) > 0 {
		return attachmentsPlaceholder
	}
	return noContentPlaceholder
}

// BuildReplyLookup derives the per-job lookup table. Messages without author
// data are tolerated (labelled as unknown) and logged, never fatal.
func BuildReplyLookup(ctx rcontext.RequestContext, messages []*discord.Message) ReplyLookup {
	lookup := make(ReplyLookup, len(messages))
	for _, m := range messages {
		if m.Author == nil {
			ctx.Log.Warnf("Message %s is missing author data", m.Id)
		}
		lookup[m.Id] = ReplySummary{
			Author:  authorLabel(m.Author),
			Content: messageSummary(m),
		}
	}
	return lookup
}

// FormatMessage renders one transcript block. It never fails: unresolved
// reply references and unparseable timestamps degrade to fixed placeholders
// with a logged warning.
func FormatMessage(ctx rcontext.RequestContext, m *discord.Message, lookup ReplyLookup, includeEdits bool, includePins bool, includeReplies bool) string {
	label := authorLabel(m.Author)
	if m.Member != nil && m.Member.Nick != "" {
		label = label + " (" + m.Member.Nick + ")"
	}

	header := label + " " + formatTimestamp(ctx, m.Id, m.Timestamp)
	if includePins && m.Pinned {
		header = "[PINNED] " + header
	}
	if includeEdits && m.EditedTimestamp != "" {
		header = header + " (edited at " + formatTimestamp(ctx, m.Id, m.EditedTimestamp) + ")"
	}

	lines := []string{header}

	if includeReplies && m.MessageReference != nil {
		refAuthor := unresolvedReplyAuthor
		refContent := unresolvedReplyContent
		if ref := m.ReferencedMessage; ref != nil {
			refAuthor = authorLabel(ref.Author)
			refContent = messageSummary(ref)
		} else if summary, ok := lookup[m.MessageReference.MessageId]; ok {
			refAuthor = summary.Author
			refContent = summary.Content
		} else {
			ctx.Log.Warnf("Reply reference not found for message %s", m.Id)
		}
		lines = append(lines, "(Replying to "+refAuthor+": "+refContent+")")
	}

	lines = append(lines, messageSummary(m))
	return strings.Join(lines, "\n")
}

func formatTimestamp(ctx rcontext.RequestContext, messageId string, value string) string {
	ts, err := util.ParseDiscordTimestamp(value)
	if err != nil {
		ctx.Log.Warnf("Unparseable timestamp on message %s: %v", messageId, err)
		return value
	}
	return util.FormatMessageTimestamp(ts)
}
