package export

import (
	"time"

	"github.com/t2bot/discord-chat-archiver/discord"
)

// Options describes one export job. Immutable for the job's lifetime. Before
// and After are local wall-clock bounds; nil means unconstrained.
// BaseFilename must already be filesystem-safe - sanitization happens when a
// target is turned into options, not here.
type Options struct {
	ChannelId string
	Before    *time.Time
	After     *time.Time

	ExportJson         bool
	ExportText         bool
	ExportAttachments  bool
	IncludeEditMarkers bool
	IncludePinMarkers  bool
	IncludeReplies     bool

	OutputDirectory string
	BaseFilename    string
}

// Result is produced once, at the end of one successful job. Messages are in
// ascending timestamp order. Paths are empty when the matching artifact was
// not requested.
type Result struct {
	FormattedText    string
	Messages         []*discord.Message
	JsonPath         string
	TextPath         string
	AttachmentsDir   string
	AttachmentsSaved int
}
