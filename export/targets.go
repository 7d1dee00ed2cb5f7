package export

import (
	"fmt"

	"github.com/t2bot/discord-chat-archiver/util"
)

// ExportTarget identifies a chat that can be exported. The two variants carry
// the naming information their kind actually has, and each produces its own
// output filename convention.
type ExportTarget interface {
	ChannelId() string
	DisplayName() string
	BaseFilename() string
}

type DirectMessageTarget struct {
	Channel   string
	Recipient string
}

func (t DirectMessageTarget) ChannelId() string {
	return t.Channel
}

func (t DirectMessageTarget) DisplayName() string {
	return t.Recipient
}

func (t DirectMessageTarget) BaseFilename() string {
	return "dm_" + util.SanitizePathSegment(t.Recipient)
}

type GuildChannelTarget struct {
	Channel     string
	GuildName   string
	ChannelName string
}

func (t GuildChannelTarget) ChannelId() string {
	return t.Channel
}

func (t GuildChannelTarget) DisplayName() string {
	return fmt.Sprintf("%s #%s", t.GuildName, t.ChannelName)
}

func (t GuildChannelTarget) BaseFilename() string {
	return util.SanitizePathSegment(t.GuildName) + "_" + util.SanitizePathSegment(t.ChannelName)
}
