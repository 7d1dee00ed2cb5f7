package discord

import (
	"encoding/json"
	"sort"
)

const (
	ChannelTypeGuildText = 0
	ChannelTypeDM        = 1
	ChannelTypeGroupDM   = 3
	ChannelTypeGuildNews = 5
)

type User struct {
	Id            string  `json:"id"`
	Username      string  `json:"username"`
	Discriminator *string `json:"discriminator"`
}

type Member struct {
	Nick string `json:"nick"`
}

type Attachment struct {
	Id       string `json:"id"`
	Filename string `json:"filename"`
	Url      string `json:"url"`
	Size     int64  `json:"size"`
}

type MessageReference struct {
	MessageId string `json:"message_id"`
}

// Message is one record as received from the API. Raw holds the undecoded
// source bytes so the JSON artifact can preserve the service's key order.
type Message struct {
	Id                string            `json:"id"`
	Timestamp         string            `json:"timestamp"`
	EditedTimestamp   string            `json:"edited_timestamp"`
	Content           string            `json:"content"`
	Pinned            bool              `json:"pinned"`
	Author            *User             `json:"author"`
	Member            *Member           `json:"member"`
	Attachments       []*Attachment     `json:"attachments"`
	MessageReference  *MessageReference `json:"message_reference"`
	ReferencedMessage *Message          `json:"referenced_message"`

	Raw json.RawMessage `json:"-"`
}

type Channel struct {
	Id         string  `json:"id"`
	Type       int     `json:"type"`
	Name       string  `json:"name"`
	Position   int     `json:"position"`
	Recipients []*User `json:"recipients"`
}

type Guild struct {
	Id   string `json:"id"`
	Name string `json:"name"`
}

// TextChannels filters a guild's channel list down to the kinds we can export
// and orders them the way the client presents them.
func TextChannels(channels []*Channel) []*Channel {
	filtered := make([]*Channel, 0)
	for _, ch := range channels {
		if ch.Type == ChannelTypeGuildText || ch.Type == ChannelTypeGuildNews {
			filtered = append(filtered, ch)
		}
	}
	sort.SliceStable(filtered, func(i int, j int) bool {
		return filtered[i].Position < filtered[j].Position
	})
	return filtered
}
