package discord

import (
	"encoding/json"
	"net/url"
	"strconv"

	"github.com/patrickmn/go-cache"

	"github.com/t2bot/discord-chat-archiver/common/rcontext"
	"github.com/t2bot/discord-chat-archiver/metrics"
)

// WhoAmI validates the credential by asking the service who it belongs to.
func (c *Client) WhoAmI(ctx rcontext.RequestContext) (*User, error) {
	me := &User{}
	if err := c.doRequest(ctx, "GET", "/users/@me", nil, me); err != nil {
		return nil, err
	}
	return me, nil
}

func (c *Client) ListDirectMessages(ctx rcontext.RequestContext) ([]*Channel, error) {
	channels := make([]*Channel, 0)
	if err := c.doRequest(ctx, "GET", "/users/@me/channels", nil, &channels); err != nil {
		return nil, err
	}
	return channels, nil
}

func (c *Client) ListGuilds(ctx rcontext.RequestContext) ([]*Guild, error) {
	guilds := make([]*Guild, 0)
	if err := c.doRequest(ctx, "GET", "/users/@me/guilds", nil, &guilds); err != nil {
		return nil, err
	}
	return guilds, nil
}

func (c *Client) ListGuildChannels(ctx rcontext.RequestContext, guildId string) ([]*Channel, error) {
	if cached, ok := c.channelCache.Get(guildId); ok {
		metrics.CacheHits.With(map[string]string{"cache": "guild_channels"}).Inc()
		return cached.([]*Channel), nil
	}
	metrics.CacheMisses.With(map[string]string{"cache": "guild_channels"}).Inc()

	channels := make([]*Channel, 0)
	if err := c.doRequest(ctx, "GET", "/guilds/"+guildId+"/channels", nil, &channels); err != nil {
		return nil, err
	}
	c.channelCache.Set(guildId, channels, cache.DefaultExpiration)
	return channels, nil
}

// ListChannelMessages returns up to limit messages, most recent first. When
// beforeId is set the page starts strictly after (older than) that id - this
// is the pagination cursor.
func (c *Client) ListChannelMessages(ctx rcontext.RequestContext, channelId string, beforeId string, limit int) ([]*Message, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	if beforeId != "" {
		params.Set("before", beforeId)
	}

	raw := make([]json.RawMessage, 0)
	if err := c.doRequest(ctx, "GET", "/channels/"+channelId+"/messages", params, &raw); err != nil {
		return nil, err
	}

	messages := make([]*Message, 0, len(raw))
	for _, body := range raw {
		m := &Message{}
		if err := json.Unmarshal(body, m); err != nil {
			return nil, err
		}
		m.Raw = body
		messages = append(messages, m)
	}
	metrics.MessagesFetched.Add(float64(len(messages)))
	metrics.PagesFetched.Inc()
	return messages, nil
}
