package discord

import (
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/url"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/t2bot/discord-chat-archiver/common"
	"github.com/t2bot/discord-chat-archiver/common/rcontext"
	"github.com/t2bot/discord-chat-archiver/metrics"
)

const userAgent = "discord-chat-archiver (+https://github.com/t2bot/discord-chat-archiver)"
const defaultRetryAfter = 1 * time.Second

// Clock abstracts the rate-limit backoff sleep so tests can run it
// deterministically.
type Clock interface {
	Sleep(d time.Duration)
}

type systemClock struct{}

func (systemClock) Sleep(d time.Duration) {
	time.Sleep(d)
}

// Client is one authenticated session against the messaging API. It is owned
// by exactly one job at a time and must be closed on every exit path.
type Client struct {
	baseUrl      string
	token        string
	http         *http.Client
	clock        Clock
	channelCache *cache.Cache
}

func NewClient(ctx rcontext.RequestContext, token string, clock Clock) (*Client, error) {
	if token == "" {
		return nil, common.ErrTokenEmpty
	}
	if clock == nil {
		clock = systemClock{}
	}
	timeout := time.Duration(ctx.Config.Api.TimeoutSeconds) * time.Second
	return &Client{
		baseUrl: ctx.Config.Api.BaseUrl,
		token:   token,
		http: &http.Client{
			Timeout: timeout,
		},
		clock:        clock,
		channelCache: cache.New(1*time.Minute, 2*time.Minute),
	}, nil
}

func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

type rateLimitResponse struct {
	RetryAfter float64 `json:"retry_after"`
}

func parseRetryAfter(body []byte) time.Duration {
	parsed := &rateLimitResponse{}
	if err := json.Unmarshal(body, parsed); err != nil || parsed.RetryAfter <= 0 {
		return defaultRetryAfter
	}
	return time.Duration(parsed.RetryAfter * float64(time.Second))
}

// doRequest performs one API call. Rate-limit responses are retried forever
// with the server-suggested wait (the service is authoritative about its own
// backoff); the job's context is checked between retries so cancellation
// doesn't have to interrupt a wait already in progress. Everything else
// returns on the first attempt.
func (c *Client) doRequest(ctx rcontext.RequestContext, method string, path string, params url.Values, result interface{}) error {
	target := c.baseUrl + path
	if len(params) > 0 {
		target = target + "?" + params.Encode()
	}
	ctx.Log.Debugf("Calling %s %s", method, path)

	for {
		if ctx.Err() != nil {
			return common.ErrCancelled
		}

		req, err := http.NewRequest(method, target, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", c.token)
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept", "application/json")

		res, err := c.http.Do(req)
		if err != nil {
			return &NetworkError{Cause: err}
		}
		contents, err := ioutil.ReadAll(res.Body)
		_ = res.Body.Close()
		if err != nil {
			return &NetworkError{Cause: err}
		}

		if res.StatusCode == http.StatusTooManyRequests {
			retryAfter := parseRetryAfter(contents)
			ctx.Log.Warnf("Rate limited on %s - retrying in %s", path, retryAfter)
			metrics.RateLimitWaits.Inc()
			c.clock.Sleep(retryAfter)
			continue
		}
		if res.StatusCode == http.StatusNoContent {
			return nil
		}
		if res.StatusCode >= 200 && res.StatusCode < 300 {
			if result != nil && len(contents) > 0 {
				if err = json.Unmarshal(contents, result); err != nil {
					return err
				}
			}
			return nil
		}

		return newErrorResponse(res.StatusCode, contents)
	}
}
