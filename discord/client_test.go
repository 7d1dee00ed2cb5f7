package discord

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/t2bot/discord-chat-archiver/common"
	"github.com/t2bot/discord-chat-archiver/common/config"
	"github.com/t2bot/discord-chat-archiver/common/rcontext"
)

type fakeClock struct {
	sleeps []time.Duration
}

func (c *fakeClock) Sleep(d time.Duration) {
	c.sleeps = append(c.sleeps, d)
}

func testContext(baseUrl string) rcontext.RequestContext {
	cfg := *config.NewDefaultConfig()
	cfg.Api.BaseUrl = baseUrl
	return rcontext.RequestContext{
		Context: context.Background(),
		Log:     logrus.WithField("test", true),
		Config:  cfg,
	}
}

func TestNewClientRequiresToken(t *testing.T) {
	_, err := NewClient(testContext("http://localhost"), "", nil)
	assert.ErrorIs(t, err, common.ErrTokenEmpty)
}

func TestRateLimitedRequestRetriesAfterServerHint(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"retry_after": 2.5}`))
			return
		}
		_, _ = w.Write([]byte(`{"id": "1", "username": "tester"}`))
	}))
	defer srv.Close()

	clock := &fakeClock{}
	client, err := NewClient(testContext(srv.URL), "t0ken", clock)
	require.NoError(t, err)
	defer client.Close()

	me, err := client.WhoAmI(testContext(srv.URL))
	require.NoError(t, err)
	assert.Equal(t, "tester", me.Username)
	assert.Equal(t, 2, calls)
	require.Len(t, clock.sleeps, 1)
	assert.Equal(t, 2500*time.Millisecond, clock.sleeps[0])
}

func TestRateLimitedRequestDefaultsToOneSecond(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`not json`))
			return
		}
		_, _ = w.Write([]byte(`{"id": "1", "username": "tester"}`))
	}))
	defer srv.Close()

	clock := &fakeClock{}
	client, err := NewClient(testContext(srv.URL), "t0ken", clock)
	require.NoError(t, err)
	defer client.Close()

	_, err = client.WhoAmI(testContext(srv.URL))
	require.NoError(t, err)
	require.Len(t, clock.sleeps, 1)
	assert.Equal(t, 1*time.Second, clock.sleeps[0])
}

func TestApiErrorCarriesStatusAndDecodedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message": "Missing Access", "code": 50001}`))
	}))
	defer srv.Close()

	client, err := NewClient(testContext(srv.URL), "t0ken", &fakeClock{})
	require.NoError(t, err)
	defer client.Close()

	_, err = client.WhoAmI(testContext(srv.URL))
	require.Error(t, err)

	var apiErr *ErrorResponse
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, 50001, apiErr.Code)
	assert.Contains(t, apiErr.Error(), "Missing Access")
}

func TestApiErrorFallsBackToRawBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`upstream exploded`))
	}))
	defer srv.Close()

	client, err := NewClient(testContext(srv.URL), "t0ken", &fakeClock{})
	require.NoError(t, err)
	defer client.Close()

	_, err = client.WhoAmI(testContext(srv.URL))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream exploded")
}

func TestTransportErrorsAreNotRetried(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing is listening anymore

	clock := &fakeClock{}
	client, err := NewClient(testContext(srv.URL), "t0ken", clock)
	require.NoError(t, err)
	defer client.Close()

	_, err = client.WhoAmI(testContext(srv.URL))
	require.Error(t, err)

	var netErr *NetworkError
	assert.ErrorAs(t, err, &netErr)
	assert.Empty(t, clock.sleeps)
}

func TestNoContentLeavesResultUntouched(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client, err := NewClient(testContext(srv.URL), "t0ken", &fakeClock{})
	require.NoError(t, err)
	defer client.Close()

	channels, err := client.ListDirectMessages(testContext(srv.URL))
	require.NoError(t, err)
	assert.Empty(t, channels)
}

func TestCancelledContextShortCircuits(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	ctx := testContext(srv.URL)
	cancelled, cancel := context.WithCancel(ctx.Context)
	cancel()
	ctx = ctx.WithContext(cancelled)

	client, err := NewClient(ctx, "t0ken", &fakeClock{})
	require.NoError(t, err)
	defer client.Close()

	_, err = client.WhoAmI(ctx)
	assert.ErrorIs(t, err, common.ErrCancelled)
	assert.Equal(t, 0, calls)
}

func TestListChannelMessagesSetsCursorAndPreservesRawOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/channels/42/messages", r.URL.Path)
		assert.Equal(t, "100", r.URL.Query().Get("limit"))
		assert.Equal(t, "999", r.URL.Query().Get("before"))
		_, _ = w.Write([]byte(`[{"zebra": true, "id": "998", "timestamp": "2023-01-01T00:00:00Z", "content": "hi"}]`))
	}))
	defer srv.Close()

	client, err := NewClient(testContext(srv.URL), "t0ken", &fakeClock{})
	require.NoError(t, err)
	defer client.Close()

	messages, err := client.ListChannelMessages(testContext(srv.URL), "42", "999", 100)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "998", messages[0].Id)
	assert.Equal(t, `{"zebra": true, "id": "998", "timestamp": "2023-01-01T00:00:00Z", "content": "hi"}`, string(messages[0].Raw))
}

func TestGuildChannelListingIsCached(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(`[{"id": "5", "type": 0, "name": "general", "position": 0}]`))
	}))
	defer srv.Close()

	client, err := NewClient(testContext(srv.URL), "t0ken", &fakeClock{})
	require.NoError(t, err)
	defer client.Close()

	first, err := client.ListGuildChannels(testContext(srv.URL), "g1")
	require.NoError(t, err)
	second, err := client.ListGuildChannels(testContext(srv.URL), "g1")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
}
