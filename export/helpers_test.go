package export

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/t2bot/discord-chat-archiver/common/config"
	"github.com/t2bot/discord-chat-archiver/common/rcontext"
)

func testContext(t *testing.T, baseUrl string, pageSize int) rcontext.RequestContext {
	cfg := *config.NewDefaultConfig()
	cfg.Api.BaseUrl = baseUrl
	cfg.Api.PageSize = pageSize
	cfg.Downloads.NumWorkers = 2
	return rcontext.RequestContext{
		Context: context.Background(),
		Log:     logrus.WithField("test", t.Name()),
		Config:  cfg,
	}
}

// fakeDiscord serves just enough of the API for pipeline tests: identity
// lookup plus cursor-driven message pagination over a newest-first list.
type fakeDiscord struct {
	mu           sync.Mutex
	byChannel    map[string][]map[string]interface{}
	failChannels map[string]int
	messageCalls int
	afterPage    func()
}

var messagesPath = regexp.MustCompile(`^/channels/([^/]+)/messages$`)

func (f *fakeDiscord) handler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/users/@me" {
		_, _ = w.Write([]byte(`{"id": "u0", "username": "tester"}`))
		return
	}

	match := messagesPath.FindStringSubmatch(r.URL.Path)
	if match == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	channelId := match[1]

	f.mu.Lock()
	f.messageCalls++
	afterPage := f.afterPage
	f.mu.Unlock()

	if status, ok := f.failChannels[channelId]; ok {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"message": "boom", "code": 0}`))
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	before := r.URL.Query().Get("before")

	page := make([]map[string]interface{}, 0, limit)
	for _, m := range f.byChannel[channelId] {
		if before != "" && !idLess(m["id"].(string), before) {
			continue
		}
		page = append(page, m)
		if len(page) == limit {
			break
		}
	}

	encoded, _ := json.Marshal(page)
	_, _ = w.Write(encoded)

	if afterPage != nil {
		afterPage()
	}
}

func idLess(a string, b string) bool {
	ai, _ := strconv.ParseInt(a, 10, 64)
	bi, _ := strconv.ParseInt(b, 10, 64)
	return ai < bi
}

func newFakeDiscord(byChannel map[string][]map[string]interface{}) (*fakeDiscord, *httptest.Server) {
	f := &fakeDiscord{
		byChannel:    byChannel,
		failChannels: make(map[string]int),
	}
	return f, httptest.NewServer(http.HandlerFunc(f.handler))
}

func fakeMessage(id int64, ts time.Time, content string) map[string]interface{} {
	return map[string]interface{}{
		"id":        strconv.FormatInt(id, 10),
		"timestamp": ts.UTC().Format(time.RFC3339Nano),
		"content":   content,
		"author": map[string]interface{}{
			"id":            "u1",
			"username":      "alice",
			"discriminator": "0001",
		},
		"attachments": []interface{}{},
		"pinned":      false,
	}
}

// newestFirst builds the fetch-order list the API would return.
func newestFirst(messages []map[string]interface{}) []map[string]interface{} {
	reversed := make([]map[string]interface{}, 0, len(messages))
	for i := len(messages) - 1; i >= 0; i-- {
		reversed = append(reversed, messages[i])
	}
	return reversed
}
