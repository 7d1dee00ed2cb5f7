package export

import (
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/t2bot/discord-chat-archiver/discord"
)

func TestSaveJsonPreservesSourceKeyOrder(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")

	messages := []*discord.Message{
		{Id: "1", Raw: json.RawMessage(`{"zebra": "first", "id": "1", "alpha": "last"}`)},
		{Id: "2", Raw: json.RawMessage(`{"id": "2", "content": "hi"}`)},
	}
	require.NoError(t, SaveJson(messages, path))

	data, err := ioutil.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Less(t, strings.Index(text, `"zebra"`), strings.Index(text, `"alpha"`))

	var parsed []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &parsed))
	require.Len(t, parsed, 2)
	assert.Equal(t, "hi", parsed[1]["content"])
}

func TestSaveJsonFallsBackToStructEncoding(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")

	messages := []*discord.Message{{Id: "1", Content: "no raw bytes"}}
	require.NoError(t, SaveJson(messages, path))

	data, err := ioutil.ReadFile(path)
	require.NoError(t, err)
	var parsed []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &parsed))
	require.Len(t, parsed, 1)
	assert.Equal(t, "no raw bytes", parsed[0]["content"])
}

func TestSaveTextLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.txt")
	require.NoError(t, SaveText("transcript body", path))

	data, err := ioutil.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "transcript body", string(data))

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestDownloadAttachmentsIsIdempotent(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		_, _ = w.Write([]byte("image bytes"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	messages := []*discord.Message{
		{Id: "10", Attachments: []*discord.Attachment{
			{Id: "a1", Filename: "pic one.png", Url: srv.URL + "/a1"},
			{Id: "a2", Filename: "pic2.png", Url: srv.URL + "/a2"},
		}},
	}

	ctx := testContext(t, srv.URL, 100)
	saved, savedBytes, err := DownloadAttachments(ctx, messages, dir)
	require.NoError(t, err)
	assert.Equal(t, 2, saved)
	assert.Equal(t, int64(2*len("image bytes")), savedBytes)
	assert.Equal(t, 2, hits)

	entries, err := ioutil.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	names := []string{entries[0].Name(), entries[1].Name()}
	assert.Contains(t, names, "10_pic_one.png")
	assert.Contains(t, names, "10_pic2.png")

	// Second run finds everything on disk already and touches nothing.
	saved, savedBytes, err = DownloadAttachments(ctx, messages, dir)
	require.NoError(t, err)
	assert.Equal(t, 0, saved)
	assert.Equal(t, int64(0), savedBytes)
	assert.Equal(t, 2, hits)
}

func TestDownloadAttachmentsSkipsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/missing") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	messages := []*discord.Message{
		{Id: "1", Attachments: []*discord.Attachment{{Id: "a1", Filename: "gone.png", Url: srv.URL + "/missing"}}},
		{Id: "2", Attachments: []*discord.Attachment{{Id: "a2", Filename: "here.png", Url: srv.URL + "/here"}}},
	}

	saved, _, err := DownloadAttachments(testContext(t, srv.URL, 100), messages, dir)
	require.NoError(t, err)
	assert.Equal(t, 1, saved)

	entries, err := ioutil.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "2_here.png", entries[0].Name())
}
