package export

import (
	"bytes"
	"encoding/json"
	"io"
	"io/ioutil"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/t2bot/discord-chat-archiver/common"
	"github.com/t2bot/discord-chat-archiver/common/logging"
	"github.com/t2bot/discord-chat-archiver/common/rcontext"
	"github.com/t2bot/discord-chat-archiver/discord"
	"github.com/t2bot/discord-chat-archiver/metrics"
	"github.com/t2bot/discord-chat-archiver/util"
)

// SaveJson writes the ascending message list as an indented UTF-8 JSON array.
// Each message's raw source bytes are used so the service's key order is
// preserved in the artifact.
func SaveJson(messages []*discord.Message, path string) error {
	raws := make([]json.RawMessage, 0, len(messages))
	for _, m := range messages {
		if m.Raw == nil {
			encoded, err := json.Marshal(m)
			if err != nil {
				return err
			}
			raws = append(raws, encoded)
			continue
		}
		raws = append(raws, m.Raw)
	}

	flat, err := json.Marshal(raws)
	if err != nil {
		return err
	}
	indented := &bytes.Buffer{}
	if err := json.Indent(indented, flat, "", "  "); err != nil {
		return err
	}
	return writeFileAtomic(path, indented.Bytes())
}

// SaveText writes the formatted transcript as UTF-8.
func SaveText(text string, path string) error {
	return writeFileAtomic(path, []byte(text))
}

// Files appear at their final path only once fully written, so a reader (or a
// cancelled job) never observes partial content.
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "failed to create output directory")
	}
	tmp := path + ".tmp"
	if err := ioutil.WriteFile(tmp, data, 0644); err != nil {
		return errors.Wrap(err, "failed to write output file")
	}
	return os.Rename(tmp, path)
}

// DownloadAttachments saves every attachment across the given messages into
// dir as <messageId>_<safeFilename>. Files already present are skipped, which
// makes repeated exports idempotent. Individual download failures are logged
// and skipped, never fatal. Returns the number of files actually written and
// their total size.
func DownloadAttachments(ctx rcontext.RequestContext, messages []*discord.Message, dir string) (int, int64, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, 0, errors.Wrap(err, "failed to create attachments directory")
	}

	workers := ctx.Config.Downloads.NumWorkers
	if workers < 1 {
		workers = 1
	}
	pool, err := ants.NewPool(workers, ants.WithOptions(ants.Options{
		ExpiryDuration: 1 * time.Minute, // worker lifespan when unused
		PanicHandler: func(err interface{}) {
			logrus.Error("Panic from attachment download pool")
			logrus.Error(err)
			if e, ok := err.(error); ok {
				sentry.CaptureException(e)
			}
		},
		Logger: &logging.SendToDebugLogger{},
	}))
	if err != nil {
		return 0, 0, err
	}
	defer pool.Release()

	client := &http.Client{
		Timeout: time.Duration(ctx.Config.Downloads.TimeoutSeconds) * time.Second,
	}

	var saved int64
	var savedBytes int64
	var wg sync.WaitGroup
	cancelled := false

	for _, m := range messages {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		for _, attachment := range m.Attachments {
			if attachment.Url == "" {
				continue
			}
			target := filepath.Join(dir, m.Id+"_"+safeAttachmentName(attachment))
			if _, err := os.Stat(target); err == nil {
				metrics.AttachmentDownloads.With(map[string]string{"outcome": "skipped"}).Inc()
				continue
			}

			url := attachment.Url
			wg.Add(1)
			submitErr := pool.Submit(func() {
				defer wg.Done()
				written, err := downloadAttachment(client, url, target)
				if err != nil {
					ctx.Log.Warnf("Attachment download failed: %s (%v)", url, err)
					metrics.AttachmentDownloads.With(map[string]string{"outcome": "failed"}).Inc()
					return
				}
				atomic.AddInt64(&saved, 1)
				atomic.AddInt64(&savedBytes, written)
				metrics.AttachmentDownloads.With(map[string]string{"outcome": "saved"}).Inc()
			})
			if submitErr != nil {
				wg.Done()
				ctx.Log.Warnf("Could not schedule attachment download: %s (%v)", url, submitErr)
			}
		}
	}

	wg.Wait()
	if cancelled {
		return int(saved), savedBytes, common.ErrCancelled
	}
	return int(saved), savedBytes, nil
}

func safeAttachmentName(attachment *discord.Attachment) string {
	name := attachment.Filename
	if name == "" {
		name = "attachment"
	}
	return util.SafeFilename(name)
}

func downloadAttachment(client *http.Client, url string, target string) (int64, error) {
	res, err := client.Get(url)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return 0, errors.Errorf("unexpected status code %d", res.StatusCode)
	}

	tmp := target + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return 0, err
	}
	written, err := io.Copy(f, res.Body)
	if err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return 0, err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return 0, err
	}
	return written, os.Rename(tmp, target)
}
