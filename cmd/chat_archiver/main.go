package main

import (
	"flag"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/t2bot/discord-chat-archiver/common"
	"github.com/t2bot/discord-chat-archiver/common/config"
	"github.com/t2bot/discord-chat-archiver/common/logging"
	"github.com/t2bot/discord-chat-archiver/common/rcontext"
	"github.com/t2bot/discord-chat-archiver/common/version"
	"github.com/t2bot/discord-chat-archiver/discord"
	"github.com/t2bot/discord-chat-archiver/export"
	"github.com/t2bot/discord-chat-archiver/export/tasks"
	"github.com/t2bot/discord-chat-archiver/metrics"
)

const timeFlagFormat = "2006-01-02 15:04"

func main() {
	configPath := flag.String("config", "chat-archiver.yaml", "The path to the configuration")
	versionFlag := flag.Bool("version", false, "Prints the version and exits")
	listFlag := flag.Bool("list", false, "Lists exportable DMs and guild channels, then exits")
	channelId := flag.String("channel", "", "The channel id to export")
	recipient := flag.String("recipient", "", "DM recipient display name (DM exports)")
	guildName := flag.String("guild", "", "Guild display name (guild channel exports)")
	channelName := flag.String("channel-name", "", "Channel display name (guild channel exports)")
	batchFile := flag.String("batch", "", "Path to a yaml file of batch export targets")
	outDir := flag.String("out", "", "Output directory (defaults to the configured exports directory)")
	baseName := flag.String("base", "", "Base filename stem (defaults to one derived from the target)")
	beforeStr := flag.String("before", "", "Only include messages at or before this local time ("+timeFlagFormat+")")
	afterStr := flag.String("after", "", "Only include messages at or after this local time ("+timeFlagFormat+")")
	withJson := flag.Bool("json", true, "Write the JSON artifact")
	withText := flag.Bool("text", true, "Write the transcript artifact")
	withAttachments := flag.Bool("attachments", false, "Download attachments")
	withEdits := flag.Bool("edits", true, "Include edit markers in the transcript")
	withPins := flag.Bool("pins", true, "Include pin markers in the transcript")
	withReplies := flag.Bool("replies", true, "Include reply context in the transcript")
	flag.Parse()

	if *versionFlag {
		version.Print(false)
		return // exit 0
	}

	config.Path = *configPath

	err := logging.Setup(
		config.Get().General.LogDirectory,
		config.Get().General.LogColors,
		config.Get().General.JsonLogs,
		config.Get().General.LogLevel,
	)
	if err != nil {
		panic(err)
	}

	logrus.Info("Starting up...")
	version.Print(true)

	metrics.Init()
	defer metrics.Stop()

	watcher := config.Watch()
	defer watcher.Close()

	token, err := resolveToken()
	if err != nil {
		logrus.Fatal(err)
	}

	ctx := rcontext.Initial()

	if *listFlag {
		if err := listTargets(ctx, token); err != nil {
			logrus.Fatal(err)
		}
		return
	}

	output := *outDir
	if output == "" {
		output = config.Get().Exports.OutputDirectory
	}
	if err := ensureWritable(output); err != nil {
		logrus.Fatal(err)
	}

	before, err := parseTimeFlag(*beforeStr)
	if err != nil {
		logrus.Fatal(err)
	}
	after, err := parseTimeFlag(*afterStr)
	if err != nil {
		logrus.Fatal(err)
	}

	if *batchFile != "" {
		targets, err := loadBatchFile(*batchFile, output)
		if err != nil {
			logrus.Fatal(err)
		}
		runToCompletion(tasks.RunBatch(ctx, token, targets))
		return
	}

	if *channelId == "" {
		logrus.Fatal("One of -channel, -batch, or -list is required")
	}

	var target export.ExportTarget
	if *guildName != "" {
		target = export.GuildChannelTarget{Channel: *channelId, GuildName: *guildName, ChannelName: *channelName}
	} else {
		name := *recipient
		if name == "" {
			name = *channelId
		}
		target = export.DirectMessageTarget{Channel: *channelId, Recipient: name}
	}

	base := *baseName
	if base == "" {
		base = target.BaseFilename()
	}

	opts := export.Options{
		ChannelId:          target.ChannelId(),
		Before:             before,
		After:              after,
		ExportJson:         *withJson,
		ExportText:         *withText,
		ExportAttachments:  *withAttachments,
		IncludeEditMarkers: *withEdits,
		IncludePinMarkers:  *withPins,
		IncludeReplies:     *withReplies,
		OutputDirectory:    output,
		BaseFilename:       base,
	}

	runToCompletion(tasks.RunExport(ctx, token, opts))
}

func runToCompletion(t *tasks.Task) {
	for ev := range t.Events() {
		switch e := ev.(type) {
		case tasks.StatusEvent:
			logrus.Info(e.Text)
		case tasks.ItemStartedEvent:
			logrus.Infof("[%d/%d] Starting: %s", e.Index, e.Total, e.Label)
		case tasks.ProgressEvent:
			logrus.Infof("Progress: %d/%d", e.Attempted, e.Total)
		case tasks.PreviewEvent:
			// The CLI has no preview pane; the transcript lands in the text
			// artifact instead.
		case tasks.ResultEvent:
			logrus.Infof("Exported %d messages", len(e.Result.Messages))
		case tasks.BatchResultEvent:
			for _, item := range e.Result.Items {
				if item.Success {
					logrus.Infof("  ok: %s", item.Label)
				} else {
					logrus.Warnf("  failed: %s (%s)", item.Label, item.Error)
				}
			}
		case tasks.ErrorEvent:
			logrus.Error(e.Message)
			os.Exit(1)
		}
	}
}

func listTargets(ctx rcontext.RequestContext, token string) error {
	client, err := discord.NewClient(ctx, token, nil)
	if err != nil {
		return err
	}
	defer client.Close()

	me, err := client.WhoAmI(ctx)
	if err != nil {
		return err
	}
	fmt.Println("Logged in as " + me.Username)

	dms, err := client.ListDirectMessages(ctx)
	if err != nil {
		return err
	}
	fmt.Println("Direct messages:")
	for _, dm := range dms {
		names := make([]string, 0, len(dm.Recipients))
		for _, r := range dm.Recipients {
			names = append(names, r.Username)
		}
		fmt.Printf("  %s  %s\n", dm.Id, strings.Join(names, ", "))
	}

	guilds, err := client.ListGuilds(ctx)
	if err != nil {
		return err
	}
	for _, guild := range guilds {
		fmt.Printf("Guild: %s (%s)\n", guild.Name, guild.Id)
		channels, err := client.ListGuildChannels(ctx, guild.Id)
		if err != nil {
			logrus.Warnf("Failed to load channels for guild %s: %v", guild.Id, err)
			continue
		}
		for _, ch := range discord.TextChannels(channels) {
			fmt.Printf("  %s  #%s\n", ch.Id, ch.Name)
		}
	}
	return nil
}

func resolveToken() (string, error) {
	if val := os.Getenv("DISCORD_TOKEN"); val != "" {
		return strings.TrimSpace(val), nil
	}
	tokenFile := config.Get().General.TokenFile
	if tokenFile != "" {
		b, err := ioutil.ReadFile(tokenFile)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	return "", common.ErrTokenEmpty
}

func ensureWritable(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return common.ErrOutputNotWritable
	}
	probe := filepath.Join(dir, ".write_probe")
	if err := ioutil.WriteFile(probe, []byte{}, 0644); err != nil {
		return common.ErrOutputNotWritable
	}
	_ = os.Remove(probe)
	return nil
}

func parseTimeFlag(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(timeFlagFormat, value, time.Local)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

type batchFileEntry struct {
	Id           string `yaml:"id"`
	Label        string `yaml:"label"`
	ChannelId    string `yaml:"channelId"`
	Recipient    string `yaml:"recipient"`
	GuildName    string `yaml:"guildName"`
	ChannelName  string `yaml:"channelName"`
	Before       string `yaml:"before"`
	After        string `yaml:"after"`
	BaseFilename string `yaml:"baseFilename"`
	Json         *bool  `yaml:"json"`
	Text         *bool  `yaml:"text"`
	Attachments  bool   `yaml:"attachments"`
	Edits        *bool  `yaml:"edits"`
	Pins         *bool  `yaml:"pins"`
	Replies      *bool  `yaml:"replies"`
}

func boolOr(val *bool, def bool) bool {
	if val == nil {
		return def
	}
	return *val
}

func loadBatchFile(path string, outputDir string) ([]export.BatchTarget, error) {
	buffer, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	entries := make([]batchFileEntry, 0)
	if err := yaml.Unmarshal(buffer, &entries); err != nil {
		return nil, err
	}

	targets := make([]export.BatchTarget, 0, len(entries))
	for i, entry := range entries {
		if entry.ChannelId == "" {
			return nil, fmt.Errorf("batch entry %d is missing a channelId", i+1)
		}

		var target export.ExportTarget
		if entry.GuildName != "" {
			target = export.GuildChannelTarget{Channel: entry.ChannelId, GuildName: entry.GuildName, ChannelName: entry.ChannelName}
		} else {
			name := entry.Recipient
			if name == "" {
				name = entry.ChannelId
			}
			target = export.DirectMessageTarget{Channel: entry.ChannelId, Recipient: name}
		}

		before, err := parseTimeFlag(entry.Before)
		if err != nil {
			return nil, err
		}
		after, err := parseTimeFlag(entry.After)
		if err != nil {
			return nil, err
		}

		label := entry.Label
		if label == "" {
			label = target.DisplayName()
		}
		stableId := entry.Id
		if stableId == "" {
			stableId = fmt.Sprintf("row-%d", i+1)
		}
		base := entry.BaseFilename
		if base == "" {
			base = target.BaseFilename()
		}

		targets = append(targets, export.BatchTarget{
			StableId: stableId,
			Label:    label,
			Options: export.Options{
				ChannelId:          target.ChannelId(),
				Before:             before,
				After:              after,
				ExportJson:         boolOr(entry.Json, true),
				ExportText:         boolOr(entry.Text, true),
				ExportAttachments:  entry.Attachments,
				IncludeEditMarkers: boolOr(entry.Edits, true),
				IncludePinMarkers:  boolOr(entry.Pins, true),
				IncludeReplies:     boolOr(entry.Replies, true),
				OutputDirectory:    outputDir,
				BaseFilename:       base,
			},
		})
	}
	return targets, nil
}
