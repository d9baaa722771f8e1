package main

import (
	"bufio"
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jessevdk/go-flags"
	"nuclight.org/drive-preview-bot/app/gdrive"
	"nuclight.org/drive-preview-bot/app/preview"
	e "nuclight.org/drive-preview-bot/pkg/entities"
	"nuclight.org/drive-preview-bot/pkg/links"
	"nuclight.org/drive-preview-bot/pkg/logger"
	"nuclight.org/drive-preview-bot/pkg/zerowidth"
)

// inspect reads messages from stdin, one per line, and logs what the bot would do
// with each: the Drive ids it links, the cards it would post, and the source id
// hidden in a pasted preview title.
var opts struct {
	GoogleCredentials string `long:"google-credentials" env:"GOOGLE_CREDENTIALS" description:"google credentials json or path to a json file, without it files are not fetched"`
	SourceID          string `long:"source-id" default:"0" description:"source message id to hide in built cards"`
	Debug             bool   `long:"debug" env:"DEBUG" description:"enable debug logs"`
}

func main() {
	_, err := flags.Parse(&opts)
	if err != nil {
		os.Exit(1)
	}

	log := logger.NewLogger(opts.Debug)
	log.Info("starting inspect")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var files *gdrive.Client
	if opts.GoogleCredentials != "" {
		credentials, err := gdrive.ReadCredentials(opts.GoogleCredentials)
		if err != nil {
			log.Error("reading google credentials", "error", err)
			os.Exit(1)
		}

		service, err := gdrive.NewService(ctx, credentials)
		if err != nil {
			log.Error("creating drive service", "error", err)
			os.Exit(1)
		}
		files = gdrive.NewClient(service, nil)
	}

	dedup := make(map[string]struct{})
	scanner := bufio.NewScanner(os.Stdin)

	for n := 1; scanner.Scan(); n++ {
		text := scanner.Text()

		key := normalize(text)
		if _, exists := dedup[key]; exists || key == "" {
			continue
		}
		dedup[key] = struct{}{}

		log := log.With("line", n)

		hidden, err := zerowidth.DecodeAppended(text)
		switch {
		case err == nil:
			log.Info("hidden source id", "id", hidden, "visible", zerowidth.Visible(text))
		case errors.Is(err, zerowidth.ErrNoPayload):
		default:
			log.Warn("malformed hidden payload", "error", err)
		}

		ids := links.FileIDs(text)
		if len(ids) == 0 {
			log.Debug("no drive links", "text", text)
			continue
		}
		log.Info("drive links", "ids", ids)

		if files == nil {
			continue
		}

		metas := make([]e.FileMetadata, 0, len(ids))
		for _, id := range ids {
			meta, err := files.GetMetadata(ctx, id)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					log.Info("context canceled, stopping")
					return
				}

				log.Error("getting file metadata", "file_id", id, "error", err)
				continue
			}
			metas = append(metas, meta)
		}

		for i, card := range preview.BuildCards(opts.SourceID, metas) {
			log.Info(
				"card",
				"n", i,
				"title", zerowidth.Visible(card.Title),
				"url", card.URL,
				"category", card.Category,
				"color", card.Color,
				"modified", card.Timestamp,
			)
		}
	}

	if err := scanner.Err(); err != nil {
		log.Error("reading stdin", "error", err)
		os.Exit(1)
	}

	os.Exit(0)
}

func normalize(text string) string {
	return strings.TrimSpace(strings.ToLower(text))
}
