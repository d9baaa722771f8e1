package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"nuclight.org/drive-preview-bot/app/discord"
	"nuclight.org/drive-preview-bot/app/gdrive"
	"nuclight.org/drive-preview-bot/app/preview"
	"nuclight.org/drive-preview-bot/pkg/logger"
	"nuclight.org/drive-preview-bot/pkg/metrics"
	"nuclight.org/drive-preview-bot/pkg/mutex"
	"nuclight.org/drive-preview-bot/pkg/report"
)

var opts struct {
	DiscordToken         string        `long:"discord-token" env:"DISCORD_TOKEN" required:"true" description:"discord bot token"`
	GoogleCredentials    string        `long:"google-credentials" env:"GOOGLE_CREDENTIALS" required:"true" description:"google credentials json or path to a json file"`
	WorkersNum           int           `long:"workers-num" env:"WORKERS_NUM" default:"8" description:"number of workers handling discord events"`
	PollAttempts         int           `long:"poll-attempts" env:"POLL_ATTEMPTS" default:"3" description:"times a message is re-read waiting for native previews"`
	PollBackoff          time.Duration `long:"poll-backoff" env:"POLL_BACKOFF" default:"3s" description:"pause between re-reads"`
	HistorySize          int           `long:"history-size" env:"HISTORY_SIZE" default:"5" description:"messages after the source scanned for its preview"`
	MaxCards             int           `long:"max-cards" env:"MAX_CARDS" default:"10" description:"max cards in one preview"`
	AllowConcurrentEdits bool          `long:"allow-concurrent-edits" env:"ALLOW_CONCURRENT_EDITS" description:"do not serialize events of the same message"`
	SentryDSN            string        `long:"sentry-dsn" env:"SENTRY_DSN" description:"sentry dsn, empty disables reporting"`
	MetricsAddr          string        `long:"metrics-addr" env:"METRICS_ADDR" description:"address to serve prometheus metrics on, empty disables it"`
	Debug                bool          `long:"debug" env:"DEBUG" description:"enable debug logs"`
}

var Revision = "dev"

func main() {
	_ = godotenv.Load()

	_, err := flags.Parse(&opts)
	if err != nil {
		os.Exit(1)
	}

	log := logger.NewLogger(opts.Debug)
	log.Info("starting bot", "revision", Revision)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reporter, err := report.New(opts.SentryDSN, Revision)
	if err != nil {
		log.Error("creating reporter", "error", err)
		os.Exit(1)
	}

	mtr := metrics.New()
	if opts.MetricsAddr != "" {
		go func() {
			log.Info("serving metrics", "addr", opts.MetricsAddr)
			if err := mtr.Serve(ctx, opts.MetricsAddr); err != nil {
				log.Error("serving metrics", "error", err)
			}
		}()
	}

	credentials, err := gdrive.ReadCredentials(opts.GoogleCredentials)
	if err != nil {
		log.Error("reading google credentials", "error", err)
		os.Exit(1)
	}

	driveService, err := gdrive.NewService(ctx, credentials)
	if err != nil {
		log.Error("creating drive service", "error", err)
		os.Exit(1)
	}

	session, err := discord.NewSession(opts.DiscordToken)
	if err != nil {
		log.Error("creating discord session", "error", err)
		os.Exit(1)
	}

	chat := discord.NewChat(session)

	handler := &preview.Handler{
		Log:          log,
		Chat:         chat,
		Files:        gdrive.NewClient(driveService, mtr),
		Metrics:      mtr,
		PollAttempts: opts.PollAttempts,
		PollBackoff:  opts.PollBackoff,
		HistorySize:  opts.HistorySize,
		MaxCards:     opts.MaxCards,
	}
	if !opts.AllowConcurrentEdits {
		handler.Locks = &mutex.KeyedMutex{}
	}

	bot := &discord.Client{
		Log:        log,
		Session:    session,
		Chat:       chat,
		WorkersNum: opts.WorkersNum,
		Handler:    handler,
		Reporter:   reporter,
		Metrics:    mtr,
	}

	err = bot.Start(ctx)
	if err != nil {
		log.Error("starting bot", "error", err)
		reporter.Flush(2 * time.Second)
		os.Exit(1)
	}

	<-ctx.Done()
	log.Info("stopping bot")

	if err := bot.Close(); err != nil {
		log.Error("closing bot", "error", err)
	}

	bot.Wait()
	reporter.Flush(2 * time.Second)

	os.Exit(0)
}
