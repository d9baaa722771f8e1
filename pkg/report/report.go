// Package report sends handling failures to Sentry.
package report

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

type Sentry struct {
	hub *sentry.Hub
}

// New creates a reporter. An empty DSN gives a reporter that drops everything.
func New(dsn, release string) (*Sentry, error) {
	return NewWithOptions(sentry.ClientOptions{
		Dsn:              dsn,
		Release:          release,
		AttachStacktrace: true,
	})
}

func NewWithOptions(opts sentry.ClientOptions) (*Sentry, error) {
	client, err := sentry.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("creating sentry client: %w", err)
	}

	return &Sentry{hub: sentry.NewHub(client, sentry.NewScope())}, nil
}

// Error reports err tagged with tags.
func (s *Sentry) Error(err error, tags map[string]string) {
	hub := s.hub.Clone()
	hub.Scope().SetTags(tags)
	hub.CaptureException(err)
}

// Panic reports a recovered panic value tagged with tags.
func (s *Sentry) Panic(v any, tags map[string]string) {
	hub := s.hub.Clone()
	hub.Scope().SetTags(tags)
	hub.Recover(v)
}

func (s *Sentry) Flush(timeout time.Duration) bool {
	return s.hub.Flush(timeout)
}
