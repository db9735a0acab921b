// Package source retrieves content items from the external sources a monitor can watch.
package source

import (
	"context"
	"fmt"
	"time"

	"gitlab.com/Cacophony/Monitor/pkg/monitor"
)

// Item is one piece of content returned by a source
type Item struct {
	Title     string
	Permalink string
	// StableID identifies the item for deduplication
	StableID  string
	Published time.Time
}

// Fetcher retrieves the current items of a source
type Fetcher interface {
	Fetch(ctx context.Context, sourceType monitor.SourceType, url string) ([]Item, error)
}

// Strategy fetches one kind of source
type Strategy interface {
	Fetch(ctx context.Context, url string) ([]Item, error)
}

// FetchError is returned for every network, status or parse failure
type FetchError struct {
	Type monitor.SourceType
	URL  string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("unable to fetch %s source %s: %s", e.Type, e.URL, e.Err)
}

// Cause returns the underlying error
func (e *FetchError) Cause() error {
	return e.Err
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Sources dispatches fetches to the strategy registered for a source type
type Sources struct {
	strategies map[monitor.SourceType]Strategy
}

// NewSources creates the dispatcher for every supported source type
func NewSources(requester *Requester, socialBaseURL string) *Sources {
	return &Sources{
		strategies: map[monitor.SourceType]Strategy{
			monitor.SourceFeed:   NewFeed(requester),
			monitor.SourceSocial: NewSocial(requester, socialBaseURL),
		},
	}
}

// Fetch returns the items of url, unknown source types yield no items and no error
func (s *Sources) Fetch(ctx context.Context, sourceType monitor.SourceType, url string) ([]Item, error) {
	strategy, ok := s.strategies[sourceType]
	if !ok {
		return nil, nil
	}

	items, err := strategy.Fetch(ctx, url)
	if err != nil {
		return nil, &FetchError{
			Type: sourceType,
			URL:  url,
			Err:  err,
		}
	}

	return items, nil
}
