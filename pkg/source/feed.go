package source

import (
	"bytes"
	"context"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/pkg/errors"
)

const feedItemsLimit = 10

// Feed fetches RSS, Atom and JSON Feed documents
type Feed struct {
	requester *Requester
	parser    *gofeed.Parser
	now       func() time.Time
}

// NewFeed creates the feed strategy
func NewFeed(requester *Requester) *Feed {
	return &Feed{
		requester: requester,
		parser:    gofeed.NewParser(),
		now:       time.Now,
	}
}

// Fetch returns up to ten of the most recent entries, newest first
func (f *Feed) Fetch(ctx context.Context, feedURL string) ([]Item, error) {
	parsedFeedURL, err := url.Parse(feedURL)
	if err != nil {
		return nil, errors.Wrap(err, "invalid feed url")
	}

	// add cache busting
	newQueries := parsedFeedURL.Query()
	newQueries.Set("_", strconv.FormatInt(f.now().Unix(), 10))
	parsedFeedURL.RawQuery = newQueries.Encode()

	body, err := f.requester.Get(ctx, parsedFeedURL.String())
	if err != nil {
		return nil, err
	}

	feed, err := f.parser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failure parsing feed")
	}

	return feedItems(feed.Items), nil
}

func feedItems(posts []*gofeed.Item) []Item {
	items := make([]Item, 0, len(posts))
	for _, post := range posts {
		if post == nil {
			continue
		}

		stableID := post.GUID
		if stableID == "" {
			stableID = post.Link
		}
		if stableID == "" {
			continue
		}

		item := Item{
			Title:     post.Title,
			Permalink: post.Link,
			StableID:  stableID,
		}
		switch {
		case post.PublishedParsed != nil:
			item.Published = *post.PublishedParsed
		case post.UpdatedParsed != nil:
			item.Published = *post.UpdatedParsed
		}

		items = append(items, item)
	}

	// undated entries keep their document position behind the dated ones
	sort.SliceStable(items, func(i, j int) bool {
		if items[j].Published.IsZero() {
			return !items[i].Published.IsZero()
		}
		return items[i].Published.After(items[j].Published)
	})

	if len(items) > feedItemsLimit {
		items = items[:feedItemsLimit]
	}

	return items
}
