package source

import (
	"context"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

const (
	// DefaultSocialBaseURL is the aggregator API queried for social sources
	DefaultSocialBaseURL = "https://www.reddit.com"
	socialPermalinkBase  = "https://reddit.com"
	socialPostsLimit     = 5
)

var communityRegex = regexp.MustCompile(`(?i)^https?://(?:www\.|old\.)?reddit\.com/r/([A-Za-z0-9_]+)/?`)

// Social fetches the newest posts of an aggregator community
type Social struct {
	requester *Requester
	baseURL   string
}

// NewSocial creates the social strategy, baseURL defaults to DefaultSocialBaseURL
func NewSocial(requester *Requester, baseURL string) *Social {
	if baseURL == "" {
		baseURL = DefaultSocialBaseURL
	}

	return &Social{
		requester: requester,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
	}
}

// CommunityName extracts the community from a source url
func CommunityName(sourceURL string) (string, error) {
	matches := communityRegex.FindStringSubmatch(sourceURL)
	if len(matches) < 2 {
		return "", errors.Errorf("%s is not a community url", sourceURL)
	}
	return matches[1], nil
}

type listing struct {
	Data struct {
		Children []struct {
			Data post `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type post struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Permalink  string  `json:"permalink"`
	CreatedUTC float64 `json:"created_utc"`
}

// Fetch returns the five newest posts of the community, newest first
func (s *Social) Fetch(ctx context.Context, sourceURL string) ([]Item, error) {
	community, err := CommunityName(sourceURL)
	if err != nil {
		return nil, err
	}

	body, err := s.requester.Get(ctx,
		s.baseURL+"/r/"+url.PathEscape(community)+"/new.json?limit="+strconv.Itoa(socialPostsLimit),
	)
	if err != nil {
		return nil, err
	}

	var result listing
	err = jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(body, &result)
	if err != nil {
		return nil, errors.Wrap(err, "failure parsing community listing")
	}

	items := make([]Item, 0, len(result.Data.Children))
	for _, child := range result.Data.Children {
		if child.Data.ID == "" {
			continue
		}

		item := Item{
			Title:     child.Data.Title,
			Permalink: socialPermalinkBase + child.Data.Permalink,
			StableID:  child.Data.ID,
		}
		if child.Data.CreatedUTC > 0 {
			item.Published = time.Unix(int64(child.Data.CreatedUTC), 0)
		}

		items = append(items, item)
	}

	return items, nil
}
