package monitor

import (
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	keyPrefix       = "monitor:"
	lastCheckSuffix = ":lastCheck"
	sentSuffix      = ":sent"

	// DefaultInterval is used when a monitor is added without an interval
	DefaultInterval = 5
	MinInterval     = 1
	MaxInterval     = 1440
)

// SourceType is the closed set of sources a monitor can watch
type SourceType string

const (
	// SourceFeed is a syndication document (RSS, Atom, JSON Feed)
	SourceFeed SourceType = "feed"
	// SourceSocial is a social aggregator community listing
	SourceSocial SourceType = "social"
)

// SourceTypes lists every accepted source type
var SourceTypes = []SourceType{SourceFeed, SourceSocial}

// names written by the previous deployment
var legacySourceTypes = map[string]SourceType{
	"rss":    SourceFeed,
	"reddit": SourceSocial,
}

// ParseSourceType returns the SourceType for value, or an InputError
func ParseSourceType(value string) (SourceType, error) {
	for _, sourceType := range SourceTypes {
		if string(sourceType) == value {
			return sourceType, nil
		}
	}

	return "", invalidInput("type", "unknown source type %q", value)
}

func (t SourceType) String() string {
	return string(t)
}

// Descriptor identifies one external source watched for one scope
type Descriptor struct {
	Scope           string
	URL             string
	Type            SourceType
	IntervalMinutes int
	ChannelID       string
	UserID          string
	CreatedAt       time.Time
}

// Key returns the store key of the descriptor
func (d *Descriptor) Key() string {
	return Key(d.Scope, d.URL)
}

// Interval returns the configured interval as a duration
func (d *Descriptor) Interval() time.Duration {
	return time.Duration(d.IntervalMinutes) * time.Minute
}

// Key returns the store key for the monitor of url in scope
func Key(scope, url string) string {
	return keyPrefix + scope + ":" + url
}

// LastCheckKey returns the key of the last-check marker of a monitor key
func LastCheckKey(monitorKey string) string {
	return monitorKey + lastCheckSuffix
}

// SentKey returns the key of the dedup set of a monitor key
func SentKey(monitorKey string) string {
	return monitorKey + sentSuffix
}

// SentPattern matches the dedup set of every monitor
func SentPattern() string {
	return keyPrefix + "*" + sentSuffix
}

// IsDescriptorKey reports whether key holds a descriptor rather than one of its companions
func IsDescriptorKey(key string) bool {
	return strings.HasPrefix(key, keyPrefix) &&
		!strings.HasSuffix(key, lastCheckSuffix) &&
		!strings.HasSuffix(key, sentSuffix)
}

func (d *Descriptor) toHash() map[string]interface{} {
	return map[string]interface{}{
		"type":      string(d.Type),
		"url":       d.URL,
		"interval":  strconv.Itoa(d.IntervalMinutes),
		"channelId": d.ChannelID,
		"userId":    d.UserID,
		"scope":     d.Scope,
		"createdAt": strconv.FormatInt(d.CreatedAt.UnixMilli(), 10),
	}
}

// descriptorFromHash decodes a stored hash, rejecting partial writes
func descriptorFromHash(fields map[string]string) (*Descriptor, error) {
	if len(fields) == 0 {
		return nil, ErrNotFound
	}

	url := fields["url"]
	if url == "" {
		return nil, errors.New("descriptor is missing url")
	}

	rawType := fields["type"]
	sourceType, ok := legacySourceTypes[rawType]
	if !ok {
		var err error
		sourceType, err = ParseSourceType(rawType)
		if err != nil {
			return nil, errors.Wrap(err, "descriptor has invalid type")
		}
	}

	channelID := fields["channelId"]
	if channelID == "" {
		return nil, errors.New("descriptor is missing channelId")
	}

	interval, err := strconv.Atoi(fields["interval"])
	if err != nil {
		return nil, errors.Wrap(err, "descriptor has invalid interval")
	}
	if err = validateInterval(interval); err != nil {
		return nil, err
	}

	var createdAt time.Time
	if raw := fields["createdAt"]; raw != "" {
		millis, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, errors.Wrap(err, "descriptor has invalid createdAt")
		}
		createdAt = time.UnixMilli(millis)
	}

	scope := fields["scope"]
	if scope == "" {
		// written before scope was stored under its own name
		scope = fields["guildId"]
	}

	return &Descriptor{
		Scope:           scope,
		URL:             url,
		Type:            sourceType,
		IntervalMinutes: interval,
		ChannelID:       channelID,
		UserID:          fields["userId"],
		CreatedAt:       createdAt,
	}, nil
}
