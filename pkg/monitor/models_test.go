package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptorFromHash(t *testing.T) {
	tests := []struct {
		name    string
		fields  map[string]string
		want    *Descriptor
		wantErr bool
	}{
		{
			name: "complete",
			fields: map[string]string{
				"type": "feed", "url": "https://example.com/feed", "interval": "15",
				"channelId": "c1", "userId": "u1", "scope": "G1", "createdAt": "1700000000000",
			},
			want: &Descriptor{
				Scope: "G1", URL: "https://example.com/feed", Type: SourceFeed, IntervalMinutes: 15,
				ChannelID: "c1", UserID: "u1", CreatedAt: time.UnixMilli(1700000000000),
			},
		},
		{
			name: "legacy names",
			fields: map[string]string{
				"type": "reddit", "url": "https://reddit.com/r/jellyfin", "interval": "5",
				"channelId": "c1", "guildId": "G1",
			},
			want: &Descriptor{
				Scope: "G1", URL: "https://reddit.com/r/jellyfin", Type: SourceSocial, IntervalMinutes: 5,
				ChannelID: "c1",
			},
		},
		{
			name:    "partial write",
			fields:  map[string]string{"url": "https://example.com/feed"},
			wantErr: true,
		},
		{
			name: "unknown type",
			fields: map[string]string{
				"type": "mastodon", "url": "https://example.com", "interval": "5", "channelId": "c1",
			},
			wantErr: true,
		},
		{
			name: "interval out of range",
			fields: map[string]string{
				"type": "feed", "url": "https://example.com", "interval": "0", "channelId": "c1",
			},
			wantErr: true,
		},
		{
			name: "missing channel",
			fields: map[string]string{
				"type": "feed", "url": "https://example.com", "interval": "5",
			},
			wantErr: true,
		},
		{
			name:    "missing",
			fields:  map[string]string{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := descriptorFromHash(tt.fields)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want.Scope, got.Scope)
			assert.Equal(t, tt.want.URL, got.URL)
			assert.Equal(t, tt.want.Type, got.Type)
			assert.Equal(t, tt.want.IntervalMinutes, got.IntervalMinutes)
			assert.Equal(t, tt.want.ChannelID, got.ChannelID)
			assert.Equal(t, tt.want.UserID, got.UserID)
			assert.True(t, tt.want.CreatedAt.Equal(got.CreatedAt))
		})
	}
}

func TestIsDescriptorKey(t *testing.T) {
	assert.True(t, IsDescriptorKey("monitor:G1:https://example.com/feed"))
	assert.False(t, IsDescriptorKey("monitor:G1:https://example.com/feed:lastCheck"))
	assert.False(t, IsDescriptorKey("monitor:G1:https://example.com/feed:sent"))
	assert.False(t, IsDescriptorKey("bot:metrics"))
}

func TestFormatList(t *testing.T) {
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "No sources are currently being monitored in this server.", FormatList(nil, now))

	out := FormatList([]Descriptor{
		{URL: "https://z.example.com", Type: SourceSocial, IntervalMinutes: 10, ChannelID: "c2"},
		{URL: "https://a.example.com", Type: SourceFeed, IntervalMinutes: 5, ChannelID: "c1", CreatedAt: now.Add(-3 * time.Hour)},
	}, now)

	assert.Equal(t,
		"• **FEED**: https://a.example.com (every 5m in <#c1>), added 3 hours ago\n"+
			"• **SOCIAL**: https://z.example.com (every 10m in <#c2>)",
		out,
	)
}
