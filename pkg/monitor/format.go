package monitor

import (
	"fmt"
	"sort"
	"strings"
	"time"

	humanize "github.com/dustin/go-humanize"
)

// FormatList renders descriptors for a chat reply, sorted by URL
func FormatList(descriptors []Descriptor, now time.Time) string {
	if len(descriptors) == 0 {
		return "No sources are currently being monitored in this server."
	}

	sorted := make([]Descriptor, len(descriptors))
	copy(sorted, descriptors)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].URL < sorted[j].URL
	})

	lines := make([]string, len(sorted))
	for i, descriptor := range sorted {
		line := fmt.Sprintf("• **%s**: %s (every %dm in <#%s>)",
			strings.ToUpper(descriptor.Type.String()),
			descriptor.URL,
			descriptor.IntervalMinutes,
			descriptor.ChannelID,
		)
		if !descriptor.CreatedAt.IsZero() {
			line += ", added " + humanize.RelTime(descriptor.CreatedAt, now, "ago", "from now")
		}
		lines[i] = line
	}

	return strings.Join(lines, "\n")
}
