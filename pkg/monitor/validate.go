package monitor

import (
	"regexp"
	"strings"
)

var urlRegex = regexp.MustCompile(`(?i)^https?://\S+$`)

func validateURL(url string) error {
	if !urlRegex.MatchString(url) {
		return invalidInput("url", "please provide a valid http(s) URL")
	}
	// the key of such a url would be the marker or ledger key of another monitor
	if strings.HasSuffix(url, lastCheckSuffix) || strings.HasSuffix(url, sentSuffix) {
		return invalidInput("url", "must not end in %s or %s", lastCheckSuffix, sentSuffix)
	}
	return nil
}

func validateInterval(interval int) error {
	if interval < MinInterval || interval > MaxInterval {
		return invalidInput("interval", "must be between %d and %d minutes", MinInterval, MaxInterval)
	}
	return nil
}

func validateScope(scope string) error {
	if scope == "" {
		return invalidInput("scope", "must not be empty")
	}
	return nil
}
