// Package clientinfo derives a short, human-readable label for the browser
// that reported an integrity event.
package clientinfo

import (
	"strings"

	"github.com/mssola/useragent"
)

const maxLabelLength = 64

// Label returns "Browser major on OS" (for example "Chrome 120 on Windows 10"),
// or "" for an empty User-Agent. Mobile clients carry their platform instead
// of the OS string.
func Label(userAgent string) string {
	userAgent = strings.TrimSpace(userAgent)
	if userAgent == "" {
		return ""
	}
	ua := useragent.New(userAgent)

	browser, version := ua.Browser()
	browser = strings.TrimSpace(browser)
	if browser == "" {
		browser = "Unknown browser"
	} else if major, _, _ := strings.Cut(version, "."); major != "" {
		browser += " " + major
	}

	where := strings.TrimSpace(ua.OS())
	if ua.Mobile() {
		if p := strings.TrimSpace(ua.Platform()); p != "" {
			where = p
		}
	}
	if where == "" {
		where = "unknown OS"
	}

	label := browser + " on " + where
	if len(label) > maxLabelLength {
		label = label[:maxLabelLength]
	}
	return label
}

// Automated reports whether the User-Agent belongs to a bot or script rather
// than an exam browser.
func Automated(userAgent string) bool {
	if strings.TrimSpace(userAgent) == "" {
		return false
	}
	return useragent.New(userAgent).Bot()
}
