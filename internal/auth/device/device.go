// Package device labels the browser behind a request for sign-in and
// registration logs. Nothing here is used for authorization.
package device

import (
	"strings"

	"github.com/mssola/useragent"
)

const unknownDevice = "Unknown Device"

// Info is the parsed view of a User-Agent header.
type Info struct {
	Browser string
	OS      string
	Mobile  bool
	Bot     bool
}

func Describe(userAgent string) Info {
	if strings.TrimSpace(userAgent) == "" {
		return Info{}
	}
	ua := useragent.New(userAgent)
	browser, _ := ua.Browser()
	os := ua.OS()
	if ua.Mobile() && ua.Platform() != "" {
		os = ua.Platform()
	}
	return Info{
		Browser: strings.TrimSpace(browser),
		OS:      strings.TrimSpace(os),
		Mobile:  ua.Mobile(),
		Bot:     ua.Bot(),
	}
}

// DisplayName renders "Browser on OS", e.g. "Chrome on macOS".
func DisplayName(userAgent string) string {
	if strings.TrimSpace(userAgent) == "" {
		return unknownDevice
	}
	info := Describe(userAgent)
	browser, os := info.Browser, info.OS
	if browser == "" {
		browser = "Unknown Browser"
	}
	if os == "" {
		os = "Unknown OS"
	}
	return browser + " on " + os
}
