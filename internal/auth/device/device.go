// Package device turns a User-Agent header into the short label shown in
// session lists and login alerts.
package device

import (
	"strings"

	"github.com/mssola/useragent"
)

const Unknown = "Unknown device"

// Name returns "Browser on OS", or "Browser on Platform" for phones.
func Name(userAgent string) string {
	userAgent = strings.TrimSpace(userAgent)
	if userAgent == "" {
		return Unknown
	}
	ua := useragent.New(userAgent)
	if ua.Bot() {
		return "Automated client"
	}

	browser, _ := ua.Browser()
	browser = strings.TrimSpace(browser)
	if browser == "" {
		browser = "Unknown browser"
	}
	if ua.Mobile() {
		if platform := strings.TrimSpace(ua.Platform()); platform != "" {
			return browser + " on " + platform
		}
	}
	os := strings.TrimSpace(ua.OS())
	if os == "" {
		os = "unknown OS"
	}
	return browser + " on " + os
}
