// Package device decides whether a checkout client should get the gateway popup (mobile)
// or a scannable QR code (desktop). The decision is a heuristic, so it is a strategy that
// callers can replace.
package device

import "regexp"

// Info is what the host page reports about the client.
type Info struct {
	ViewportWidth int    `json:"viewport_width"`
	UserAgent     string `json:"user_agent"`
}

type Classifier interface {
	IsMobile(info Info) bool
}

// ClassifierFunc adapts a plain function.
type ClassifierFunc func(Info) bool

func (f ClassifierFunc) IsMobile(info Info) bool { return f(info) }

const DefaultMaxMobileWidth = 768

var mobileUserAgent = regexp.MustCompile(`(?i)Android|iPhone|iPad|iPod|BlackBerry|IEMobile|Opera Mini`)

// ViewportOrUserAgent treats a client as mobile when its viewport is at most MaxWidth
// pixels wide or its user agent carries a known mobile signature.
type ViewportOrUserAgent struct {
	MaxWidth int
}

func Default() ViewportOrUserAgent {
	return ViewportOrUserAgent{MaxWidth: DefaultMaxMobileWidth}
}

func (c ViewportOrUserAgent) IsMobile(info Info) bool {
	if info.ViewportWidth > 0 && info.ViewportWidth <= c.MaxWidth {
		return true
	}
	return mobileUserAgent.MatchString(info.UserAgent)
}
