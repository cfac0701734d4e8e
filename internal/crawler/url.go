package crawler

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// urlShape is a conservative http(s)/ftp URL check applied before any fetch.
var urlShape = regexp.MustCompile(
	`(?i)^(http|https|ftp)://[a-z0-9\-.]+\.[a-z]{2,6}(:[0-9]+)?(/([a-z0-9\-._?,'/\\+&%$#=~]*[^.,)(\s])?)?$`,
)

// IsValidURL reports whether rawURL passes the shape check.
func IsValidURL(rawURL string) bool {
	return urlShape.MatchString(rawURL)
}

// ResolveLink turns href into an absolute URL relative to base.
func ResolveLink(base, href string) (string, error) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", fmt.Errorf("empty href")
	}
	if strings.HasPrefix(strings.ToLower(href), "http") {
		return href, nil
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("parse href: %w", err)
	}
	return baseURL.ResolveReference(ref).String(), nil
}

// NormalizeURL standardizes a URL to avoid duplicates.
// It lowercases the scheme and host, removes default ports and fragments,
// and sorts query parameters.
func NormalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	if u.Scheme == "http" && strings.HasSuffix(u.Host, ":80") {
		u.Host = strings.TrimSuffix(u.Host, ":80")
	}
	if u.Scheme == "https" && strings.HasSuffix(u.Host, ":443") {
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}

	u.Fragment = ""

	q := u.Query()
	u.RawQuery = q.Encode()

	return u.String(), nil
}
