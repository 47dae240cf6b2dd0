// Package extract reads best-effort field values out of an HTML snapshot.
//
// Every field is described by an ordered Chain of Strategy values. Strategies
// are tried in order and the first non-empty value wins; when all of them miss
// the chain yields "". A missing element is a normal outcome, never an error.
package extract

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Strategy reads one candidate value from root, or "" when it finds nothing.
type Strategy interface {
	Extract(root *goquery.Selection) string
}

// Chain tries each Strategy in order.
type Chain []Strategy

// Extract returns the first non-empty value produced by the chain.
func (c Chain) Extract(root *goquery.Selection) string {
	if root == nil {
		return ""
	}
	for _, s := range c {
		if v := s.Extract(root); v != "" {
			return v
		}
	}
	return ""
}

// labelPrefix matches aria-label prefixes such as "Address: " or "Phone: ".
var labelPrefix = regexp.MustCompile(`^[^:]+:\s*`)

// Attr reads the first element matching Selector. Each named attribute is
// tried in order, then the element's visible text. With a Pattern, only the
// first match of the pattern is accepted; without one, a "Label: " prefix is
// stripped from attribute values.
type Attr struct {
	Selector string
	Attrs    []string
	Pattern  *regexp.Regexp
}

func (a Attr) Extract(root *goquery.Selection) string {
	el := root.Find(a.Selector).First()
	if el.Length() == 0 {
		return ""
	}

	for _, name := range a.Attrs {
		val := strings.TrimSpace(el.AttrOr(name, ""))
		if val == "" {
			continue
		}
		if name == "href" && strings.HasPrefix(strings.ToLower(val), "tel:") {
			return strings.TrimSpace(val[len("tel:"):])
		}
		if a.Pattern != nil {
			if m := a.Pattern.FindString(val); m != "" {
				return strings.TrimSpace(m)
			}
			continue
		}
		if cleaned := strings.TrimSpace(labelPrefix.ReplaceAllString(val, "")); cleaned != "" {
			return cleaned
		}
	}

	text := InnerText(el)
	if text == "" {
		return ""
	}
	if a.Pattern != nil {
		return strings.TrimSpace(a.Pattern.FindString(text))
	}
	return text
}

// Href extracts an outbound website link from the first element matching
// Selector. Only absolute http(s) links whose host does not belong to the map
// provider are accepted; redirect wrappers are unwrapped first. When the href
// is unusable, a bare domain in the aria-label is promoted to an https:// URL.
type Href struct {
	Selector      string
	ProviderHosts []string
}

func (h Href) Extract(root *goquery.Selection) string {
	el := root.Find(h.Selector).First()
	if el.Length() == 0 {
		return ""
	}

	if href := UnwrapRedirect(strings.TrimSpace(el.AttrOr("href", ""))); href != "" {
		if u, err := url.Parse(href); err == nil && u.IsAbs() &&
			(u.Scheme == "http" || u.Scheme == "https") && u.Host != "" &&
			!h.isProviderHost(u.Hostname()) {
			return href
		}
	}

	aria := strings.TrimSpace(labelPrefix.ReplaceAllString(strings.TrimSpace(el.AttrOr("aria-label", "")), ""))
	if LooksLikeDomain(aria) {
		if !strings.HasPrefix(strings.ToLower(aria), "http") {
			aria = "https://" + strings.TrimLeft(aria, "/")
		}
		if u, err := url.Parse(aria); err == nil && !h.isProviderHost(u.Hostname()) {
			return aria
		}
	}
	return ""
}

func (h Href) isProviderHost(host string) bool {
	host = strings.ToLower(host)
	for _, p := range h.ProviderHosts {
		if p != "" && strings.Contains(host, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

// UnwrapRedirect returns the target of a provider click-through URL
// (".../url?q=<target>"), or raw unchanged.
func UnwrapRedirect(raw string) string {
	if raw == "" || !strings.Contains(raw, "/url?") {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	for _, key := range []string{"q", "url"} {
		if target := u.Query().Get(key); target != "" {
			return target
		}
	}
	return raw
}

// LooksLikeDomain reports whether s is a single token containing a dot,
// e.g. "joesplumbing.com".
func LooksLikeDomain(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, " \t\n") {
		return false
	}
	return strings.Contains(s, ".") && !strings.HasSuffix(s, ".")
}

// Exists reports whether any of the selectors matches under root.
func Exists(root *goquery.Selection, selectors ...string) bool {
	if root == nil {
		return false
	}
	for _, sel := range selectors {
		if root.Find(sel).Length() > 0 {
			return true
		}
	}
	return false
}
