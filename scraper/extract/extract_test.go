package extract

import (
	"regexp"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func mustDoc(t *testing.T, rawHTML string) *goquery.Selection {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return doc.Selection
}

var phonePattern = regexp.MustCompile(`[\(\d][\d\s\-\(\)]{6,}`)

func TestChainFirstSuccessWins(t *testing.T) {
	root := mustDoc(t, `
		<div role="main">
			<button aria-label="Phone: (732) 555-0147" data-item-id="phone:tel:7325550147"></button>
			<a href="tel:+17325550100">Call</a>
		</div>`)

	phone := Chain{
		Attr{Selector: `button[data-tooltip="Copy phone number"]`, Attrs: []string{"aria-label"}, Pattern: phonePattern},
		Attr{Selector: `button[aria-label*="Phone"]`, Attrs: []string{"aria-label", "data-item-id"}, Pattern: phonePattern},
		Attr{Selector: `a[href^="tel:"]`, Attrs: []string{"href"}, Pattern: phonePattern},
	}

	if got, want := phone.Extract(root), "(732) 555-0147"; got != want {
		t.Errorf("phone = %q; want %q", got, want)
	}
}

func TestAttrTelHref(t *testing.T) {
	root := mustDoc(t, `<a href="tel:+1 732-555-0100">Call</a>`)
	a := Attr{Selector: `a[href^="tel:"]`, Attrs: []string{"href"}, Pattern: phonePattern}
	if got, want := a.Extract(root), "+1 732-555-0100"; got != want {
		t.Errorf("tel href = %q; want %q", got, want)
	}
}

func TestAttrStripsLabelPrefix(t *testing.T) {
	root := mustDoc(t, `<button data-item-id="address" aria-label="Address: 12 Main St, Edison, NJ 08817"></button>`)
	a := Attr{Selector: `button[data-item-id*="address"]`, Attrs: []string{"aria-label"}}
	if got, want := a.Extract(root), "12 Main St, Edison, NJ 08817"; got != want {
		t.Errorf("address = %q; want %q", got, want)
	}
}

func TestAttrFallsBackToText(t *testing.T) {
	root := mustDoc(t, `<button data-item-id="address"><div>Suite 4</div><div>77 Route 18 Hwy, East Brunswick</div></button>`)
	a := Attr{
		Selector: `button[data-item-id*="address"]`,
		Attrs:    []string{"aria-label"},
		Pattern:  regexp.MustCompile(`\d+.*(?:St|Ave|Rd|Hwy|Route)`),
	}
	if got, want := a.Extract(root), "77 Route 18 Hwy"; got != want {
		t.Errorf("address = %q; want %q", got, want)
	}
}

func TestMissingElementIsEmpty(t *testing.T) {
	root := mustDoc(t, `<div role="main"><h1>Nothing here</h1></div>`)
	c := Chain{
		Attr{Selector: `button[data-tooltip="Copy phone number"]`, Attrs: []string{"aria-label"}},
		Href{Selector: `a[data-item-id="authority"]`, ProviderHosts: []string{"google."}},
		Attr{Selector: `:::not a selector`, Attrs: []string{"href"}},
	}
	if got := c.Extract(root); got != "" {
		t.Errorf("expected empty value, got %q", got)
	}
	if got := c.Extract(nil); got != "" {
		t.Errorf("nil root: expected empty value, got %q", got)
	}
}

func TestHrefFilter(t *testing.T) {
	website := func(a string) Href {
		return Href{Selector: a, ProviderHosts: []string{"google."}}
	}

	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "absolute external link",
			html: `<a data-item-id="authority" href="https://joesplumbing.com/">Website</a>`,
			want: "https://joesplumbing.com/",
		},
		{
			name: "provider link rejected",
			html: `<a data-item-id="authority" href="https://www.google.com/maps/place/x">Website</a>`,
			want: "",
		},
		{
			name: "redirect unwrapped",
			html: `<a data-item-id="authority" href="https://www.google.com/url?q=http://acme-hvac.net/&amp;sa=U">Website</a>`,
			want: "http://acme-hvac.net/",
		},
		{
			name: "relative link rejected, bare domain label promoted",
			html: `<a data-item-id="authority" href="/local/x" aria-label="Website: acme-hvac.net">Website</a>`,
			want: "https://acme-hvac.net",
		},
		{
			name: "label with spaces is not a domain",
			html: `<a data-item-id="authority" aria-label="Open website">Website</a>`,
			want: "",
		},
	}

	for _, tt := range tests {
		root := mustDoc(t, tt.html)
		if got := website(`a[data-item-id="authority"]`).Extract(root); got != tt.want {
			t.Errorf("%s: got %q; want %q", tt.name, got, tt.want)
		}
	}
}

func TestLooksLikeDomain(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"example.com", true},
		{"www.example.co.uk", true},
		{"Open website", false},
		{"example", false},
		{"example.", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := LooksLikeDomain(tt.in); got != tt.want {
			t.Errorf("LooksLikeDomain(%q) = %v; want %v", tt.in, got, tt.want)
		}
	}
}

func TestExists(t *testing.T) {
	root := mustDoc(t, `<div aria-label="Hours"><table class="eK4R0e"></table></div>`)
	if !Exists(root, `div[aria-label*="About"]`, `table.eK4R0e`) {
		t.Error("Exists should find the second selector")
	}
	if Exists(root, `div[aria-label*="About"]`) {
		t.Error("Exists should not find a missing selector")
	}
}
