package maps

import (
	"regexp"

	"github.com/PuerkitoBio/goquery"

	"lead-scraper/models"
	"lead-scraper/scraper/extract"
)

// mainSelector is the detail page's content region; its presence means the
// listing has rendered.
const mainSelector = `div[role="main"]`

var (
	phonePattern    = regexp.MustCompile(`[\(\d][\d\s\p{Zs}\-\(\)]{6,}`)
	addressPattern  = regexp.MustCompile(`\d+.*\b(?:St|Ave|Rd|Blvd|Dr|Ln|Way|Ct|Pl|Hwy|Pike|Pkwy|Route)\b.*`)
	photoURLPattern = regexp.MustCompile(`^https?://\S*googleusercontent\S*`)

	phoneAttrs = []string{"aria-label", "href", "data-item-id"}
)

// Per-field strategy chains for the detail page, tried in order.
var (
	PhoneField = extract.Chain{
		extract.Attr{Selector: `button[data-tooltip="Copy phone number"]`, Attrs: phoneAttrs, Pattern: phonePattern},
		extract.Attr{Selector: `button[aria-label*="Phone"]`, Attrs: phoneAttrs, Pattern: phonePattern},
		extract.Attr{Selector: `button[data-item-id*="phone"]`, Attrs: phoneAttrs, Pattern: phonePattern},
		extract.Attr{Selector: `a[href^="tel:"]`, Attrs: []string{"href"}, Pattern: phonePattern},
	}

	WebsiteField = extract.Chain{
		extract.Href{Selector: `a[data-tooltip="Open website"]`, ProviderHosts: providerHosts},
		extract.Href{Selector: `a[data-item-id="authority"]`, ProviderHosts: providerHosts},
		extract.Href{Selector: `a[aria-label*="Website"]`, ProviderHosts: providerHosts},
		extract.Href{Selector: `a[aria-label*="website"]`, ProviderHosts: providerHosts},
	}

	AddressField = extract.Chain{
		extract.Attr{Selector: `button[data-tooltip="Copy address"]`, Attrs: []string{"aria-label"}, Pattern: addressPattern},
		extract.Attr{Selector: `button[data-item-id*="address"]`, Attrs: []string{"aria-label"}, Pattern: addressPattern},
		extract.Attr{Selector: `button[aria-label*="Address"]`, Attrs: []string{"aria-label"}, Pattern: addressPattern},
		// Addresses without a recognised street suffix.
		extract.Attr{Selector: `button[data-item-id="address"]`, Attrs: []string{"aria-label"}},
	}

	PhotoURLField = extract.Chain{
		extract.Attr{
			Selector: `button[jsaction*="photo"] img, div.RZ66Rb img, img.p0Hhde`,
			Attrs:    []string{"src"},
			Pattern:  photoURLPattern,
		},
	}
)

// providerHosts are the map provider's own domains; links to them are never
// a business website.
var providerHosts = []string{"google.", "gstatic.", "googleusercontent."}

// EnrichLead fills the contact fields and quality signals of lead from a
// rendered detail page. Fields the page does not carry are set to their zero
// value.
func EnrichLead(doc *goquery.Selection, lead *models.Lead) {
	lead.Phone = PhoneField.Extract(doc)
	lead.Website = WebsiteField.Extract(doc)
	lead.Address = AddressField.Extract(doc)
	lead.PhotoURL = PhotoURLField.Extract(doc)
	lead.QualitySignals = ExtractSignals(doc)
}
