package watcher

import (
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/expanova/cita-watcher/common/browser"
)

const maxBannerLength = 500

// portalErrorBanner returns the portal's own error message, if one is shown,
// rendered as markdown for logs.
func portalErrorBanner(page browser.Page, selector string) string {
	if selector == "" {
		return ""
	}
	html, err := page.HTML()
	if err != nil {
		return ""
	}
	return errorBannerFromHTML(html, selector)
}

func errorBannerFromHTML(html, selector string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	banner := doc.Find(selector).First()
	if banner.Length() == 0 {
		return ""
	}
	inner, err := banner.Html()
	if err != nil {
		return ""
	}

	converter := md.NewConverter("", true, nil)
	text, err := converter.ConvertString(inner)
	if err != nil {
		text = banner.Text()
	}
	text = strings.TrimSpace(text)
	if len(text) > maxBannerLength {
		text = text[:maxBannerLength]
	}
	return text
}
