package watcher

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorBannerFromHTML(t *testing.T) {
	html := `<html><body>
		<div class="mensaje-error"><p>No hay <strong>citas</strong> disponibles.</p></div>
		<div class="mensaje-error">second</div>
	</body></html>`

	assert.Equal(t, "No hay **citas** disponibles.", errorBannerFromHTML(html, ".mensaje-error"))
	assert.Empty(t, errorBannerFromHTML(html, ".alert-danger"))
}

func TestErrorBannerIsTruncated(t *testing.T) {
	html := `<div class="error">` + strings.Repeat("a", 2*maxBannerLength) + `</div>`

	assert.Len(t, errorBannerFromHTML(html, ".error"), maxBannerLength)
}

func TestPortalErrorBannerWithoutSelector(t *testing.T) {
	page := newFakePage(`<div class="error">boom</div>`)

	assert.Empty(t, portalErrorBanner(page, ""))
	assert.Empty(t, page.Calls())
	assert.Equal(t, "boom", portalErrorBanner(page, ".error"))
}
