package scrape

import (
	"net/http"
	"strings"
)

// BlockType describes the kind of block detected.
type BlockType string

const (
	BlockNone        BlockType = ""
	BlockCloudflare  BlockType = "cloudflare"
	BlockCaptcha     BlockType = "captcha"
	BlockJSShell     BlockType = "js_shell"
	BlockRateLimited BlockType = "rate_limited"
	BlockLoginWall   BlockType = "login_wall"
)

// challengePageMax is the body size under which challenge markers are
// trusted. Real restaurant pages often embed reCAPTCHA on contact forms.
const challengePageMax = 16 * 1024

// DetectBlock checks a response for anti-bot interstitials instead of the
// requested page.
func DetectBlock(resp *http.Response, body []byte) (bool, BlockType) {
	if resp == nil {
		return false, BlockNone
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return true, BlockRateLimited
	}

	if resp.StatusCode == 403 || resp.StatusCode == 503 {
		if resp.Header.Get("cf-ray") != "" ||
			resp.Header.Get("cf-mitigated") != "" ||
			strings.EqualFold(resp.Header.Get("server"), "cloudflare") {
			return true, BlockCloudflare
		}
	}

	if len(body) > challengePageMax {
		return false, BlockNone
	}
	lower := strings.ToLower(string(body))

	if strings.Contains(lower, "checking your browser") ||
		strings.Contains(lower, "cf-browser-verification") ||
		strings.Contains(lower, "just a moment...") {
		return true, BlockCloudflare
	}

	if strings.Contains(lower, "captcha") &&
		(strings.Contains(lower, "complete") || strings.Contains(lower, "verify")) {
		return true, BlockCaptcha
	}

	// Social sites answer anonymous requests with a login form.
	if strings.Contains(lower, "log in to continue") ||
		strings.Contains(lower, "login_required") {
		return true, BlockLoginWall
	}

	if len(body) < 2000 {
		if strings.Contains(lower, "<noscript") && strings.Contains(lower, "enable javascript") {
			return true, BlockJSShell
		}
		if strings.Contains(lower, `http-equiv="refresh"`) {
			return true, BlockJSShell
		}
	}

	return false, BlockNone
}
