package signals

import (
	"net/url"
	"regexp"
	"strings"
	"time"
)

const (
	// MobileBreakpoint is the viewport width below which a visitor counts as mobile.
	MobileBreakpoint = 768

	defaultViewportWidth = 1024
)

var searchOrganicDomains = []string{
	"google.com", "google.co", "bing.com", "duckduckgo.com",
	"yahoo.com", "baidu.com", "yandex.com", "ecosia.org",
}

var socialDomains = []string{
	"instagram.com", "tiktok.com", "facebook.com", "fb.com", "twitter.com", "x.com",
	"reddit.com", "youtube.com", "linkedin.com", "pinterest.com", "threads.net", "snapchat.com",
}

var reviewSiteDomains = []string{
	"wirecutter.com", "rtings.com", "tomsguide.com", "techradar.com", "pcmag.com",
	"theverge.com", "cnet.com", "tomshardware.com", "notebookcheck.net",
}

var emailDomains = []string{
	"mail.google.com", "outlook.live.com", "mail.yahoo.com", "mailchimp.com",
	"sendgrid.net", "klaviyo.com", "constantcontact.com",
}

var paidClickParams = []string{"gclid", "msclkid", "fbclid", "dclid"}

var (
	tokenSplit  = regexp.MustCompile(`[\s+\-,]+`)
	mobileUA    = regexp.MustCompile(`(?i)Android|webOS|iPhone|iPod|BlackBerry|IEMobile|Opera Mini`)
	tabletUA    = regexp.MustCompile(`(?i)iPad|Tablet`)
	androidUA   = regexp.MustCompile(`(?i)Android`)
	mobileToken = regexp.MustCompile(`(?i)Mobile`)
)

// Parse turns a raw environment plus optional overrides into Signals. It
// never fails: unreadable input degrades to empty/direct/desktop values.
func Parse(env Environment, ov Overrides) Signals {
	rawURL := env.URL
	if ov.URL != nil {
		rawURL = *ov.URL
	}
	referrer := env.Referrer
	if ov.Referrer != nil {
		referrer = *ov.Referrer
	}
	userAgent := env.UserAgent
	if ov.UserAgent != nil {
		userAgent = *ov.UserAgent
	}
	viewport := env.ViewportWidth
	if ov.ViewportWidth != nil {
		viewport = *ov.ViewportWidth
	}
	if viewport <= 0 {
		viewport = defaultViewportWidth
	}
	now := env.Now
	if now.IsZero() {
		now = time.Now()
	}
	hour := now.Hour()
	if ov.Hour != nil {
		hour = *ov.Hour
	}

	query, pageHost := splitURL(rawURL)
	params, _ := url.ParseQuery(query)

	utm := parseUTM(params)
	return Signals{
		UTM:      utm,
		Referrer: classifyReferrer(referrer, params, utm.Medium, pageHost),
		Device: Device{
			Type:        detectDevice(userAgent, viewport),
			TimeContext: timeContext(hour),
			DayType:     dayType(now.Weekday()),
		},
		RawURL:  rawURL,
		Persona: persona(params),
	}
}

// Tokenize lower-cases s and splits it on whitespace, '+', '-' and ','.
func Tokenize(s string) []string {
	tokens := []string{}
	for _, t := range tokenSplit.Split(strings.ToLower(s), -1) {
		if t = strings.TrimSpace(t); t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// splitURL returns the raw query string and hostname of a page URL. When the
// URL does not parse, the text after the first '?' is used as the query.
func splitURL(raw string) (query, host string) {
	u, err := url.Parse(raw)
	if err != nil {
		if i := strings.IndexByte(raw, '?'); i != -1 {
			return raw[i+1:], ""
		}
		return "", ""
	}
	return u.RawQuery, strings.ToLower(u.Hostname())
}

func parseUTM(params url.Values) UTM {
	return UTM{
		Term:     Tokenize(params.Get("utm_term")),
		Source:   strings.ToLower(strings.TrimSpace(params.Get("utm_source"))),
		Medium:   strings.ToLower(strings.TrimSpace(params.Get("utm_medium"))),
		Campaign: strings.ToLower(strings.TrimSpace(params.Get("utm_campaign"))),
	}
}

func persona(params url.Values) string {
	if p := strings.TrimSpace(params.Get("persona")); p != "" {
		return strings.ToLower(p)
	}
	return strings.ToLower(strings.TrimSpace(params.Get("intent")))
}

// classifyReferrer applies the first matching rule: paid click id, email,
// review site, social, organic search, empty or same-site, unknown.
func classifyReferrer(referrer string, params url.Values, medium, pageHost string) Referrer {
	referrer = strings.TrimSpace(referrer)
	host := hostname(referrer)

	for _, p := range paidClickParams {
		if params.Has(p) {
			return Referrer{URL: referrer, Type: ReferrerSearchPaid}
		}
	}
	if medium == "email" || domainMatches(host, emailDomains) {
		return Referrer{URL: referrer, Type: ReferrerEmail}
	}
	switch {
	case domainMatches(host, reviewSiteDomains):
		return Referrer{URL: referrer, Type: ReferrerReviewSite}
	case domainMatches(host, socialDomains):
		return Referrer{URL: referrer, Type: ReferrerSocial}
	case domainMatches(host, searchOrganicDomains):
		return Referrer{URL: referrer, Type: ReferrerSearchOrganic}
	case referrer == "":
		return Referrer{URL: "", Type: ReferrerDirect}
	case host != "" && host == pageHost:
		return Referrer{URL: referrer, Type: ReferrerDirect}
	}
	return Referrer{URL: referrer, Type: ReferrerUnknown}
}

func hostname(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// domainMatches reports whether host is one of domains or a subdomain of one.
func domainMatches(host string, domains []string) bool {
	if host == "" {
		return false
	}
	for _, d := range domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func detectDevice(userAgent string, viewport int) DeviceType {
	if viewport < MobileBreakpoint {
		return DeviceMobile
	}
	if tabletUA.MatchString(userAgent) ||
		(androidUA.MatchString(userAgent) && !mobileToken.MatchString(userAgent)) {
		return DeviceTablet
	}
	if mobileUA.MatchString(userAgent) {
		return DeviceMobile
	}
	return DeviceDesktop
}

func timeContext(hour int) TimeContext {
	switch {
	case hour >= 6 && hour < 12:
		return TimeMorning
	case hour >= 12 && hour < 17:
		return TimeAfternoon
	case hour >= 17 && hour < 22:
		return TimeEvening
	default:
		return TimeNight
	}
}

func dayType(d time.Weekday) DayType {
	if d == time.Saturday || d == time.Sunday {
		return DayWeekend
	}
	return DayWeekday
}
