package core

import (
	"net/url"
	"strings"
)

// Source trust tiers, lower is more trusted. The table is editorial
// configuration: tier 1 is IFCN-certified fact checkers, tier 2
// institutional primary sources, tier 3 established news outlets,
// tier 4 user-generated platforms. Unknown domains rank tier 4.
const (
	TierFactChecker   = 1
	TierInstitutional = 2
	TierNews          = 3
	TierSocial        = 4
)

var tier1Domains = map[string]struct{}{
	"politifact.com": {}, "factcheck.org": {}, "reuters.com": {}, "apnews.com": {},
	"leadstories.com": {}, "washingtonpost.com": {}, "checkyourfact.com": {}, "snopes.com": {},
	"poynter.org": {}, "wisconsinwatch.org": {}, "univision.com": {}, "telemundo.com": {},
	"factcheck.afp.com": {}, "fullfact.org": {}, "sciencefeedback.co": {}, "africacheck.org": {},
	"dw.com": {}, "correctiv.org": {}, "maldita.es": {}, "chequeado.com": {},
	"aosfatos.org": {}, "lupa.news": {}, "pesacheck.org": {}, "stopfake.org": {},
	"voxukraine.org": {}, "rappler.com": {}, "thejournal.ie": {}, "poligrafo.sapo.pt": {},
	"newtral.es": {}, "faktisk.no": {}, "ellinikahoaxes.gr": {}, "teyit.org": {},
	"tfc-taiwan.org.tw": {}, "factcheckcenter.jp": {},
}

var tier2Domains = map[string]struct{}{
	"who.int": {}, "arxiv.org": {}, "nasa.gov": {}, "cdc.gov": {}, "nih.gov": {},
	"europa.eu": {}, "whitehouse.gov": {}, "congress.gov": {}, "supremecourt.gov": {},
}

var tier2Suffixes = []string{".gov", ".edu", ".eu"}

var tier3Domains = map[string]struct{}{
	"bbc.com": {}, "bbc.co.uk": {}, "nytimes.com": {}, "wsj.com": {}, "bloomberg.com": {},
	"aljazeera.com": {}, "theguardian.com": {}, "npr.org": {},
	"mediabiasfactcheck.com": {}, "allsides.com": {}, "adfontesmedia.com": {}, "ground.news": {},
}

// TierForURL maps a source URL to its trust tier.
func TierForURL(rawURL string) int {
	domain := domainOf(rawURL)
	if domain == "" {
		return TierSocial
	}

	if matchDomain(domain, tier1Domains) {
		return TierFactChecker
	}
	if matchDomain(domain, tier2Domains) {
		return TierInstitutional
	}
	for _, suffix := range tier2Suffixes {
		if strings.HasSuffix(domain, suffix) {
			return TierInstitutional
		}
	}
	if matchDomain(domain, tier3Domains) {
		return TierNews
	}
	return TierSocial
}

// SourceNameForURL derives a display name from the domain.
func SourceNameForURL(rawURL, title string) string {
	domain := domainOf(rawURL)
	if domain == "" {
		if title != "" {
			return title
		}
		return "Unknown"
	}

	parts := strings.Split(domain, ".")
	if len(parts) >= 2 {
		return capitalize(parts[len(parts)-2])
	}
	return capitalize(domain)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func domainOf(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

func matchDomain(domain string, table map[string]struct{}) bool {
	if _, ok := table[domain]; ok {
		return true
	}
	// Subdomains inherit the parent's tier.
	for d := range table {
		if strings.HasSuffix(domain, "."+d) {
			return true
		}
	}
	return false
}
