// Package features derives lexical signals from a raw URL string. The
// extraction is deterministic and does no network lookups, so it is safe to
// run inline on the request path.
package features

import (
	"math"
	"net/url"
	"regexp"
	"strings"
	"unicode"
)

var ipv4Pattern = regexp.MustCompile(`^(?:\d{1,3}\.){3}\d{1,3}$`)

// multiLabelSuffixes covers the common two-label public suffixes so the
// registered domain splits correctly without a full public-suffix list.
var multiLabelSuffixes = map[string]struct{}{
	"co.uk": {}, "org.uk": {}, "gov.uk": {}, "ac.uk": {},
	"com.au": {}, "net.au": {}, "org.au": {},
	"co.jp": {}, "co.nz": {}, "co.in": {}, "com.br": {}, "com.cn": {},
}

// Extractor computes the lexical feature vector. Tokens are the substrings
// counted case-insensitively as suspicious.
type Extractor struct {
	tokens []string
}

func NewExtractor(suspiciousTokens []string) *Extractor {
	lowered := make([]string, 0, len(suspiciousTokens))
	for _, t := range suspiciousTokens {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			lowered = append(lowered, t)
		}
	}
	return &Extractor{tokens: lowered}
}

// Extract returns the feature map for raw. Unparseable input still produces
// a full vector; string-level counters never depend on parsing.
func (x *Extractor) Extract(raw string) map[string]any {
	raw = strings.TrimSpace(raw)

	var scheme, host, path, query string
	if parsed, err := url.Parse(raw); err == nil {
		scheme = strings.ToLower(parsed.Scheme)
		host = parsed.Host
		path = parsed.Path
		query = parsed.RawQuery
	}
	if host == "" {
		host = path
	}
	if i := strings.LastIndex(host, ":"); i >= 0 && !strings.Contains(host, "]") {
		host = host[:i]
	}
	subdomain, domain, suffix := splitHost(host)

	countDigits := 0
	countSpecial := 0
	for _, r := range raw {
		switch {
		case unicode.IsDigit(r):
			countDigits++
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			countSpecial++
		}
	}
	urlLength := len(raw)
	ratioDigits := 0.0
	ratioSpecial := 0.0
	if urlLength > 0 {
		ratioDigits = float64(countDigits) / float64(urlLength)
		ratioSpecial = float64(countSpecial) / float64(urlLength)
	}

	queryParams := 0
	if query != "" {
		queryParams = strings.Count(query, "&") + 1
	}
	subdomainDepth := 0
	if subdomain != "" {
		for _, part := range strings.Split(subdomain, ".") {
			if part != "" {
				subdomainDepth++
			}
		}
	}

	return map[string]any{
		"url_length":                    urlLength,
		"hostname_length":               len(host),
		"count_dots":                    strings.Count(raw, "."),
		"count_hyphens":                 strings.Count(raw, "-"),
		"count_underscores":             strings.Count(raw, "_"),
		"count_digits":                  countDigits,
		"count_subdirs":                 strings.Count(path, "/"),
		"count_query_params":            queryParams,
		"has_at_symbol":                 boolToInt(strings.Contains(raw, "@")),
		"has_double_slash_in_path":      boolToInt(strings.Contains(path, "//") && !strings.HasPrefix(raw, "//")),
		"suspicious_token_count":        x.countTokens(raw),
		"tld":                           suffix,
		"character_entropy":             shannonEntropy(raw),
		"ratio_digits_to_length":        ratioDigits,
		"ratio_special_chars_to_length": ratioSpecial,
		"has_ip_in_host":                boolToInt(hasIPInHost(host)),
		"domain_age_days":               -1,
		"scheme":                        scheme,
		"subdomain_length":              len(subdomain),
		"subdomain_depth":               subdomainDepth,
		"domain_length":                 len(domain),
	}
}

// Schema documents every feature key Extract emits.
func Schema() map[string]string {
	return map[string]string{
		"url_length":                    "Total length of the URL string",
		"hostname_length":               "Length of the hostname",
		"count_dots":                    "Number of '.' characters in the URL",
		"count_hyphens":                 "Number of '-' characters in the URL",
		"count_underscores":             "Number of '_' characters in the URL",
		"count_digits":                  "Total digit characters in the URL",
		"count_subdirs":                 "Number of '/' path segments",
		"count_query_params":            "Count of query parameters (heuristic)",
		"has_at_symbol":                 "Presence of '@' symbol (common in phishing obfuscation)",
		"has_double_slash_in_path":      "Presence of '//' later in path",
		"suspicious_token_count":        "Count of suspicious tokens like 'login','secure'",
		"tld":                           "Top-level domain (suffix)",
		"character_entropy":             "Shannon entropy of the URL string",
		"ratio_digits_to_length":        "Digits / URL length",
		"ratio_special_chars_to_length": "Special char count / URL length",
		"has_ip_in_host":                "Whether hostname is an IP address literal",
		"domain_age_days":               "Placeholder for domain age (days) if available; -1 = unknown",
		"scheme":                        "URL scheme (http/https)",
		"subdomain_length":              "Length of the subdomain string",
		"subdomain_depth":               "Number of labels in subdomain (e.g., a.b -> 2)",
		"domain_length":                 "Length of the registered domain name",
	}
}

func (x *Extractor) countTokens(s string) int {
	if s == "" {
		return 0
	}
	low := strings.ToLower(s)
	count := 0
	for _, t := range x.tokens {
		count += strings.Count(low, t)
	}
	return count
}

func shannonEntropy(s string) float64 {
	if s == "" {
		return 0
	}
	counts := make(map[rune]int)
	total := 0
	for _, r := range s {
		counts[r]++
		total++
	}
	entropy := 0.0
	for _, n := range counts {
		p := float64(n) / float64(total)
		entropy -= p * math.Log2(p)
	}
	return entropy
}

func hasIPInHost(host string) bool {
	if host == "" {
		return false
	}
	host = strings.Trim(host, "[]")
	if ipv4Pattern.MatchString(host) {
		return true
	}
	// Bare colon in a trimmed host means an IPv6 literal.
	return strings.Contains(host, ":")
}

// splitHost approximates public-suffix splitting: the last label (or a known
// two-label suffix) is the tld, the label before it the registered domain,
// and everything left the subdomain.
func splitHost(host string) (subdomain, domain, suffix string) {
	host = strings.Trim(strings.ToLower(host), ".")
	if host == "" || hasIPInHost(host) {
		return "", host, ""
	}
	labels := strings.Split(host, ".")
	if len(labels) == 1 {
		return "", labels[0], ""
	}
	suffixLen := 1
	if len(labels) >= 2 {
		last2 := labels[len(labels)-2] + "." + labels[len(labels)-1]
		if _, ok := multiLabelSuffixes[last2]; ok && len(labels) >= 3 {
			suffixLen = 2
		}
	}
	suffix = strings.Join(labels[len(labels)-suffixLen:], ".")
	rest := labels[:len(labels)-suffixLen]
	domain = rest[len(rest)-1]
	subdomain = strings.Join(rest[:len(rest)-1], ".")
	return subdomain, domain, suffix
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
