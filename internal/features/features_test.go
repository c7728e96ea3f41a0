package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var defaultTokens = []string{"login", "secure", "bank", "verify", "update", "account"}

func TestExtractBasicURL(t *testing.T) {
	x := NewExtractor(defaultTokens)
	f := x.Extract("https://example.com/login")

	assert.Equal(t, 25, f["url_length"])
	assert.Equal(t, "com", f["tld"])
	assert.Equal(t, "https", f["scheme"])
	assert.Equal(t, 11, f["hostname_length"])
	assert.Equal(t, 1, f["count_dots"])
	assert.Equal(t, 0, f["has_at_symbol"])
	assert.Equal(t, 1, f["suspicious_token_count"])
	assert.Greater(t, f["character_entropy"].(float64), 0.0)
}

func TestExtractIPHost(t *testing.T) {
	x := NewExtractor(defaultTokens)

	f := x.Extract("http://192.168.0.1/login")
	assert.Equal(t, 1, f["has_ip_in_host"])

	f = x.Extract("http://[2001:db8::1]/login")
	assert.Equal(t, 1, f["has_ip_in_host"])

	f = x.Extract("https://example.com/")
	assert.Equal(t, 0, f["has_ip_in_host"])
}

func TestExtractSuspiciousTokens(t *testing.T) {
	x := NewExtractor(defaultTokens)
	f := x.Extract("http://secure-login.example/verify")
	assert.GreaterOrEqual(t, f["suspicious_token_count"].(int), 3)
}

func TestExtractSubdomainStats(t *testing.T) {
	x := NewExtractor(defaultTokens)
	f := x.Extract("https://a.b.example.co.uk/path")

	assert.Equal(t, "co.uk", f["tld"])
	assert.Equal(t, len("example"), f["domain_length"])
	assert.Equal(t, 2, f["subdomain_depth"])
	assert.Equal(t, len("a.b"), f["subdomain_length"])
}

func TestExtractEmptyAndGarbage(t *testing.T) {
	x := NewExtractor(defaultTokens)

	f := x.Extract("")
	assert.Equal(t, 0, f["url_length"])
	assert.Equal(t, 0.0, f["character_entropy"])
	assert.Equal(t, 0.0, f["ratio_digits_to_length"])

	// Non-URL text still produces a full vector.
	f = x.Extract("just some words")
	assert.Equal(t, 15, f["url_length"])
	assert.Equal(t, -1, f["domain_age_days"])
}

func TestSchemaCoversEveryFeature(t *testing.T) {
	x := NewExtractor(defaultTokens)
	f := x.Extract("https://example.com/")
	schema := Schema()

	require.Equal(t, len(schema), len(f))
	for key := range f {
		assert.Contains(t, schema, key)
	}
}

func TestQueryParamCount(t *testing.T) {
	x := NewExtractor(defaultTokens)
	assert.Equal(t, 0, x.Extract("https://example.com/x")["count_query_params"])
	assert.Equal(t, 1, x.Extract("https://example.com/x?a=1")["count_query_params"])
	assert.Equal(t, 3, x.Extract("https://example.com/x?a=1&b=2&c=3")["count_query_params"])
}
