package xrespcache

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey_QueryOrderIndependent(t *testing.T) {
	a, _ := url.ParseQuery("a=1&b=2")
	b, _ := url.ParseQuery("b=2&a=1")
	assert.Equal(t, Key("/p", a), Key("/p", b))
	assert.True(t, strings.HasPrefix(Key("/p", a), "cache:"))
	assert.Len(t, Key("/p", a), len("cache:")+64)
}

func TestKey_Distinguishes(t *testing.T) {
	base, _ := url.ParseQuery("a=1&a=2")
	swapped, _ := url.ParseQuery("a=2&a=1")

	assert.NotEqual(t, Key("/p", base), Key("/q", base))
	assert.NotEqual(t, Key("/p", base), Key("/p", swapped))
	assert.NotEqual(t, Key("/p", nil), Key("/p", base))
}

func TestFilterHeader_KeepsWhitelistOnly(t *testing.T) {
	src := http.Header{}
	src.Set("Content-Type", "text/html")
	src.Add("Vary", "Accept")
	src.Add("Vary", "Origin")
	src.Set("Set-Cookie", "x=1")

	got := filterHeader(src, DefaultHeaderWhitelist)
	assert.Equal(t, "text/html", got.Get("Content-Type"))
	assert.Equal(t, []string{"Accept", "Origin"}, got.Values("Vary"))
	assert.Empty(t, got.Get("Set-Cookie"))
}
