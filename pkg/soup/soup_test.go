package soup

import (
	"testing"

	"github.com/microcosm-cc/bluemonday"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClean_RemovesScripts(t *testing.T) {
	out, err := Clean(`<p>Hello<script>alert(1)</script> <b onclick="x()">world</b></p>`, "", nil)
	require.NoError(t, err)
	assert.Equal(t, `<p>Hello <b>world</b></p>`, out)
}

func TestClean_AbsolutizesLinks(t *testing.T) {
	out, err := Clean(`<a href="/about">about</a><img src="img/logo.png">`, "http://example.com/docs/", bluemonday.UGCPolicy())
	require.NoError(t, err)
	assert.Contains(t, out, `href="http://example.com/about"`)
	assert.Contains(t, out, `src="http://example.com/docs/img/logo.png"`)
}

func TestClean_StrictPolicy(t *testing.T) {
	out, err := Clean(`<p>plain <i>text</i></p>`, "", bluemonday.StrictPolicy())
	require.NoError(t, err)
	assert.Equal(t, "plain text", out)
}

func TestIsValid(t *testing.T) {
	policy := bluemonday.UGCPolicy()

	assert.True(t, IsValid(`<p>Hello <b>there</b></p>`, policy))
	assert.True(t, IsValid(`<a href="http://example.com/">link</a>`, policy))
	assert.False(t, IsValid(`<p onclick="steal()">Hello</p>`, policy))
	assert.False(t, IsValid(`<p>Hi</p><script>alert(1)</script>`, policy))
	assert.True(t, IsValid(`just text`, nil))
}

func TestParse(t *testing.T) {
	doc, err := Parse(`<title>T</title><p>x</p>`, "http://example.com/")
	require.NoError(t, err)
	assert.Equal(t, "T", doc.Title())
	assert.Equal(t, "http://example.com/", doc.BaseURI)

	frag, err := ParseBodyFragment(`<p>x</p>`, "")
	require.NoError(t, err)
	assert.Equal(t, "x", frag.Text())
}

func TestConnect(t *testing.T) {
	c := Connect("http://example.com/")
	require.NoError(t, c.Request().Err())
	assert.Equal(t, "example.com", c.Request().URL().Host)
}
