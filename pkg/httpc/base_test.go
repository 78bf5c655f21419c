package httpc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBase_HeaderCaseInsensitive(t *testing.T) {
	b := newBase()
	require.NoError(t, b.SetHeader("Accept-Encoding", "gzip"))
	require.NoError(t, b.SetHeader("accept-encoding", "br"))

	v, ok := b.Header("ACCEPT-ENCODING")
	assert.True(t, ok)
	assert.Equal(t, "br", v)
	assert.Len(t, b.Headers(), 1)
	assert.Equal(t, map[string]string{"accept-encoding": "br"}, b.Headers())
}

func TestBase_HeaderMissing(t *testing.T) {
	b := newBase()
	v, ok := b.Header("X-Missing")
	assert.False(t, ok)
	assert.Empty(t, v)
	assert.False(t, b.HasHeader("X-Missing"))
}

func TestBase_HasHeaderWithValue(t *testing.T) {
	b := newBase()
	require.NoError(t, b.SetHeader("Content-Type", "Text/HTML"))

	assert.True(t, b.HasHeaderWithValue("content-type", "text/html"))
	assert.False(t, b.HasHeaderWithValue("content-type", "text/plain"))
	assert.False(t, b.HasHeaderWithValue("X-Other", "text/html"))
}

func TestBase_RemoveHeader(t *testing.T) {
	b := newBase()
	require.NoError(t, b.SetHeader("X-Token", "abc"))
	require.NoError(t, b.RemoveHeader("x-token"))
	assert.False(t, b.HasHeader("X-Token"))

	// 不存在也不报错
	require.NoError(t, b.RemoveHeader("x-token"))
}

func TestBase_EmptyNames(t *testing.T) {
	b := newBase()
	assert.ErrorIs(t, b.SetHeader("", "v"), ErrInvalidArgument)
	assert.ErrorIs(t, b.RemoveHeader(""), ErrInvalidArgument)
	assert.ErrorIs(t, b.SetCookie("", "v"), ErrInvalidArgument)
	assert.ErrorIs(t, b.RemoveCookie(""), ErrInvalidArgument)
}

func TestBase_CookiesCaseSensitive(t *testing.T) {
	b := newBase()
	require.NoError(t, b.SetCookie("session", "1"))
	require.NoError(t, b.SetCookie("Session", "2"))

	v, ok := b.Cookie("session")
	assert.True(t, ok)
	assert.Equal(t, "1", v)
	assert.True(t, b.HasCookie("Session"))
	assert.Len(t, b.Cookies(), 2)

	require.NoError(t, b.RemoveCookie("Session"))
	assert.False(t, b.HasCookie("Session"))
	assert.True(t, b.HasCookie("session"))
}

func TestBase_CookieStringInsertionOrder(t *testing.T) {
	b := newBase()
	require.NoError(t, b.SetCookie("b", "2"))
	require.NoError(t, b.SetCookie("a", "1"))
	require.NoError(t, b.SetCookie("c", "3"))

	assert.Equal(t, "b=2; a=1; c=3", b.cookieString())
}

func TestSortedKeys(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, SortedKeys(map[string]string{"c": "", "a": "", "b": ""}))
	assert.Empty(t, SortedKeys(nil))
}

func TestBase_CloneIsIndependent(t *testing.T) {
	b := newBase()
	require.NoError(t, b.SetHeader("X-A", "1"))
	require.NoError(t, b.SetCookie("c", "1"))

	c := b.clone()
	require.NoError(t, c.SetHeader("X-A", "2"))
	require.NoError(t, c.SetCookie("c", "2"))

	v, _ := b.Header("X-A")
	assert.Equal(t, "1", v)
	cv, _ := b.Cookie("c")
	assert.Equal(t, "1", cv)
}
