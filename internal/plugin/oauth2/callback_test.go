package oauth2

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getBody(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestCallbackServer_DeliversRedirect(t *testing.T) {
	srv := newCallbackServer("")
	redirectURI, err := srv.start(18080)
	require.NoError(t, err)
	defer srv.stop()

	assert.True(t, strings.HasSuffix(redirectURI, "/callback"), "default path applies: %s", redirectURI)

	status, body := getBody(t, redirectURI+"?code=abc&state=xyz")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Authorization complete")

	result, err := srv.wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", result.code)
	assert.Equal(t, "xyz", result.state)
	assert.Empty(t, result.errCode)
}

func TestCallbackServer_ErrorRedirect(t *testing.T) {
	srv := newCallbackServer("")
	redirectURI, err := srv.start(18100)
	require.NoError(t, err)
	defer srv.stop()

	status, body := getBody(t, redirectURI+"?error=access_denied&error_description=user+said+no")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Authorization failed")
	assert.Contains(t, body, "access_denied")

	result, err := srv.wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access_denied", result.errCode)
	assert.Equal(t, "user said no", result.errDescription)
}

func TestCallbackServer_SecondRedirectRejected(t *testing.T) {
	srv := newCallbackServer("")
	redirectURI, err := srv.start(18120)
	require.NoError(t, err)
	defer srv.stop()

	status, _ := getBody(t, redirectURI+"?code=first&state=s")
	require.Equal(t, http.StatusOK, status)

	status, body := getBody(t, redirectURI+"?code=second&state=s")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body, "already processed")

	result, err := srv.wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "first", result.code, "the first redirect wins")
}

func TestCallbackServer_CustomPath(t *testing.T) {
	srv := newCallbackServer("/oauth/done")
	redirectURI, err := srv.start(18140)
	require.NoError(t, err)
	defer srv.stop()

	assert.True(t, strings.HasSuffix(redirectURI, "/oauth/done"), redirectURI)

	status, _ := getBody(t, redirectURI+"?code=abc&state=s")
	assert.Equal(t, http.StatusOK, status)
}

func TestCallbackServer_SkipsBusyPort(t *testing.T) {
	held, err := net.Listen("tcp", "127.0.0.1:18160")
	require.NoError(t, err)
	defer held.Close()

	srv := newCallbackServer("")
	redirectURI, err := srv.start(18160)
	require.NoError(t, err)
	defer srv.stop()

	assert.NotEqual(t, 18160, srv.port)
	assert.Greater(t, srv.port, 18160)
	assert.Less(t, srv.port, 18160+portScanWindow)
	assert.Contains(t, redirectURI, fmt.Sprintf(":%d/", srv.port))
}

func TestCallbackServer_ContextCanceled(t *testing.T) {
	srv := newCallbackServer("")
	_, err := srv.start(18180)
	require.NoError(t, err)
	defer srv.stop()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = srv.wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
