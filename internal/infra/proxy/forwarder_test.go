package proxy

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalForwarderWithoutCredentialsReturnsRaw(t *testing.T) {
	f := NewLocalForwarder(zerolog.Nop())
	got, err := f.Anonymize(context.Background(), "http://proxy.example:8000")
	require.NoError(t, err)
	assert.Equal(t, "http://proxy.example:8000", got)
	assert.NoError(t, f.Close(got))
}

func TestLocalForwarderRejectsBadInput(t *testing.T) {
	f := NewLocalForwarder(zerolog.Nop())
	_, err := f.Anonymize(context.Background(), "://nope")
	assert.Error(t, err)
	_, err = f.Anonymize(context.Background(), "just-a-host")
	assert.Error(t, err)
}

func TestLocalForwarderInjectsCredentials(t *testing.T) {
	wantAuth := "Basic " + base64.StdEncoding.EncodeToString([]byte("user:secret"))
	var gotAuth, gotURL string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Proxy-Authorization")
		gotURL = r.URL.String()
		_, _ = io.WriteString(w, "via upstream")
	}))
	defer upstream.Close()

	u, err := url.Parse(upstream.URL)
	require.NoError(t, err)
	u.User = url.UserPassword("user", "secret")

	f := NewLocalForwarder(zerolog.Nop())
	defer f.CloseAll()

	local, err := f.Anonymize(context.Background(), u.String())
	require.NoError(t, err)
	assert.NotContains(t, local, "secret")
	assert.Contains(t, local, "127.0.0.1:")

	localURL, err := url.Parse(local)
	require.NoError(t, err)
	client := &http.Client{Transport: &http.Transport{Proxy: http.ProxyURL(localURL)}}
	resp, err := client.Get("http://tires.example/search")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "via upstream", string(body))
	assert.Equal(t, wantAuth, gotAuth)
	assert.Equal(t, "http://tires.example/search", gotURL)

	require.NoError(t, f.Close(local))
	_, err = client.Get("http://tires.example/search")
	assert.Error(t, err)
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "http://user:xxxxx@p1:8000", redact("http://user:pw@p1:8000"))
	assert.Equal(t, "http://p1:8000", redact("http://p1:8000"))
}
