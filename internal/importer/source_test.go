package importer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestResolveLink(t *testing.T) {
	cases := map[string]string{
		"https://drive.google.com/file/d/abc123/view?usp=sharing":  "https://drive.google.com/uc?export=download&id=abc123",
		"https://drive.google.com/uc?export=download&id=xyz":       "https://drive.google.com/uc?export=download&id=xyz",
		"https://drive.google.com/open?id=q1":                      "https://drive.google.com/uc?export=download&id=q1",
	}
	for in, want := range cases {
		got, err := ResolveLink(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got)
	}

	for _, bad := range []string{
		"", "ftp://example.com/x", "not a link", "https://drive.google.com/file/view",
		"https://example.com/products.json", "http://169.254.169.254/latest/meta-data",
		"http://localhost:8080/admin", "https://drive.google.com.evil.test/d/abc",
	} {
		_, err := ResolveLink(bad)
		require.ErrorIs(t, err, ErrInvalidLink, bad)
	}
}

func TestLinkPolicyAllowedHosts(t *testing.T) {
	policy := LinkPolicy{AllowedHosts: []string{"files.example.com", " .cdn.test "}}

	got, err := policy.Resolve(" https://files.example.com/products.json ")
	require.NoError(t, err)
	require.Equal(t, "https://files.example.com/products.json", got)

	for _, ok := range []string{"https://cdn.test/a.json", "https://eu.cdn.test/a.json", "https://FILES.example.com:8443/a.json"} {
		_, err := policy.Resolve(ok)
		require.NoError(t, err, ok)
	}
	for _, bad := range []string{"https://example.com/a.json", "https://evilcdn.test/a.json", "http://127.0.0.1/a.json"} {
		_, err := policy.Resolve(bad)
		require.ErrorIs(t, err, ErrInvalidLink, bad)
	}

	got, err = policy.Resolve("https://drive.google.com/file/d/abc/view")
	require.NoError(t, err)
	require.Equal(t, "https://drive.google.com/uc?export=download&id=abc", got)
}

func TestHTTPSourceFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`[{"productCode":"A","name":"Foo","price":1}]`))
	}))
	defer srv.Close()

	_, err := NewHTTPSource(srv.URL+"/products.json", time.Second, LinkPolicy{})
	require.ErrorIs(t, err, ErrInvalidLink)

	local := LinkPolicy{AllowedHosts: []string{"127.0.0.1"}}
	src, err := NewHTTPSource(srv.URL+"/products.json", time.Second, local)
	require.NoError(t, err)
	body, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(body), "["))

	w := &recordingWriter{}
	res, err := newTestReconciler(w, nil).FetchAndImport(context.Background(), "u1", src)
	require.NoError(t, err)
	require.Equal(t, 1, res.SuccessCount)

	missing, err := NewHTTPSource(srv.URL+"/missing", time.Second, local)
	require.NoError(t, err)
	_, err = missing.Fetch(context.Background())
	require.ErrorContains(t, err, "HTTP 404")
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"productCode":"A","name":"Foo","price":2}]`), 0o600))

	w := &recordingWriter{}
	res, err := newTestReconciler(w, nil).FetchAndImport(context.Background(), "u1", FileSource{Path: path})
	require.NoError(t, err)
	require.Equal(t, 1, res.SuccessCount)
	require.Equal(t, []string{"A"}, w.keys())
}
