package importer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"
)

// maxPayloadBytes caps fetched import payloads.
const maxPayloadBytes = 8 << 20

// Source fetches an import payload.
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
}

var drivePathID = regexp.MustCompile(`/d/([^/?#]+)`)

const driveHost = "drive.google.com"

// LinkPolicy decides which hosts remote imports may fetch from. Shared-drive
// links are always accepted; other hosts must be listed in AllowedHosts. An
// entry with a leading dot also matches its subdomains.
type LinkPolicy struct {
	AllowedHosts []string
}

// ResolveLink resolves link under the default policy, which accepts
// shared-drive links only.
func ResolveLink(link string) (string, error) {
	return LinkPolicy{}.Resolve(link)
}

// Resolve turns a shared-drive link into its direct download URL and returns
// links on allowed hosts unchanged.
func (p LinkPolicy) Resolve(link string) (string, error) {
	link = strings.TrimSpace(link)
	u, err := url.Parse(link)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", fmt.Errorf("%w: %q", ErrInvalidLink, link)
	}
	host := strings.ToLower(u.Hostname())
	if host != driveHost {
		if !p.allows(host) {
			return "", fmt.Errorf("%w: host %q is not allowed", ErrInvalidLink, u.Hostname())
		}
		return u.String(), nil
	}
	var id string
	if m := drivePathID.FindStringSubmatch(u.Path); m != nil {
		id = m[1]
	} else {
		id = u.Query().Get("id")
	}
	if id == "" {
		return "", fmt.Errorf("%w: no file id in %q", ErrInvalidLink, link)
	}
	return "https://" + driveHost + "/uc?export=download&id=" + url.QueryEscape(id), nil
}

func (p LinkPolicy) allows(host string) bool {
	for _, entry := range p.AllowedHosts {
		entry = strings.ToLower(strings.TrimSpace(entry))
		switch {
		case entry == "":
		case strings.HasPrefix(entry, "."):
			if strings.HasSuffix(host, entry) || host == entry[1:] {
				return true
			}
		case host == entry:
			return true
		}
	}
	return false
}

// HTTPSource downloads a payload over HTTP.
type HTTPSource struct {
	Client *http.Client
	URL    string
}

// NewHTTPSource resolves link under policy and builds a source with the
// given timeout.
func NewHTTPSource(link string, timeout time.Duration, policy LinkPolicy) (*HTTPSource, error) {
	resolved, err := policy.Resolve(link)
	if err != nil {
		return nil, err
	}
	return &HTTPSource{Client: &http.Client{Timeout: timeout}, URL: resolved}, nil
}

// Fetch performs the GET request and returns the body.
func (s *HTTPSource) Fetch(ctx context.Context) ([]byte, error) {
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("importer: fetch %s: %w", s.URL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("importer: fetch %s: HTTP %d", s.URL, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("importer: read %s: %w", s.URL, err)
	}
	if len(body) > maxPayloadBytes {
		return nil, fmt.Errorf("importer: payload from %s exceeds %d bytes", s.URL, maxPayloadBytes)
	}
	return body, nil
}

// FileSource reads a payload from disk.
type FileSource struct {
	Path string
}

// Fetch reads the file.
func (s FileSource) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(s.Path)
}

// FetchAndImport fetches the payload from src and imports it.
func (r *Reconciler) FetchAndImport(ctx context.Context, userID string, src Source) (Result, error) {
	payload, err := src.Fetch(ctx)
	if err != nil {
		return Result{}, err
	}
	return r.ImportJSON(ctx, userID, payload)
}
