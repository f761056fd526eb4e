// Package npmregistry is the registry-backed fallback leg of module
// resolution: when a dependency is not found in the workspace or a
// locally installed node_modules tree, it is fetched from an npm
// registry and extracted into a local cache directory so the rest of
// the pipeline can treat it like any other resolved package.
package npmregistry

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenk/backoff"
	circuit "github.com/rubyist/circuitbreaker"
	"github.com/rs/dnscache"

	"go.dynplug.dev/dp/internal/core/domain"
	"go.dynplug.dev/dp/internal/core/ports"
	"go.trai.ch/zerr"
)

// DefaultURL is the public npm registry.
const DefaultURL = "https://registry.npmjs.org"

var _ ports.ModuleResolver = (*Client)(nil)

// Client resolves package names against an npm-compatible registry.
type Client struct {
	baseURL  string
	cacheDir string
	http     *http.Client
	breaker  *circuit.Breaker
}

// NewClient creates a registry client caching extracted tarballs under
// cacheDir. An empty baseURL defaults to the public npm registry.
func NewClient(baseURL, cacheDir string) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}

	resolver := &dnscache.Resolver{}
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			resolver.Refresh(true)
		}
	}()

	dialer := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 500 * time.Millisecond
	expBackoff.MaxInterval = 10 * time.Second

	return &Client{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		cacheDir: cacheDir,
		http: &http.Client{
			Timeout: 2 * time.Minute,
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
					host, port, err := net.SplitHostPort(addr)
					if err != nil {
						return nil, err
					}
					ips, err := resolver.LookupHost(ctx, host)
					if err != nil {
						return nil, err
					}
					var lastErr error
					for _, ip := range ips {
						conn, dialErr := dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
						if dialErr == nil {
							return conn, nil
						}
						lastErr = dialErr
					}
					return nil, lastErr
				},
			},
		},
		breaker: circuit.NewBreakerWithOptions(&circuit.Options{
			BackOff:    expBackoff,
			ShouldTrip: circuit.ThresholdTripFunc(5),
		}),
	}
}

type registryResponse struct {
	DistTags map[string]string               `json:"dist-tags"`
	Versions map[string]registryVersionEntry `json:"versions"`
}

type registryVersionEntry struct {
	Version string   `json:"version"`
	Dist    distInfo `json:"dist"`
}

type distInfo struct {
	Tarball string `json:"tarball"`
}

// Resolve fetches name's latest published version from the registry,
// extracting its tarball into the client's cache directory if it is not
// already there. baseDir is unused: registry resolution has no concept
// of "rooted at a package directory".
func (c *Client) Resolve(_, name string) (string, *domain.PackageDescriptor, error) {
	meta, err := c.fetchMetadata(name)
	if err != nil {
		return "", nil, err
	}

	latest := meta.DistTags["latest"]
	entry, ok := meta.Versions[latest]
	if !ok {
		return "", nil, zerr.With(zerr.New("no latest version in registry metadata"), "package", name)
	}

	dir := filepath.Join(c.cacheDir, domain.Slugify(name), entry.Version)
	manifestPath := filepath.Join(dir, "package.json")

	if data, readErr := os.ReadFile(manifestPath); readErr == nil {
		descriptor, parseErr := domain.UnmarshalPackageDescriptor(data)
		if parseErr != nil {
			return "", nil, zerr.With(parseErr, "package", name)
		}
		return dir, descriptor, nil
	}

	if err := c.downloadAndExtract(entry.Dist.Tarball, dir); err != nil {
		return "", nil, err
	}

	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return "", nil, zerr.With(zerr.Wrap(err, "extracted tarball missing package.json"), "package", name)
	}
	descriptor, err := domain.UnmarshalPackageDescriptor(data)
	if err != nil {
		return "", nil, zerr.With(err, "package", name)
	}
	return dir, descriptor, nil
}

func (c *Client) fetchMetadata(name string) (*registryResponse, error) {
	reqURL := fmt.Sprintf("%s/%s", c.baseURL, url.PathEscape(name))

	var resp *http.Response
	err := c.breaker.Call(func() error {
		r, getErr := c.http.Get(reqURL) //nolint:gosec,noctx // registry host is operator-configured
		if getErr != nil {
			return getErr
		}
		if r.StatusCode == http.StatusNotFound {
			_ = r.Body.Close()
			return zerr.With(domain.ErrMissingWorkspacePackage, "package", name)
		}
		if r.StatusCode >= 500 {
			_ = r.Body.Close()
			return zerr.With(zerr.New("registry unavailable"), "status", r.StatusCode)
		}
		resp = r
		return nil
	}, 0)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	var parsed registryResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, zerr.Wrap(err, "failed to decode registry response")
	}
	return &parsed, nil
}

func (c *Client) downloadAndExtract(tarballURL, dest string) error {
	resp, err := c.http.Get(tarballURL) //nolint:gosec,noctx // tarball URL comes from the registry response
	if err != nil {
		return zerr.Wrap(err, "failed to download tarball")
	}
	defer resp.Body.Close() //nolint:errcheck

	gz, err := gzip.NewReader(resp.Body)
	if err != nil {
		return zerr.Wrap(err, "failed to open tarball gzip stream")
	}
	defer gz.Close() //nolint:errcheck

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return zerr.Wrap(err, "failed to create extraction directory")
	}

	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return zerr.Wrap(err, "failed to read tarball entry")
		}

		// npm tarballs nest everything under a single "package/" root.
		rel := strings.TrimPrefix(header.Name, "package/")
		if rel == "" || rel == header.Name && !strings.Contains(header.Name, "/") {
			continue
		}
		target, err := containedJoin(dest, rel)
		if err != nil {
			return zerr.With(err, "entry", header.Name)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return zerr.Wrap(err, "failed to create tarball directory entry")
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return zerr.Wrap(err, "failed to create parent directory for tarball entry")
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
			if err != nil {
				return zerr.Wrap(err, "failed to create tarball entry file")
			}
			if _, err := io.CopyN(out, tr, header.Size); err != nil && err != io.EOF {
				_ = out.Close()
				return zerr.Wrap(err, "failed to extract tarball entry")
			}
			_ = out.Close()
		case tar.TypeSymlink, tar.TypeLink:
			if _, err := containedJoin(dest, header.Linkname); err != nil {
				return zerr.With(err, "entry", header.Name)
			}
			// Links are never followed or materialized; the dynamic-plugin
			// packaging pipeline only ever reads regular files back out of
			// an embedded package's extracted tree.
		}
	}
}

// containedJoin joins dest with rel and rejects the result if it would
// resolve outside dest - guards against a tarball entry (or a symlink's
// target) using ".." or an absolute path to escape the extraction
// directory.
func containedJoin(dest, rel string) (string, error) {
	target := filepath.Join(dest, rel)
	cleanDest := filepath.Clean(dest)
	if target != cleanDest && !strings.HasPrefix(target, cleanDest+string(filepath.Separator)) {
		return "", zerr.With(domain.ErrTarballEntryEscapesDest, "path", rel)
	}
	return target, nil
}
