// Package proxy is the caching HTTP proxy placed in front of the UI origin.
//
// GET requests under the dynamic prefix are served network-first: a 200
// response is snapshotted into the current cache generation and a network
// failure falls back to the snapshot, then to a synthetic 503. Every other
// GET is served cache-first and falls back to the offline page. Other
// methods pass straight through.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vaxtrace/vaxsync/internal/client/models"
	"github.com/vaxtrace/vaxsync/internal/client/repositories/cache"
	"github.com/vaxtrace/vaxsync/internal/common"
	"github.com/vaxtrace/vaxsync/internal/logging"
)

// CacheHeader reports how a response was produced: hit, miss, offline or
// fallback.
const CacheHeader = "X-Vaxsync-Cache"

// GenerationPrefix starts every cache generation name.
const GenerationPrefix = "vaxsync-"

// OfflineBody is the body of the synthetic dynamic-path 503.
const OfflineBody = "Offline - data not available"

const builtinOfflinePage = `<!doctype html>
<html><head><meta charset="utf-8"><title>Offline</title></head>
<body><h1>You are offline</h1><p>This page is not available without a connection.</p></body></html>
`

type Config struct {
	UpstreamURL   string
	CacheVersion  string
	DynamicPrefix string
	OfflinePage   string
	StaticAssets  []string
	Timeout       time.Duration
}

type Proxy struct {
	cfg        Config
	upstream   *url.URL
	client     *http.Client
	cache      cache.Repository
	generation string
	log        logging.Logger
}

func New(cfg Config, repo cache.Repository, log logging.Logger) (*Proxy, error) {
	u, err := url.Parse(cfg.UpstreamURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid upstream url %q", cfg.UpstreamURL)
	}
	if cfg.CacheVersion == "" {
		cfg.CacheVersion = "v1"
	}
	if cfg.DynamicPrefix == "" {
		cfg.DynamicPrefix = "/api/"
	}
	if cfg.OfflinePage == "" {
		cfg.OfflinePage = "/offline.html"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &Proxy{
		cfg:        cfg,
		upstream:   u,
		client:     &http.Client{Timeout: cfg.Timeout},
		cache:      repo,
		generation: GenerationPrefix + cfg.CacheVersion,
		log:        log.With("module", "proxy"),
	}, nil
}

// Generation is the name of the current cache generation.
func (p *Proxy) Generation() string {
	return p.generation
}

// snapshot is an upstream response read in full.
type snapshot struct {
	status int
	header http.Header
	body   []byte
}

func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodGet {
		resp, err := p.fetch(ctx, r)
		if err != nil {
			p.log.Warn(ctx, "pass-through failed", "method", r.Method, "path", r.URL.Path, "error", err)
			writeText(w, http.StatusServiceUnavailable, "offline", OfflineBody)
			return
		}
		writeSnapshot(w, resp, "")
		return
	}

	if strings.HasPrefix(r.URL.Path, p.cfg.DynamicPrefix) {
		p.serveDynamic(ctx, w, r)
		return
	}
	p.serveStatic(ctx, w, r)
}

func (p *Proxy) serveDynamic(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	key := cacheKey(r.URL)

	resp, err := p.fetch(ctx, r)
	if err == nil {
		if resp.status == http.StatusOK {
			p.store(ctx, key, resp)
		}
		writeSnapshot(w, resp, "miss")
		return
	}

	p.log.Debug(ctx, "network failed, trying cache", "key", key, "error", err)
	if cached, ok := p.lookup(ctx, key); ok {
		writeSnapshot(w, cached, "hit")
		return
	}
	writeText(w, http.StatusServiceUnavailable, "offline", OfflineBody)
}

func (p *Proxy) serveStatic(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	key := cacheKey(r.URL)

	if cached, ok := p.lookup(ctx, key); ok {
		writeSnapshot(w, cached, "hit")
		return
	}

	resp, err := p.fetch(ctx, r)
	if err == nil {
		if resp.status == http.StatusOK {
			p.store(ctx, key, resp)
		}
		writeSnapshot(w, resp, "miss")
		return
	}

	p.log.Debug(ctx, "network failed, serving offline page", "key", key, "error", err)
	if page, ok := p.lookup(ctx, cacheKey(&url.URL{Path: p.cfg.OfflinePage})); ok {
		writeSnapshot(w, page, "fallback")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set(CacheHeader, "fallback")
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = io.WriteString(w, builtinOfflinePage)
}

// Install pre-caches the static assets into the current generation. Assets
// that cannot be fetched are skipped; it returns how many were stored.
func (p *Proxy) Install(ctx context.Context) int {
	stored := 0
	for _, asset := range p.cfg.StaticAssets {
		u, err := url.Parse(asset)
		if err != nil {
			p.log.Warn(ctx, "skipping bad asset path", "asset", asset, "error", err)
			continue
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			continue
		}
		resp, err := p.fetch(ctx, req)
		if err != nil || resp.status != http.StatusOK {
			p.log.Info(ctx, "asset not cached", "asset", asset, "error", err)
			continue
		}
		if p.store(ctx, cacheKey(u), resp) {
			stored++
		}
	}
	p.log.Info(ctx, "static assets cached", "generation", p.generation, "stored", stored, "total", len(p.cfg.StaticAssets))
	return stored
}

// Activate deletes every generation other than the current one.
func (p *Proxy) Activate(ctx context.Context) error {
	n, err := p.cache.DeleteAllExcept(ctx, p.generation)
	if err != nil {
		return fmt.Errorf("drop stale generations: %w", err)
	}
	p.log.Info(ctx, "cache generation activated", "generation", p.generation, "purged", n)
	return nil
}

// Clear deletes the current generation.
func (p *Proxy) Clear(ctx context.Context) error {
	n, err := p.cache.DeleteGeneration(ctx, p.generation)
	if err != nil {
		return fmt.Errorf("clear %s: %w", p.generation, err)
	}
	p.log.Info(ctx, "cache cleared", "generation", p.generation, "entries", n)
	return nil
}

func (p *Proxy) fetch(ctx context.Context, r *http.Request) (*snapshot, error) {
	target := *p.upstream
	target.Path = singleJoin(p.upstream.Path, r.URL.Path)
	target.RawQuery = r.URL.RawQuery

	var body io.Reader
	if r.Body != nil && r.Body != http.NoBody {
		body = r.Body
	}
	out, err := http.NewRequestWithContext(ctx, r.Method, target.String(), body)
	if err != nil {
		return nil, err
	}
	copyHeader(out.Header, r.Header)
	out.ContentLength = r.ContentLength

	resp, err := p.client.Do(out)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	h := http.Header{}
	copyHeader(h, resp.Header)
	return &snapshot{status: resp.StatusCode, header: h, body: data}, nil
}

func (p *Proxy) lookup(ctx context.Context, key string) (*snapshot, bool) {
	e, err := p.cache.Get(ctx, p.generation, key)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			p.log.Warn(ctx, "cache lookup failed", "key", key, "error", err)
		}
		return nil, false
	}
	return &snapshot{status: e.Status, header: e.Header, body: e.Body}, true
}

func (p *Proxy) store(ctx context.Context, key string, s *snapshot) bool {
	h := s.header.Clone()
	h.Del("Set-Cookie")
	err := p.cache.Put(ctx, &models.CacheEntry{
		Generation: p.generation,
		Key:        key,
		Status:     s.status,
		Header:     h,
		Body:       s.body,
	})
	if err != nil {
		p.log.Warn(ctx, "cache store failed", "key", key, "error", err)
		return false
	}
	return true
}

func cacheKey(u *url.URL) string {
	return http.MethodGet + " " + u.Path + "?" + u.RawQuery
}

func singleJoin(a, b string) string {
	switch {
	case a == "":
		return b
	case strings.HasSuffix(a, "/") && strings.HasPrefix(b, "/"):
		return a + b[1:]
	case !strings.HasSuffix(a, "/") && !strings.HasPrefix(b, "/"):
		return a + "/" + b
	}
	return a + b
}

var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Proxy-Connection",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
	"Content-Length",
}

func copyHeader(dst, src http.Header) {
	for k, vv := range src {
		dst[k] = append([]string(nil), vv...)
	}
	for _, h := range hopHeaders {
		dst.Del(h)
	}
}

func writeSnapshot(w http.ResponseWriter, s *snapshot, source string) {
	for k, vv := range s.header {
		w.Header()[k] = append([]string(nil), vv...)
	}
	if source != "" {
		w.Header().Set(CacheHeader, source)
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(s.body)))
	w.WriteHeader(s.status)
	_, _ = w.Write(s.body)
}

func writeText(w http.ResponseWriter, status int, source, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set(CacheHeader, source)
	w.WriteHeader(status)
	_, _ = io.WriteString(w, msg)
}
