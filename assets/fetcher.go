package assets

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/studiooh/proposal-export-service/config"
)

var (
	ErrEmptyReference = errors.New("empty asset reference")
	ErrTooLarge       = errors.New("asset exceeds size limit")
)

// Loader resolves an image reference (URL, data URI or stored object path)
// into an embeddable image.
type Loader interface {
	Load(ctx context.Context, ref string) (*Image, error)
}

// URLResolver turns a stored object path into a fetchable URL.
type URLResolver interface {
	ResolveURL(ref string) (string, error)
}

type FetcherOptions struct {
	Timeout  time.Duration
	CacheTTL time.Duration
	// RPS limits outbound requests. Zero disables the limit.
	RPS      float64
	Burst    int
	MaxBytes int64
	// MaxPixels caps width x height of a decoded image. Zero means
	// DefaultMaxPixels.
	MaxPixels int
	Resolver  URLResolver
	// AllowLocalFiles lets bare paths and file:// references read the local
	// filesystem. Only the offline render command enables it.
	AllowLocalFiles bool
	// DeniedNetworks are refused for http(s) references. Nil means
	// DefaultDeniedNetworks. Resolved storage paths are not subject to it.
	DeniedNetworks       []netip.Prefix
	AllowPrivateNetworks bool
	// TokenSource, when set, authorizes fetches of http(s) references.
	TokenSource oauth2.TokenSource
	// Client replaces both HTTP clients as is.
	Client *http.Client
}

// Fetcher is the production Loader. Decoded images are cached by reference
// so a logo drawn on every page is fetched once.
type Fetcher struct {
	// client fetches references from requests; storage fetches URLs the
	// resolver produced.
	client    *http.Client
	storage   *http.Client
	limiter   *rate.Limiter
	cache     *cache.Cache
	resolver  URLResolver
	maxBytes  int64
	maxPixels int
	localOK   bool
	log       *zap.SugaredLogger
}

func NewFetcher(opts FetcherOptions, log *zap.SugaredLogger) *Fetcher {
	client, storage := opts.Client, opts.Client
	if opts.Client == nil {
		var transport http.RoundTripper
		if opts.AllowPrivateNetworks {
			transport = http.DefaultTransport.(*http.Transport).Clone()
		} else {
			denied := opts.DeniedNetworks
			if denied == nil {
				denied = DefaultDeniedNetworks
			}
			transport = guardedTransport(denied)
		}
		if opts.TokenSource != nil {
			transport = &oauth2.Transport{Source: opts.TokenSource, Base: transport}
		}
		client = &http.Client{Timeout: opts.Timeout, Transport: transport}
		storage = &http.Client{Timeout: opts.Timeout}
	}
	maxPixels := opts.MaxPixels
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RPS > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RPS), burst)
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	return &Fetcher{
		client:    client,
		storage:   storage,
		limiter:   limiter,
		cache:     cache.New(ttl, 2*ttl),
		resolver:  opts.Resolver,
		maxBytes:  opts.MaxBytes,
		maxPixels: maxPixels,
		localOK:   opts.AllowLocalFiles,
		log:       log,
	}
}

// NewFetcherFromConfig builds a Fetcher from the asset settings. When asset
// client credentials are configured, fetches carry a bearer token.
func NewFetcherFromConfig(ctx context.Context, cfg config.ProposalConfig, resolver URLResolver, log *zap.SugaredLogger) (*Fetcher, error) {
	var source oauth2.TokenSource
	if cfg.AssetConfig.TokenURL != "" {
		var err error
		source, err = NewClientCredentialsSource(ctx, cfg.AssetConfig.TokenURL, cfg.AssetConfig.ClientID, cfg.AssetConfig.ClientSecret, nil)
		if err != nil {
			return nil, err
		}
	}

	extra, err := ParseNetworks(cfg.AssetConfig.DeniedNetworks)
	if err != nil {
		return nil, err
	}
	if cfg.AssetConfig.AllowPrivateNetworks {
		log.Warn("asset fetches may reach private networks")
	}

	return NewFetcher(FetcherOptions{
		Timeout:              cfg.AssetConfig.FetchTimeout,
		CacheTTL:             cfg.AssetConfig.CacheTTL,
		RPS:                  cfg.AssetConfig.FetchRPS,
		Burst:                cfg.AssetConfig.FetchBurst,
		MaxBytes:             cfg.AssetConfig.MaxBytes,
		MaxPixels:            cfg.AssetConfig.MaxPixels,
		Resolver:             resolver,
		DeniedNetworks:       append(append([]netip.Prefix{}, DefaultDeniedNetworks...), extra...),
		AllowPrivateNetworks: cfg.AssetConfig.AllowPrivateNetworks,
		TokenSource:          source,
	}, log), nil
}

func (f *Fetcher) Load(ctx context.Context, ref string) (*Image, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, ErrEmptyReference
	}
	if cached, ok := f.cache.Get(ref); ok {
		return cached.(*Image), nil
	}

	data, err := f.read(ctx, ref)
	if err != nil {
		return nil, err
	}
	img, err := DecodeLimited(data, f.maxPixels)
	if err != nil {
		return nil, err
	}
	f.cache.SetDefault(ref, img)
	return img, nil
}

func (f *Fetcher) read(ctx context.Context, ref string) ([]byte, error) {
	if strings.HasPrefix(ref, "data:") {
		return decodeDataURI(ref)
	}

	u, err := url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("invalid asset reference %q: %w", ref, err)
	}
	switch u.Scheme {
	case "http", "https":
		return f.fetch(ctx, f.client, ref)
	case "file":
		if !f.localOK {
			return nil, fmt.Errorf("local file references are disabled: %s", ref)
		}
		return f.readFile(u.Path)
	case "":
		if f.resolver != nil {
			resolved, err := f.resolver.ResolveURL(ref)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve %q: %w", ref, err)
			}
			return f.fetch(ctx, f.storage, resolved)
		}
		if f.localOK {
			return f.readFile(ref)
		}
	}
	return nil, fmt.Errorf("cannot load asset %q", ref)
}

func (f *Fetcher) fetch(ctx context.Context, client *http.Client, target string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "image/png, image/jpeg, image/webp, image/gif")

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch %s: status %d", target, resp.StatusCode)
	}

	data, err := f.readLimited(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", target, err)
	}
	f.log.Debugw("fetched asset", "url", target, "size", len(data), "latency", time.Since(start))
	return data, nil
}

func (f *Fetcher) readFile(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return f.readLimited(file)
}

func (f *Fetcher) readLimited(r io.Reader) ([]byte, error) {
	if f.maxBytes <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, f.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > f.maxBytes {
		return nil, ErrTooLarge
	}
	return data, nil
}

// decodeDataURI handles the base64 data URIs logos are sometimes stored as.
func decodeDataURI(ref string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(ref, "data:"), ",")
	if !ok {
		return nil, errors.New("malformed data uri")
	}
	if !strings.HasSuffix(meta, ";base64") {
		unescaped, err := url.PathUnescape(payload)
		if err != nil {
			return nil, fmt.Errorf("malformed data uri: %w", err)
		}
		return []byte(unescaped), nil
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("malformed data uri: %w", err)
	}
	return data, nil
}
