package deps

import (
	"context"
	stderrors "errors"
	"io/fs"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wippyai/wasm-bridge/envelope"
	"github.com/wippyai/wasm-bridge/errors"
)

// DefaultParallel bounds concurrent fetches within one batch.
const DefaultParallel = 8

// Fetcher loads one dependency blob by the path the module listed.
type Fetcher interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}

// HTTPFetcher fetches dependencies relative to a base URL. Requests are never
// retried: a failed batch fails startup.
type HTTPFetcher struct {
	client *resty.Client
	base   *url.URL
}

// NewHTTPFetcher creates a fetcher rooted at base.
func NewHTTPFetcher(base string, timeout time.Duration) (*HTTPFetcher, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Cause(err).
			Detail("dependency base %q", base).
			Build()
	}
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", "wasm-bridge/1.0")
	return &HTTPFetcher{client: client, base: u}, nil
}

// Client exposes the underlying client, mostly for tests to swap transports.
func (f *HTTPFetcher) Client() *resty.Client {
	return f.client
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, p string) ([]byte, error) {
	ref, err := url.Parse(p)
	if err != nil {
		return nil, errors.InvalidData(errors.PhaseStartup, p, "dependency path is not a URL reference")
	}
	target := f.base.ResolveReference(ref).String()

	resp, err := f.client.R().SetContext(ctx).Get(target)
	if err != nil {
		return nil, errors.New(errors.PhaseStartup, errors.KindTransport).
			Tag(p).
			Cause(err).
			Detail("fetch dependency").
			Build()
	}
	if resp.IsError() {
		kind := errors.KindTransport
		if resp.StatusCode() == 404 {
			kind = errors.KindNotFound
		}
		return nil, errors.New(errors.PhaseStartup, kind).
			Tag(p).
			Value(resp.StatusCode()).
			Detail("fetch dependency: %s", resp.Status()).
			Build()
	}
	return resp.Body(), nil
}

// DirFetcher serves dependencies from a file system, typically os.DirFS.
type DirFetcher struct {
	fsys fs.FS
}

// NewDirFetcher creates a fetcher over fsys.
func NewDirFetcher(fsys fs.FS) *DirFetcher {
	return &DirFetcher{fsys: fsys}
}

// Fetch implements Fetcher. Leading slashes are ignored.
func (f *DirFetcher) Fetch(_ context.Context, p string) ([]byte, error) {
	name := path.Clean(strings.TrimLeft(p, "/"))
	if !fs.ValidPath(name) {
		return nil, errors.InvalidData(errors.PhaseStartup, p, "dependency path escapes the root")
	}
	data, err := fs.ReadFile(f.fsys, name)
	if err != nil {
		kind := errors.KindTransport
		if stderrors.Is(err, fs.ErrNotExist) {
			kind = errors.KindNotFound
		}
		return nil, errors.New(errors.PhaseStartup, kind).
			Tag(p).
			Cause(err).
			Detail("read dependency").
			Build()
	}
	return data, nil
}

// FetchAll loads every path concurrently and returns the blobs in request
// order. The first failure cancels the rest and fails the batch.
func FetchAll(ctx context.Context, f Fetcher, paths []string, parallel int) ([]envelope.Dep, error) {
	if parallel <= 0 {
		parallel = DefaultParallel
	}
	out := make([]envelope.Dep, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i, p := range paths {
		g.Go(func() error {
			data, err := f.Fetch(gctx, p)
			if err != nil {
				return err
			}
			out[i] = envelope.Dep{Path: p, Data: data}
			Logger().Debug("dependency fetched", zap.String("path", p), zap.Int("bytes", len(data)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// HostInfo describes base the way a browser location does.
func HostInfo(base string) envelope.HostInfo {
	u, err := url.Parse(base)
	if err != nil {
		return envelope.HostInfo{}
	}
	info := envelope.HostInfo{
		Host:     u.Host,
		Hostname: u.Hostname(),
		Pathname: u.EscapedPath(),
	}
	if u.Scheme != "" {
		info.Protocol = u.Scheme + ":"
	}
	if u.RawQuery != "" {
		info.Search = "?" + u.RawQuery
	}
	if u.Fragment != "" {
		info.Hash = "#" + u.Fragment
	}
	if info.Pathname == "" {
		info.Pathname = "/"
	}
	return info
}
