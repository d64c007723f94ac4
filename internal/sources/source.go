// Package sources implements the evidence sources queried for every claim:
// the regional fact-checking sites, web search, a search-engine scrape, a
// news API and the structured fact-check index.
package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"github.com/NullMeDev/factlens/internal/apperror"
	"github.com/NullMeDev/factlens/internal/evidence"
	"github.com/NullMeDev/factlens/internal/logging"
)

const (
	// DefaultTimeout bounds a single source fetch.
	DefaultTimeout = 10 * time.Second

	// DefaultUserAgent is sent to sites that reject non-browser clients.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

	maxBodyBytes = 4 << 20
)

// Source is anything that can return evidence for a claim. Fetch never
// returns an error: failures come back inside the result.
type Source interface {
	Name() string
	Fetch(ctx context.Context, claim string) evidence.SourceResult
}

// Options holds the settings shared by every source.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	Logger    *logging.Logger
}

func (o Options) timeout() time.Duration {
	if o.Timeout <= 0 {
		return DefaultTimeout
	}
	return o.Timeout
}

func (o Options) userAgent() string {
	if o.UserAgent == "" {
		return DefaultUserAgent
	}
	return o.UserAgent
}

func (o Options) logger() *logging.Logger {
	if o.Logger == nil {
		return logging.Default()
	}
	return o.Logger
}

// fetchFunc does the actual work of one source.
type fetchFunc func(ctx context.Context) ([]evidence.Item, error)

// guard runs fn under the source deadline and turns every error, timeout
// or panic into an error-valued result.
func guard(ctx context.Context, key, query string, opts Options, fn fetchFunc) (res evidence.SourceResult) {
	log := opts.logger()

	defer func() {
		if r := recover(); r != nil {
			err := apperror.NewSourceError(apperror.ErrSourcePanic, key, fmt.Sprintf("%s panicked: %v", key, r), nil)
			log.Error("Source %s recovered from panic: %v", key, r)
			res = evidence.Failure(key, err.Error())
			res.Query = query
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, opts.timeout())
	defer cancel()

	items, err := fn(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = apperror.NewSourceError(apperror.ErrSourceTimeout, key,
				fmt.Sprintf("%s timed out after %s", key, opts.timeout()), err)
		}
		if apperror.IsTransient(err) {
			log.Info("Source %s failed (transient): %v", key, err)
		} else {
			log.Warning("Source %s failed: %v", key, err)
		}
		res = evidence.Failure(key, err.Error())
		res.Query = query
		return res
	}

	if items == nil {
		items = []evidence.Item{}
	}
	log.Debug("Source %s returned %d items", key, len(items))
	return evidence.SourceResult{Source: key, Query: query, Items: items}
}

// newClient builds a client for a single fetch. Nothing is pooled or shared
// between fetches.
func newClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:             http.ProxyFromEnvironment,
			DisableKeepAlives: true,
		},
	}
}

// do sends req and returns the response if the status is 2xx. Any other
// status closes the body and becomes a status error.
func do(req *http.Request, component string, opts Options) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", opts.userAgent())
	}

	resp, err := newClient(opts.timeout()).Do(req)
	if err != nil {
		return nil, apperror.NewSourceError(apperror.ErrSourceRequest, component, "request failed", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		resp.Body.Close()
		return nil, apperror.NewStatusError(component, resp.StatusCode)
	}
	return resp, nil
}

func newGet(ctx context.Context, rawURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	return req, nil
}

// getDocument fetches an HTML page and parses it, decoding legacy charsets
// to UTF-8 first.
func getDocument(ctx context.Context, rawURL, component string, opts Options) (*goquery.Document, error) {
	req, err := newGet(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := do(req, component, opts)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := charset.NewReader(io.LimitReader(resp.Body, maxBodyBytes), resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, apperror.NewSourceError(apperror.ErrSourceParse, component, "decode page", err)
	}
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, apperror.NewSourceError(apperror.ErrSourceParse, component, "parse page", err)
	}
	return doc, nil
}

// getJSON fetches rawURL and decodes the JSON body into out.
func getJSON(ctx context.Context, rawURL, component string, opts Options, out interface{}) error {
	req, err := newGet(ctx, rawURL)
	if err != nil {
		return err
	}
	return decodeJSON(req, component, opts, out)
}

// decodeJSON sends req and decodes the JSON body into out.
func decodeJSON(req *http.Request, component string, opts Options, out interface{}) error {
	req.Header.Set("Accept", "application/json")

	resp, err := do(req, component, opts)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		return apperror.NewSourceError(apperror.ErrSourceParse, component, "decode response", err)
	}
	return nil
}
