// Package backend is a small PostgREST client covering what an admin UI
// needs from a Supabase-style backend: RPC calls, the OpenAPI description,
// generic selects, exact counts, range pagination and row CRUD.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sadopc/supadmin/internal/errs"
	"github.com/sadopc/supadmin/internal/logger"
)

const (
	restPrefix = "/rest/v1"

	// ProbeRelation is read by Probe. It is not expected to exist.
	ProbeRelation = "_supadmin_probe"

	defaultTimeout = 15 * time.Second
	maxBodyBytes   = 32 << 20
)

// Config holds the parameters for New.
type Config struct {
	URL        string
	Key        string // anon / publishable key
	ServiceKey string // optional service-role key, preferred for Authorization
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *logger.Logger
}

// Row is one record as decoded from the backend. Numbers are kept as
// json.Number so identifiers survive the round trip unchanged.
type Row map[string]any

// Client talks to one backend. It is safe for concurrent use.
type Client struct {
	base       *url.URL
	key        string
	serviceKey string
	hc         *http.Client
	log        *logger.Logger
}

// New validates cfg and returns a Client. No network call is made.
func New(cfg Config) (*Client, error) {
	base, err := ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.Key) == "" {
		return nil, errs.New(errs.ErrKindInvalidKey, "api key is required")
	}

	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}

	return &Client{
		base:       base,
		key:        cfg.Key,
		serviceKey: cfg.ServiceKey,
		hc:         hc,
		log:        log,
	}, nil
}

// ParseURL checks that raw is an absolute http(s) URL with a host and
// returns it without a trailing slash.
func ParseURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errs.New(errs.ErrKindInvalidURL, "url is required")
	}
	u, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidURL, "url does not parse", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errs.Newf(errs.ErrKindInvalidURL, "url must start with http:// or https:// (got %q)", u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, errs.New(errs.ErrKindInvalidURL, "url has no host")
	}
	return u, nil
}

// BaseURL returns the backend URL the client was created with.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// HasServiceKey reports whether requests are authorised with a
// service-role key.
func (c *Client) HasServiceKey() bool {
	return c.serviceKey != ""
}

type request struct {
	method string
	path   string // below /rest/v1
	query  url.Values
	header http.Header
	body   any
}

type response struct {
	status int
	header http.Header
	body   []byte
}

func (c *Client) do(ctx context.Context, op string, req request) (*response, error) {
	u := *c.base
	u.Path = c.base.Path + restPrefix + req.path
	if req.query != nil {
		u.RawQuery = req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, op+": encode body", err)
		}
		body = bytes.NewReader(data)
	}

	hreq, err := http.NewRequestWithContext(ctx, req.method, u.String(), body)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, op+": build request", err)
	}

	bearer := c.key
	if c.serviceKey != "" {
		bearer = c.serviceKey
	}
	hreq.Header.Set("apikey", c.key)
	hreq.Header.Set("Authorization", "Bearer "+bearer)
	hreq.Header.Set("Accept", "application/json")
	if req.body != nil {
		hreq.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range req.header {
		hreq.Header.Del(k)
		for _, v := range vs {
			hreq.Header.Add(k, v)
		}
	}

	start := time.Now()
	resp, err := c.hc.Do(hreq)
	if err != nil {
		return nil, mapTransportError(ctx, op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, mapTransportError(ctx, op, err)
	}

	c.log.With().
		Str("op", op).
		Str("method", req.method).
		Str("path", req.path).
		Int("status", resp.StatusCode).
		Int("ms", int(time.Since(start).Milliseconds())).
		Logger().Debug("backend request")

	out := &response{status: resp.StatusCode, header: resp.Header, body: data}
	if resp.StatusCode >= 400 && resp.StatusCode != http.StatusRequestedRangeNotSatisfiable {
		return out, mapStatusError(op, resp.StatusCode, data)
	}
	return out, nil
}

// decodeJSON decodes data into out keeping numbers as json.Number.
func decodeJSON(data []byte, out any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(out)
}

// RPC calls a stored procedure and decodes its result into out (which may
// be nil to discard it).
func (c *Client) RPC(ctx context.Context, fn string, args, out any) error {
	if args == nil {
		args = map[string]any{}
	}
	resp, err := c.do(ctx, "rpc "+fn, request{
		method: http.MethodPost,
		path:   "/rpc/" + url.PathEscape(fn),
		body:   args,
	})
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(resp.body)) == 0 {
		return nil
	}
	if err := decodeJSON(resp.body, out); err != nil {
		return errs.Wrap(errs.ErrKindQueryFailed, fmt.Sprintf("rpc %s: decode result", fn), err)
	}
	return nil
}

// Probe reads ProbeRelation. The error is returned untouched: a NotFound
// error means the backend answered and the credentials were accepted.
func (c *Client) Probe(ctx context.Context) error {
	_, err := c.do(ctx, "probe", request{
		method: http.MethodGet,
		path:   "/" + ProbeRelation,
		query:  url.Values{"select": {"*"}, "limit": {"1"}},
	})
	return err
}
