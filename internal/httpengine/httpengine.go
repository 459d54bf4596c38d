// Package httpengine adapts net/http (via hashicorp/go-cleanhttp's pooled
// transport) to the narrow capability spec §6.2 expects from a
// collaborator: configure once per session, then execute one rendered
// request at a time and report back a structured Response plus timing,
// redirect, and certificate metadata. Nothing above this package talks
// to net/http directly.
package httpengine

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"

	"github.com/hurlrunner/hurl/internal/diag"
	"github.com/hurlrunner/hurl/internal/query"
)

// Options configures the engine once per session (spec §6.3's
// transport-level flags: --insecure, --max-redirs, --connect-timeout,
// --max-time, --proxy).
type Options struct {
	Insecure       bool
	MaxRedirects   int // -1 means unlimited; 0 means follow none
	ConnectTimeout time.Duration
	Timeout        time.Duration
	ProxyURL       string
}

// Engine wraps one *http.Client configured per Options.
type Engine struct {
	client *http.Client
	opts   Options
}

func New(opts Options) *Engine {
	transport := cleanhttp.DefaultPooledTransport()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: opts.Insecure}
	if opts.ConnectTimeout > 0 {
		transport.DialContext = (&net.Dialer{Timeout: opts.ConnectTimeout}).DialContext
	}
	if opts.ProxyURL != "" {
		if u, err := url.Parse(opts.ProxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   opts.Timeout,
	}
	client.CheckRedirect = redirectPolicy(opts.MaxRedirects)

	return &Engine{client: client, opts: opts}
}

// redirectPolicy implements spec §4's "follow redirects up to N" option;
// a negative MaxRedirects means unlimited, zero means never follow.
func redirectPolicy(max int) func(*http.Request, []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if max < 0 {
			return nil
		}
		if len(via) > max {
			return http.ErrUseLastResponse
		}
		return nil
	}
}

// redirectRecordingTransport wraps the pooled Transport to append one
// query.Redirect per 3xx hop actually observed on the wire, since
// http.Client.CheckRedirect never receives the Response that triggered
// the redirect, only the next Request.
type redirectRecordingTransport struct {
	base  http.RoundTripper
	chain *[]query.Redirect
}

func (t *redirectRecordingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err == nil && resp.StatusCode >= 300 && resp.StatusCode < 400 {
		*t.chain = append(*t.chain, query.Redirect{
			Location: resp.Header.Get("Location"),
			Status:   resp.StatusCode,
		})
	}
	return resp, err
}

// Request is the fully rendered wire-level request the runner hands to
// the engine: method, URL, headers, and body already have every
// template evaluated.
type Request struct {
	Method  string
	URL     string
	Headers []query.NameValue
	Body    []byte
}

// Execute sends req and returns the structured response the query
// engine operates on, or a diag.HttpError on transport failure.
func (e *Engine) Execute(ctx context.Context, req Request) (*query.Response, error) {
	start := time.Now()

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return nil, &diag.HttpError{Kind: diag.HttpOther, URL: req.URL, Detail: err.Error()}
	}
	for _, h := range req.Headers {
		httpReq.Header.Add(h.Name, h.Value)
	}

	// A per-call client sharing the pooled Transport: CheckRedirect and
	// the recording RoundTripper must each close over this call's own
	// redirectChain, and the shared *http.Client is used concurrently by
	// other in-flight requests from the worker pool (spec §5's
	// no-shared-mutable-state rule), so neither can be mutated in place.
	//
	// CheckRedirect only ever sees the upcoming request, never the
	// response that triggered the redirect, so the hop's status code
	// (spec §4.3's "redirects" query: "List of Objects {location, status}")
	// is captured by wrapping the Transport instead, where the real
	// *http.Response for each hop is still in hand.
	var redirectChain []query.Redirect
	basePolicy := redirectPolicy(e.opts.MaxRedirects)
	callClient := &http.Client{
		Transport:     &redirectRecordingTransport{base: e.client.Transport, chain: &redirectChain},
		Timeout:       e.client.Timeout,
		CheckRedirect: basePolicy,
	}

	resp, err := callClient.Do(httpReq)
	duration := time.Since(start)
	if err != nil {
		return nil, classifyError(req.URL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &diag.HttpError{Kind: diag.HttpOther, URL: req.URL, Detail: err.Error()}
	}

	var nvs []query.NameValue
	for name, values := range resp.Header {
		for _, v := range values {
			nvs = append(nvs, query.NameValue{Name: name, Value: v})
		}
	}

	cookies := make([]query.Cookie, 0, len(resp.Cookies()))
	for _, c := range resp.Cookies() {
		cookies = append(cookies, query.Cookie{
			Name: c.Name, Value: c.Value, Domain: c.Domain, Path: c.Path,
			Expires: c.Expires, HasMaxAge: c.MaxAge != 0, MaxAge: c.MaxAge,
			Secure: c.Secure, HttpOnly: c.HttpOnly, SameSite: sameSiteString(c.SameSite),
		})
	}

	var cert *query.CertificateInfo
	if resp.TLS != nil && len(resp.TLS.PeerCertificates) > 0 {
		c := resp.TLS.PeerCertificates[0]
		cert = &query.CertificateInfo{
			Subject:      c.Subject.String(),
			Issuer:       c.Issuer.String(),
			ExpireDate:   c.NotAfter,
			SerialNumber: c.SerialNumber.String(),
		}
	}

	remoteIP := ""
	if resp.Request != nil && resp.Request.RemoteAddr != "" {
		if host, _, err := net.SplitHostPort(resp.Request.RemoteAddr); err == nil {
			remoteIP = host
		}
	}

	// resp.Proto is "HTTP/1.1", "HTTP/2.0", ...; the query layer uses the
	// bare version number, with no minor part from HTTP/2 on.
	httpVersion := strings.TrimPrefix(resp.Proto, "HTTP/")
	if resp.ProtoMajor >= 2 {
		httpVersion = strings.TrimSuffix(httpVersion, ".0")
	}

	return &query.Response{
		HTTPVersion: httpVersion,
		StatusCode:  resp.StatusCode,
		NameValues:  nvs,
		Cookies:     cookies,
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		URL:         resp.Request.URL.String(),
		Redirects:   redirectChain,
		RemoteIP:    remoteIP,
		Duration:    duration,
		Certificate: cert,
	}, nil
}

func sameSiteString(s http.SameSite) string {
	switch s {
	case http.SameSiteStrictMode:
		return "Strict"
	case http.SameSiteLaxMode:
		return "Lax"
	case http.SameSiteNoneMode:
		return "None"
	default:
		return ""
	}
}

func classifyError(url string, err error) *diag.HttpError {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return &diag.HttpError{Kind: diag.HttpConnectRefused, URL: url, Detail: msg}
	case strings.Contains(msg, "no such host"):
		return &diag.HttpError{Kind: diag.HttpDNSFailure, URL: url, Detail: msg}
	case strings.Contains(msg, "x509") || strings.Contains(msg, "tls"):
		return &diag.HttpError{Kind: diag.HttpTLSFailure, URL: url, Detail: msg}
	case strings.Contains(msg, "Client.Timeout") || strings.Contains(msg, "context deadline exceeded"):
		return &diag.HttpError{Kind: diag.HttpTimeout, URL: url, Detail: msg}
	case strings.Contains(msg, "stopped after"):
		return &diag.HttpError{Kind: diag.HttpTooManyRedirects, URL: url, Detail: msg}
	default:
		return &diag.HttpError{Kind: diag.HttpOther, URL: url, Detail: msg}
	}
}

