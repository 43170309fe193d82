// Package fetch implements the HTTP/1 backend round trip that produces the
// objects an Engine is asked to track. It sits outside the engine's core
// scope (spec.md §1 calls it out as an external caller, grounded on
// V1F_fetch_hdr in cache_http1_fetch.c) — this package only ever builds a
// *revexpire.Object and hands it to whoever called it; it never touches an
// Engine, a HashStore, or an LRU directly.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/relaycache/revexpire"
)

// BackendPolicy supplies the caching attributes a response's own headers
// don't carry: a fallback TTL for responses with no Cache-Control/Age at
// all, and the grace/keep windows the original source treats as local
// configuration rather than wire data.
type BackendPolicy struct {
	DefaultTTL float64
	Grace      float64
	Keep       float64
}

// Result is one fetch's outcome: an Object ready for Engine.Insert, the
// response body, and the status code it arrived with.
type Result struct {
	Object *revexpire.Object
	Body   []byte
	Status int
}

// Fetch sends req and reads back a complete HTTP/1 response, the Go
// equivalent of V1F_fetch_hdr's "send request, receive headers" followed
// by reading the body to completion. now is the caller's wall-clock
// reading (spec.md's t_origin is always "when we got this", not "when the
// origin says it is"), and xid is the caller-assigned identifier carried
// through to ExpKill log records.
//
// Unlike V1F_fetch_hdr's three-way retry contract (-1/0/1), this always
// returns a plain error on failure: net/http's RoundTripper already
// distinguishes connection failures from protocol failures in the
// wrapped error, and retry policy belongs to the caller's transport
// (e.g. a custom http.RoundTripper), not to this function.
func Fetch(ctx context.Context, client *http.Client, req *http.Request, now float64, policy BackendPolicy, xid uint64) (*Result, error) {
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("fetch: backend request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fetch: reading response body: %w", err)
	}

	age := deriveAge(resp.Header)
	ttl := deriveTTL(resp.Header, policy.DefaultTTL)

	obj := &revexpire.Object{XID: xid}
	obj.SetExp(now-age, ttl, policy.Grace, policy.Keep)

	return &Result{Object: obj, Body: body, Status: resp.StatusCode}, nil
}

// deriveAge reads the Age header (RFC 7234 §5.1): how long the response
// has already been sitting in an upstream cache before reaching us.
func deriveAge(h http.Header) float64 {
	v := h.Get("Age")
	if v == "" {
		return 0
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// deriveTTL prefers Cache-Control's s-maxage over max-age, matching RFC
// 7234 §5.2.2.9/.8 precedence, and falls back to the caller's policy
// default when neither directive is present.
func deriveTTL(h http.Header, fallback float64) float64 {
	cc := h.Get("Cache-Control")
	if cc == "" {
		return fallback
	}
	if ttl, ok := maxAgeDirective(cc, "s-maxage"); ok {
		return ttl
	}
	if ttl, ok := maxAgeDirective(cc, "max-age"); ok {
		return ttl
	}
	return fallback
}

func maxAgeDirective(cacheControl, directive string) (float64, bool) {
	for _, part := range strings.Split(cacheControl, ",") {
		name, val, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found || !strings.EqualFold(strings.TrimSpace(name), directive) {
			continue
		}
		n, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}
