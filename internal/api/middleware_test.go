package api

import (
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
	"time"

	"go.uber.org/zap"
)

func rateLimited(trusted []netip.Prefix) http.Handler {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	return RateLimitMiddleware(0.001, 1, trusted, zap.NewNop())(ok)
}

func sendFrom(h http.Handler, remote, xff string) int {
	req := httptest.NewRequest(http.MethodPost, "/appointments", nil)
	req.RemoteAddr = remote
	if xff != "" {
		req.Header.Set("X-Forwarded-For", xff)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestRateLimit_IgnoresForwardedForFromUntrustedPeer(t *testing.T) {
	h := rateLimited(nil)

	if code := sendFrom(h, "198.51.100.9:4000", "1.1.1.1"); code != http.StatusNoContent {
		t.Fatalf("first request: expected 204, got %d", code)
	}
	if code := sendFrom(h, "198.51.100.9:4001", "2.2.2.2"); code != http.StatusTooManyRequests {
		t.Fatalf("spoofed header: expected 429, got %d", code)
	}
}

func TestRateLimit_TrustedProxyForwardsClient(t *testing.T) {
	h := rateLimited([]netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")})

	if code := sendFrom(h, "10.0.0.1:5000", "203.0.113.5"); code != http.StatusNoContent {
		t.Fatalf("client A: expected 204, got %d", code)
	}
	if code := sendFrom(h, "10.0.0.1:5000", "203.0.113.6"); code != http.StatusNoContent {
		t.Fatalf("client B: expected its own bucket, got %d", code)
	}
	// The left-most hop is client controlled; the proxy appends the real peer.
	if code := sendFrom(h, "10.0.0.1:5000", "203.0.113.77, 203.0.113.5"); code != http.StatusTooManyRequests {
		t.Fatalf("client A behind a forged hop: expected 429, got %d", code)
	}
}

func TestClientResolver(t *testing.T) {
	cr := clientResolver{trusted: []netip.Prefix{
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("192.168.1.7/32"),
	}}

	tests := []struct {
		name   string
		remote string
		xff    string
		want   string
	}{
		{name: "untrusted peer", remote: "198.51.100.9:80", xff: "1.1.1.1", want: "198.51.100.9"},
		{name: "trusted peer without header", remote: "10.1.2.3:80", want: "10.1.2.3"},
		{name: "trusted peer", remote: "10.1.2.3:80", xff: "203.0.113.5", want: "203.0.113.5"},
		{name: "skips trusted hops", remote: "10.1.2.3:80", xff: "203.0.113.5, 192.168.1.7", want: "203.0.113.5"},
		{name: "garbage hop", remote: "10.1.2.3:80", xff: "1.1.1.1, nonsense", want: "10.1.2.3"},
		{name: "mapped v4 peer", remote: "[::ffff:10.0.0.1]:80", xff: "203.0.113.9", want: "203.0.113.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := cr.clientIP(req); got != tt.want {
				t.Errorf("clientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClientLimiter_EvictsIdleClients(t *testing.T) {
	now := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	cl := newClientLimiter(1, 5)
	cl.now = func() time.Time { return now }
	cl.lastSweep = now

	for _, c := range []string{"a", "b", "c"} {
		cl.allow(c)
	}
	if got := cl.size(); got != 3 {
		t.Fatalf("expected 3 tracked clients, got %d", got)
	}

	now = now.Add(cl.idleTTL / 2)
	cl.allow("a")

	now = now.Add(cl.idleTTL/2 + time.Second)
	cl.allow("d")

	// b and c went idle; a was seen half a TTL ago.
	if got := cl.size(); got != 2 {
		t.Fatalf("expected 2 tracked clients after sweep, got %d", got)
	}
}
