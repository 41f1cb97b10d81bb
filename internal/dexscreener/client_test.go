package dexscreener

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestClient_LatestProfiles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[
			{"url":"https://dexscreener.com/solana/a","chainId":"solana","tokenAddress":"A","icon":"i","header":"h","description":"d","links":[{"type":"twitter","url":"https://x.com/a"}]},
			{"url":"https://dexscreener.com/base/b","chainId":"base","tokenAddress":"B"}
		]`)
	}))
	defer server.Close()

	client := NewClient(server.URL, server.URL)
	profiles, err := client.LatestProfiles(context.Background())
	if err != nil {
		t.Fatalf("LatestProfiles: %v", err)
	}

	if len(profiles) != 2 {
		t.Fatalf("expected 2 profiles, got %d", len(profiles))
	}
	if profiles[0].ChainID != "solana" || profiles[0].TokenAddress != "A" {
		t.Errorf("unexpected first profile %+v", profiles[0])
	}
	if len(profiles[0].Links) != 1 || profiles[0].Links[0].Type != "twitter" {
		t.Errorf("expected one twitter link, got %+v", profiles[0].Links)
	}
	if profiles[1].Links != nil {
		t.Errorf("expected nil links, got %+v", profiles[1].Links)
	}
}

func TestClient_LatestProfiles_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"object body", http.StatusOK, `{"error":"nope"}`},
		{"null body", http.StatusOK, `null`},
		{"empty body", http.StatusOK, ``},
		{"broken json", http.StatusOK, `[{"chainId":`},
		{"not found", http.StatusNotFound, `not found`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			client := NewClient(server.URL, server.URL, WithMaxRetries(0))
			profiles, err := client.LatestProfiles(context.Background())
			if err == nil {
				t.Fatalf("expected error, got %d profiles", len(profiles))
			}
		})
	}
}

func TestClient_LatestProfiles_InvalidIsTyped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"oops":true}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, server.URL)
	_, err := client.LatestProfiles(context.Background())
	if !errors.Is(err, ErrInvalidResponse) {
		t.Errorf("expected ErrInvalidResponse, got %v", err)
	}
}

func TestClient_TokenPairs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/tokens/MINT1") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"schemaVersion":"1.0.0","pairs":[{
			"chainId":"solana",
			"liquidity":{"usd":500},
			"priceChange":{"h24":-10},
			"marketCap":200000,
			"txns":{"h24":{"buys":60,"sells":55}},
			"info":{"socials":[{"type":"twitter","url":"https://x.com/t"}]}
		}]}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, server.URL+"/latest/dex/tokens/")
	pairs, err := client.TokenPairs(context.Background(), "MINT1")
	if err != nil {
		t.Fatalf("TokenPairs: %v", err)
	}

	if len(pairs) != 1 {
		t.Fatalf("expected 1 pair, got %d", len(pairs))
	}
	p := pairs[0]
	if p.Liquidity == nil || p.Liquidity.USD == nil || *p.Liquidity.USD != 500 {
		t.Errorf("expected liquidity 500, got %+v", p.Liquidity)
	}
	if p.PriceChange == nil || p.PriceChange.H24 == nil || *p.PriceChange.H24 != -10 {
		t.Errorf("expected price change -10, got %+v", p.PriceChange)
	}
	if p.MarketCap == nil || *p.MarketCap != 200000 {
		t.Errorf("expected market cap 200000, got %v", p.MarketCap)
	}
	if p.Txns == nil || p.Txns.H24 == nil || *p.Txns.H24.Buys != 60 || *p.Txns.H24.Sells != 55 {
		t.Errorf("unexpected txns %+v", p.Txns)
	}
	if p.Info == nil || len(p.Info.Socials) != 1 {
		t.Errorf("expected one social, got %+v", p.Info)
	}
}

func TestClient_TokenPairs_MissingFieldsStayNil(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"pairs":[{"chainId":"solana","txns":{}}]}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, server.URL)
	pairs, err := client.TokenPairs(context.Background(), "MINT1")
	if err != nil {
		t.Fatalf("TokenPairs: %v", err)
	}

	p := pairs[0]
	if p.Liquidity != nil || p.PriceChange != nil || p.MarketCap != nil || p.Info != nil {
		t.Errorf("expected missing fields to be nil, got %+v", p)
	}
	if p.Txns == nil || p.Txns.H24 != nil {
		t.Errorf("expected empty txns object, got %+v", p.Txns)
	}
}

func TestClient_TokenPairs_None(t *testing.T) {
	for _, body := range []string{`{"pairs":null}`, `{"pairs":[]}`, `{}`} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, body)
		}))

		client := NewClient(server.URL, server.URL)
		pairs, err := client.TokenPairs(context.Background(), "MINT1")
		server.Close()

		if err != nil {
			t.Errorf("body %s: unexpected error %v", body, err)
		}
		if pairs != nil {
			t.Errorf("body %s: expected nil pairs, got %+v", body, pairs)
		}
	}
}

func TestClient_RetryOn429(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `[]`)
	}))
	defer server.Close()

	client := NewClient(server.URL, server.URL,
		WithMaxRetries(3),
		WithRetryDelay(5*time.Millisecond),
	)
	profiles, err := client.LatestProfiles(context.Background())
	if err != nil {
		t.Fatalf("LatestProfiles: %v", err)
	}
	if len(profiles) != 0 {
		t.Errorf("expected no profiles, got %d", len(profiles))
	}
	if attempts.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts.Load())
	}
}

func TestClient_NoRetryOn4xx(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(server.URL, server.URL, WithRetryDelay(time.Millisecond))
	if _, err := client.TokenPairs(context.Background(), "x"); err == nil {
		t.Fatal("expected error")
	}
	if attempts.Load() != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts.Load())
	}
}

type countingLimiter struct {
	n atomic.Int32
}

func (l *countingLimiter) Acquire(ctx context.Context) error {
	l.n.Add(1)
	return ctx.Err()
}

func TestClient_Throttled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "tokens") {
			fmt.Fprint(w, `{"pairs":[]}`)
			return
		}
		fmt.Fprint(w, `[]`)
	}))
	defer server.Close()

	limiter := &countingLimiter{}
	client := NewClient(server.URL+"/profiles", server.URL+"/tokens", WithThrottle(limiter))
	ctx := context.Background()

	if _, err := client.LatestProfiles(ctx); err != nil {
		t.Fatalf("LatestProfiles: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := client.TokenPairs(ctx, "m"); err != nil {
			t.Fatalf("TokenPairs: %v", err)
		}
	}

	if limiter.n.Load() != 4 {
		t.Errorf("expected 4 acquisitions, got %d", limiter.n.Load())
	}
}

func TestClient_ThrottleCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not be sent")
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient(server.URL, server.URL, WithThrottle(&countingLimiter{}))
	if _, err := client.LatestProfiles(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
