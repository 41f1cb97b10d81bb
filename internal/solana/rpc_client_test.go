package solana

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mr-tron/base58"
)

// newRPCServer serves a single JSON-RPC method, answering with result(req).
func newRPCServer(t *testing.T, method string, result func(req rpcRequest) interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}

		if req.Method != method {
			t.Errorf("expected method %s, got %s", method, req.Method)
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  result(req),
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func testKey(fill byte) []byte {
	return bytes.Repeat([]byte{fill}, PublicKeySize)
}

func TestHTTPClient_GetTokenSupply(t *testing.T) {
	server := newRPCServer(t, "getTokenSupply", func(req rpcRequest) interface{} {
		if req.Params[0] != "mint1" {
			t.Errorf("expected mint1, got %v", req.Params[0])
		}
		cfg := req.Params[1].(map[string]interface{})
		if cfg["commitment"] != "confirmed" {
			t.Errorf("expected confirmed commitment, got %v", cfg["commitment"])
		}
		return map[string]interface{}{
			"context": map[string]interface{}{"slot": 1},
			"value": map[string]interface{}{
				"amount":         "1000000000000",
				"decimals":       6,
				"uiAmount":       1000000.0,
				"uiAmountString": "1000000",
			},
		}
	})
	defer server.Close()

	client := NewHTTPClient(server.URL)
	supply, err := client.GetTokenSupply(context.Background(), "mint1")
	if err != nil {
		t.Fatalf("GetTokenSupply: %v", err)
	}

	if supply.Amount != "1000000000000" {
		t.Errorf("expected raw amount 1000000000000, got %s", supply.Amount)
	}
	if supply.Decimals != 6 {
		t.Errorf("expected 6 decimals, got %d", supply.Decimals)
	}

	ui, err := supply.UIAmount()
	if err != nil {
		t.Fatalf("UIAmount: %v", err)
	}
	if ui.String() != "1000000" {
		t.Errorf("expected ui amount 1000000, got %s", ui)
	}
}

func TestHTTPClient_GetTokenAccountsByOwner(t *testing.T) {
	server := newRPCServer(t, "getTokenAccountsByOwner", func(req rpcRequest) interface{} {
		if req.Params[0] != "ammprogram" {
			t.Errorf("expected owner ammprogram, got %v", req.Params[0])
		}
		filter := req.Params[1].(map[string]interface{})
		if filter["mint"] != "mint1" {
			t.Errorf("expected mint filter mint1, got %v", filter["mint"])
		}
		cfg := req.Params[2].(map[string]interface{})
		if cfg["encoding"] != "jsonParsed" {
			t.Errorf("expected jsonParsed encoding, got %v", cfg["encoding"])
		}
		return map[string]interface{}{
			"value": []interface{}{
				map[string]interface{}{
					"pubkey": "pool1",
					"account": map[string]interface{}{
						"data": map[string]interface{}{
							"parsed": map[string]interface{}{
								"info": map[string]interface{}{
									"mint":  "mint1",
									"owner": "ammprogram",
									"tokenAmount": map[string]interface{}{
										"amount":         "2500",
										"decimals":       2,
										"uiAmountString": "25",
									},
								},
							},
						},
					},
				},
			},
		}
	})
	defer server.Close()

	client := NewHTTPClient(server.URL)
	accounts, err := client.GetTokenAccountsByOwner(context.Background(), "ammprogram", "mint1")
	if err != nil {
		t.Fatalf("GetTokenAccountsByOwner: %v", err)
	}

	if len(accounts) != 1 {
		t.Fatalf("expected 1 account, got %d", len(accounts))
	}
	acc := accounts[0]
	if acc.Pubkey != "pool1" || acc.Owner != "ammprogram" || acc.Mint != "mint1" {
		t.Errorf("unexpected account %+v", acc)
	}
	if acc.Amount == nil || acc.Amount.UIAmountString != "25" {
		t.Errorf("expected amount 25, got %+v", acc.Amount)
	}
}

func TestHTTPClient_GetTokenAccountBalance(t *testing.T) {
	server := newRPCServer(t, "getTokenAccountBalance", func(req rpcRequest) interface{} {
		return map[string]interface{}{
			"value": map[string]interface{}{
				"amount":         "0",
				"decimals":       9,
				"uiAmountString": "0",
			},
		}
	})
	defer server.Close()

	client := NewHTTPClient(server.URL)
	balance, err := client.GetTokenAccountBalance(context.Background(), "acc1")
	if err != nil {
		t.Fatalf("GetTokenAccountBalance: %v", err)
	}

	ui, err := balance.UIAmount()
	if err != nil {
		t.Fatalf("UIAmount: %v", err)
	}
	if !ui.IsZero() {
		t.Errorf("expected zero balance, got %s", ui)
	}
}

func TestHTTPClient_GetTokenAccountsByMint(t *testing.T) {
	mintKey := testKey(1)
	mint := base58.Encode(mintKey)
	ownerA := testKey(2)
	ownerB := testKey(3)

	accountData := func(owner []byte) string {
		data := make([]byte, TokenAccountSize)
		copy(data[0:32], mintKey)
		copy(data[32:64], owner)
		return base64.StdEncoding.EncodeToString(data)
	}

	server := newRPCServer(t, "getProgramAccounts", func(req rpcRequest) interface{} {
		if req.Params[0] != TokenProgramID {
			t.Errorf("expected token program, got %v", req.Params[0])
		}
		cfg := req.Params[1].(map[string]interface{})
		filters := cfg["filters"].([]interface{})
		if len(filters) != 2 {
			t.Errorf("expected 2 filters, got %d", len(filters))
			return nil
		}
		size := filters[0].(map[string]interface{})["dataSize"].(float64)
		if size != TokenAccountSize {
			t.Errorf("expected dataSize %d, got %v", TokenAccountSize, size)
		}
		memcmp := filters[1].(map[string]interface{})["memcmp"].(map[string]interface{})
		if memcmp["offset"].(float64) != 0 || memcmp["bytes"] != mint {
			t.Errorf("unexpected memcmp filter %v", memcmp)
		}
		return []interface{}{
			map[string]interface{}{
				"pubkey":  "acc1",
				"account": map[string]interface{}{"data": []string{accountData(ownerA), "base64"}},
			},
			map[string]interface{}{
				"pubkey":  "acc2",
				"account": map[string]interface{}{"data": []string{accountData(ownerB), "base64"}},
			},
		}
	})
	defer server.Close()

	client := NewHTTPClient(server.URL)
	accounts, err := client.GetTokenAccountsByMint(context.Background(), mint)
	if err != nil {
		t.Fatalf("GetTokenAccountsByMint: %v", err)
	}

	if len(accounts) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(accounts))
	}
	if accounts[0].Owner != base58.Encode(ownerA) {
		t.Errorf("expected owner A, got %s", accounts[0].Owner)
	}
	if accounts[1].Owner != base58.Encode(ownerB) {
		t.Errorf("expected owner B, got %s", accounts[1].Owner)
	}
	if accounts[0].Mint != mint {
		t.Errorf("expected mint %s, got %s", mint, accounts[0].Mint)
	}
}

func TestHTTPClient_GetTokenAccountsByMint_ShortData(t *testing.T) {
	server := newRPCServer(t, "getProgramAccounts", func(req rpcRequest) interface{} {
		return []interface{}{
			map[string]interface{}{
				"pubkey":  "acc1",
				"account": map[string]interface{}{"data": []string{base64.StdEncoding.EncodeToString([]byte{1, 2, 3}), "base64"}},
			},
		}
	})
	defer server.Close()

	client := NewHTTPClient(server.URL)
	if _, err := client.GetTokenAccountsByMint(context.Background(), "mint"); err == nil {
		t.Fatal("expected error for truncated account data")
	}
}

func TestHTTPClient_GetLatestBlockhash(t *testing.T) {
	server := newRPCServer(t, "getLatestBlockhash", func(req rpcRequest) interface{} {
		return map[string]interface{}{
			"value": map[string]interface{}{
				"blockhash":            "EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N",
				"lastValidBlockHeight": 3090,
			},
		}
	})
	defer server.Close()

	client := NewHTTPClient(server.URL)
	bh, err := client.GetLatestBlockhash(context.Background())
	if err != nil {
		t.Fatalf("GetLatestBlockhash: %v", err)
	}

	if bh.Hash != "EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N" {
		t.Errorf("unexpected hash %s", bh.Hash)
	}
	if bh.LastValidBlockHeight != 3090 {
		t.Errorf("expected height 3090, got %d", bh.LastValidBlockHeight)
	}
}

func TestHTTPClient_GetFeeForMessage(t *testing.T) {
	server := newRPCServer(t, "getFeeForMessage", func(req rpcRequest) interface{} {
		if req.Params[0] != "bXNn" {
			t.Errorf("expected message bXNn, got %v", req.Params[0])
		}
		return map[string]interface{}{"value": 5000}
	})
	defer server.Close()

	client := NewHTTPClient(server.URL)
	fee, err := client.GetFeeForMessage(context.Background(), "bXNn")
	if err != nil {
		t.Fatalf("GetFeeForMessage: %v", err)
	}

	if fee == nil || *fee != 5000 {
		t.Errorf("expected fee 5000, got %v", fee)
	}
}

func TestHTTPClient_GetFeeForMessage_Null(t *testing.T) {
	server := newRPCServer(t, "getFeeForMessage", func(req rpcRequest) interface{} {
		return map[string]interface{}{"value": nil}
	})
	defer server.Close()

	client := NewHTTPClient(server.URL)
	fee, err := client.GetFeeForMessage(context.Background(), "bXNn")
	if err != nil {
		t.Fatalf("GetFeeForMessage: %v", err)
	}

	if fee != nil {
		t.Errorf("expected nil fee, got %d", *fee)
	}
}

func TestHTTPClient_SendTransaction(t *testing.T) {
	server := newRPCServer(t, "sendTransaction", func(req rpcRequest) interface{} {
		cfg := req.Params[1].(map[string]interface{})
		if cfg["encoding"] != "base64" {
			t.Errorf("expected base64 encoding, got %v", cfg["encoding"])
		}
		return "5sig"
	})
	defer server.Close()

	client := NewHTTPClient(server.URL)
	sig, err := client.SendTransaction(context.Background(), "dHg=")
	if err != nil {
		t.Fatalf("SendTransaction: %v", err)
	}

	if sig != "5sig" {
		t.Errorf("expected 5sig, got %s", sig)
	}
}

func TestHTTPClient_GetSignatureStatuses(t *testing.T) {
	server := newRPCServer(t, "getSignatureStatuses", func(req rpcRequest) interface{} {
		return map[string]interface{}{
			"value": []interface{}{
				map[string]interface{}{
					"slot":               72,
					"confirmations":      10,
					"err":                nil,
					"confirmationStatus": "confirmed",
				},
				nil,
			},
		}
	})
	defer server.Close()

	client := NewHTTPClient(server.URL)
	statuses, err := client.GetSignatureStatuses(context.Background(), []string{"sig1", "sig2"})
	if err != nil {
		t.Fatalf("GetSignatureStatuses: %v", err)
	}

	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}
	if statuses[0] == nil || statuses[0].Slot != 72 {
		t.Errorf("unexpected first status %+v", statuses[0])
	}
	if !statuses[0].Landed("confirmed") {
		t.Error("expected first status to be landed at confirmed")
	}
	if statuses[1] != nil {
		t.Errorf("expected nil second status, got %+v", statuses[1])
	}
}

func TestHTTPClient_Retry(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count := attempts.Add(1)
		if count < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}

		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  map[string]interface{}{"value": 7000},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL,
		WithMaxRetries(3),
		WithRetryDelay(10*time.Millisecond),
	)

	fee, err := client.GetFeeForMessage(context.Background(), "bXNn")
	if err != nil {
		t.Fatalf("GetFeeForMessage: %v", err)
	}

	if fee == nil || *fee != 7000 {
		t.Errorf("expected fee 7000, got %v", fee)
	}

	if attempts.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts.Load())
	}
}

func TestHTTPClient_RPCError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error": map[string]interface{}{
				"code":    -32602,
				"message": "Invalid param: could not find mint",
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)

	_, err := client.GetTokenSupply(context.Background(), "nomint")
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("expected RPCError, got %T", err)
	}

	if rpcErr.Code != -32602 {
		t.Errorf("expected code -32602, got %d", rpcErr.Code)
	}
}

type countingLimiter struct {
	n atomic.Int32
}

func (l *countingLimiter) Acquire(ctx context.Context) error {
	l.n.Add(1)
	return ctx.Err()
}

func TestHTTPClient_ThrottledPerAttempt(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  "sig",
		})
	}))
	defer server.Close()

	limiter := &countingLimiter{}
	client := NewHTTPClient(server.URL,
		WithThrottle(limiter),
		WithRetryDelay(time.Millisecond),
	)

	if _, err := client.SendTransaction(context.Background(), "dHg="); err != nil {
		t.Fatalf("SendTransaction: %v", err)
	}

	if limiter.n.Load() != 2 {
		t.Errorf("expected 2 limiter acquisitions, got %d", limiter.n.Load())
	}
}

func TestHTTPClient_WithCommitment(t *testing.T) {
	server := newRPCServer(t, "getLatestBlockhash", func(req rpcRequest) interface{} {
		cfg := req.Params[0].(map[string]interface{})
		if cfg["commitment"] != "finalized" {
			t.Errorf("expected finalized commitment, got %v", cfg["commitment"])
		}
		return map[string]interface{}{
			"value": map[string]interface{}{"blockhash": "hash", "lastValidBlockHeight": 1},
		}
	})
	defer server.Close()

	client := NewHTTPClient(server.URL, WithCommitment("finalized"))
	if client.Commitment() != "finalized" {
		t.Errorf("expected finalized, got %s", client.Commitment())
	}
	if _, err := client.GetLatestBlockhash(context.Background()); err != nil {
		t.Fatalf("GetLatestBlockhash: %v", err)
	}
}

func TestHTTPClient_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	_, err := client.GetTokenSupply(ctx, "mint")
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func TestTokenAmount_UIAmount(t *testing.T) {
	tests := []struct {
		name    string
		amount  TokenAmount
		want    string
		wantErr bool
	}{
		{"ui string", TokenAmount{UIAmountString: "12.5"}, "12.5", false},
		{"raw shifted", TokenAmount{Amount: "12345", Decimals: 3}, "12.345", false},
		{"raw no decimals", TokenAmount{Amount: "100"}, "100", false},
		{"empty", TokenAmount{}, "", true},
		{"garbage", TokenAmount{UIAmountString: "abc"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.amount.UIAmount()
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %s", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("UIAmount: %v", err)
			}
			if got.String() != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}
