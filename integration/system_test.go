//go:build integration
// +build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"testing"
	"time"
)

var baseURL = getenv("E2E_BASE_URL", "http://localhost:8080")

func TestSystem_E2E_Purchase(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	waitReady(t, ctx, baseURL+"/readyz")

	doJSON(t, http.MethodDelete, baseURL+"/state", nil, nil, 204)

	var page struct {
		Items []struct {
			ID    int    `json:"id"`
			Name  string `json:"name"`
			Price string `json:"price"`
		} `json:"items"`
		HasMore bool `json:"has_more"`
	}
	doJSON(t, http.MethodGet, baseURL+"/items?page=1", nil, &page, 200)
	if len(page.Items) == 0 {
		t.Fatalf("expected items on the first page")
	}
	if !page.HasMore {
		t.Fatalf("expected more pages after the first")
	}

	// Plenty of headroom so the purchase never depends on the random balance.
	doJSON(t, http.MethodPost, baseURL+"/wallet/funds", map[string]any{"amount": "1000000"}, nil, 200)

	id := page.Items[0].ID
	doJSON(t, http.MethodPost, baseURL+"/cart/items", map[string]any{"item_id": id}, nil, 200)

	var receipt struct {
		ID           string `json:"id"`
		ItemIDs      []int  `json:"item_ids"`
		BalanceAfter string `json:"balance_after"`
	}
	doJSON(t, http.MethodPost, baseURL+"/checkout", nil, &receipt, 200)
	if receipt.ID == "" || len(receipt.ItemIDs) != 1 || receipt.ItemIDs[0] != id {
		t.Fatalf("unexpected receipt: %#v", receipt)
	}

	doJSON(t, http.MethodPost, baseURL+"/checkout", nil, nil, 400)

	assertOwned(t, id)

	if os.Getenv("E2E_RESTART_SHOP") == "1" {
		restartShopContainer(t, ctx)
		waitReady(t, ctx, baseURL+"/readyz")
		assertOwned(t, id)

		var w struct {
			Balance string `json:"balance"`
		}
		doJSON(t, http.MethodGet, baseURL+"/wallet", nil, &w, 200)
		if w.Balance != receipt.BalanceAfter {
			t.Fatalf("balance after restart = %s, want %s", w.Balance, receipt.BalanceAfter)
		}
	}
}

func assertOwned(t *testing.T, id int) {
	t.Helper()

	var coll struct {
		Items []struct {
			ID int `json:"id"`
		} `json:"items"`
	}
	doJSON(t, http.MethodGet, baseURL+"/collection", nil, &coll, 200)
	if len(coll.Items) != 1 || coll.Items[0].ID != id {
		t.Fatalf("collection = %#v, want only item %d", coll.Items, id)
	}
}

func waitReady(t *testing.T, ctx context.Context, url string) {
	t.Helper()
	client := &http.Client{Timeout: 2 * time.Second}

	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		resp, err := client.Do(req)
		if err == nil && resp != nil && resp.StatusCode == 200 {
			_ = resp.Body.Close()
			return
		}
		if resp != nil {
			_ = resp.Body.Close()
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("service not ready: %s", url)
}

func doJSON(t *testing.T, method, url string, body any, out any, want int) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		t.Fatalf("%s %s: status=%d want=%d", method, url, resp.StatusCode, want)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
