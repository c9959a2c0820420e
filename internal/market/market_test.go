package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestSearch(t *testing.T) {
	assets := []Symbol{
		{Symbol: "AAPL", Name: "Apple Inc."},
		{Symbol: "MSFT", Name: "Microsoft Corporation"},
		{Symbol: "APP", Name: ""},
	}
	tests := []struct {
		query string
		want  int
	}{
		{"aap", 1},
		{"apple", 1},
		{"corp", 1},
		{"AP", 2},
		{"", 3},
		{"zzz", 0},
	}
	for _, tt := range tests {
		if got := Search(assets, tt.query); len(got) != tt.want {
			t.Fatalf("Search(%q)=%v, expected %d hits", tt.query, got, tt.want)
		}
	}
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	p := Paginate(items, 2, 2, false)
	if p.Total != 5 || p.Pages != 3 || len(p.Symbols) != 2 || p.Symbols[0] != 3 {
		t.Fatalf("page 2=%+v", p)
	}
	if p := Paginate(items, 9, 2, false); len(p.Symbols) != 0 || p.Page != 9 {
		t.Fatalf("unclamped overflow=%+v", p)
	}
	if p := Paginate(items, 9, 2, true); p.Page != 3 || len(p.Symbols) != 1 || p.Symbols[0] != 5 {
		t.Fatalf("clamped overflow=%+v", p)
	}
	if p := Paginate([]int{}, 1, 0, true); p.Pages != 0 || len(p.Symbols) != 0 {
		t.Fatalf("empty=%+v", p)
	}
}

func TestMockClock(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	open := (&MockProvider{Now: func() time.Time { return time.Date(2024, 3, 6, 11, 0, 0, 0, ny) }})
	st, _ := open.Status(context.Background())
	if !st.IsOpen || st.NextClose.Hour() != 16 {
		t.Fatalf("wednesday 11:00 status=%+v", st)
	}

	weekend := (&MockProvider{Now: func() time.Time { return time.Date(2024, 3, 9, 11, 0, 0, 0, ny) }})
	st, _ = weekend.Status(context.Background())
	if st.IsOpen || st.NextOpen.Weekday() != time.Monday {
		t.Fatalf("saturday status=%+v", st)
	}
}

func TestClientCachesAssets(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.Header.Get("APCA-API-KEY-ID") != "key" {
			t.Errorf("missing api key header")
		}
		switch r.URL.Path {
		case "/v2/assets":
			_, _ = w.Write([]byte(`[
				{"symbol":"AAPL","name":"Apple","class":"us_equity","tradable":true},
				{"symbol":"BTCUSD","name":"Bitcoin","class":"crypto","tradable":true},
				{"symbol":"XYZ","name":"Halted","class":"us_equity","tradable":false}]`))
		case "/v2/clock":
			_, _ = w.Write([]byte(`{"is_open":true,"next_open":"2024-03-07T09:30:00-05:00","next_close":"2024-03-06T16:00:00-05:00"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, APIKey: "key", APISecret: "secret", RequestsPerSecond: 100})
	for i := 0; i < 3; i++ {
		assets, err := c.Assets(context.Background())
		if err != nil {
			t.Fatalf("Assets: %v", err)
		}
		if len(assets) != 1 || assets[0].Symbol != "AAPL" {
			t.Fatalf("assets=%+v", assets)
		}
	}
	st, err := c.Status(context.Background())
	if err != nil || !st.IsOpen {
		t.Fatalf("status=%+v err=%v", st, err)
	}
	if _, err := c.Status(context.Background()); err != nil {
		t.Fatalf("Status: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Fatalf("upstream calls=%d, expected 2", n)
	}
}

func TestClientUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	if _, err := NewClient(Config{BaseURL: srv.URL}).Status(context.Background()); err == nil {
		t.Fatalf("expected error on 403")
	}
}
