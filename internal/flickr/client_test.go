package flickr

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"sync"
	"testing"
)

// fakeFlickr serves canned search replies and records the queries it saw.
type fakeFlickr struct {
	mu       sync.Mutex
	queries  []url.Values
	countRes string // body for requests without a page parameter
	pageRes  string // body for requests with a page parameter
	status   int
}

func (f *fakeFlickr) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.queries = append(f.queries, r.URL.Query())
	f.mu.Unlock()

	if f.status != 0 {
		w.WriteHeader(f.status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if r.URL.Query().Get("page") == "" {
		w.Write([]byte(f.countRes))
		return
	}
	w.Write([]byte(f.pageRes))
}

func (f *fakeFlickr) requests() []url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.queries)
}

func newTestClient(t *testing.T, f *fakeFlickr, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	base := []Option{
		WithBaseURL(srv.URL + "/services/rest/"),
		WithHTTPClient(srv.Client()),
		WithRateLimit(0, 0),
	}
	return NewClient("test-key", append(base, opts...)...)
}

const pageBody = `{"photos":{"page":3,"pages":12,"perpage":21,"total":"250","photo":[
	{"id":"1","title":"a","url_q":"https://live.staticflickr.com/1_q.jpg"},
	{"id":"2","title":"no thumbnail"},
	{"id":"3","title":"c","url_q":"https://live.staticflickr.com/3_q.jpg"}
]},"stat":"ok"}`

func TestClient_Search(t *testing.T) {
	t.Run("two stage search", func(t *testing.T) {
		f := &fakeFlickr{
			countRes: `{"photos":{"page":1,"pages":"500","perpage":21,"total":"10000","photo":[]},"stat":"ok"}`,
			pageRes:  pageBody,
		}
		var pickedFrom int
		c := newTestClient(t, f, WithPagePicker(func(n int) int {
			pickedFrom = n
			return 2
		}))

		urls, err := c.Search(context.Background(), 37.7749, -122.4194)
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}

		want := []string{"https://live.staticflickr.com/1_q.jpg", "https://live.staticflickr.com/3_q.jpg"}
		if !slices.Equal(urls, want) {
			t.Errorf("Search() = %v, want %v", urls, want)
		}
		if pickedFrom != MaxPage {
			t.Errorf("page picked from %d pages, want clamped %d", pickedFrom, MaxPage)
		}

		reqs := f.requests()
		if len(reqs) != 2 {
			t.Fatalf("requests = %d, want 2", len(reqs))
		}
		if reqs[1].Get("page") != "3" {
			t.Errorf("second request page = %q, want 3", reqs[1].Get("page"))
		}
		for i, q := range reqs {
			if q.Get("bbox") != "-122.6694,37.5249,-122.1694,38.0249" {
				t.Errorf("request %d bbox = %q", i, q.Get("bbox"))
			}
		}
	})

	t.Run("fixed query parameters", func(t *testing.T) {
		f := &fakeFlickr{
			countRes: `{"photos":{"pages":1},"stat":"ok"}`,
			pageRes:  pageBody,
		}
		c := newTestClient(t, f, WithPagePicker(func(int) int { return 0 }))

		if _, err := c.Search(context.Background(), 1, 2); err != nil {
			t.Fatalf("Search() error = %v", err)
		}

		want := map[string]string{
			"method":         "flickr.photos.search",
			"api_key":        "test-key",
			"format":         "json",
			"safe_search":    "1",
			"nojsoncallback": "1",
			"per_page":       "21",
			"media":          "photos",
			"extras":         "url_q",
		}
		for _, q := range f.requests() {
			for k, v := range want {
				if q.Get(k) != v {
					t.Errorf("query %s = %q, want %q", k, q.Get(k), v)
				}
			}
		}
	})

	t.Run("no pages returns empty without second request", func(t *testing.T) {
		f := &fakeFlickr{countRes: `{"photos":{"page":1,"pages":0,"photo":[]},"stat":"ok"}`}
		c := newTestClient(t, f)

		urls, err := c.Search(context.Background(), 1, 2)
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(urls) != 0 {
			t.Errorf("Search() = %v, want empty", urls)
		}
		if n := len(f.requests()); n != 1 {
			t.Errorf("requests = %d, want 1", n)
		}
	})

	t.Run("custom half size", func(t *testing.T) {
		f := &fakeFlickr{countRes: `{"photos":{"pages":0},"stat":"ok"}`}
		c := newTestClient(t, f, WithHalfSize(1, 2))

		if _, err := c.Search(context.Background(), 0, 0); err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if got := f.requests()[0].Get("bbox"); got != "-1,-2,1,2" {
			t.Errorf("bbox = %q, want -1,-2,1,2", got)
		}
	})
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name     string
		fake     *fakeFlickr
		wantErr  error
		wantReqs int
	}{
		{
			name:     "server error status",
			fake:     &fakeFlickr{status: http.StatusInternalServerError},
			wantErr:  ErrNetwork,
			wantReqs: 1,
		},
		{
			name:     "stat fail",
			fake:     &fakeFlickr{countRes: `{"stat":"fail","code":100,"message":"Invalid API Key (Key has invalid format)"}`},
			wantErr:  ErrInput,
			wantReqs: 1,
		},
		{
			name:     "message without stat",
			fake:     &fakeFlickr{countRes: `{"message":"bad bbox"}`},
			wantErr:  ErrInput,
			wantReqs: 1,
		},
		{
			name:     "missing page count",
			fake:     &fakeFlickr{countRes: `{"photos":{"page":1},"stat":"ok"}`},
			wantErr:  ErrUnknown,
			wantReqs: 1,
		},
		{
			name:     "malformed json",
			fake:     &fakeFlickr{countRes: `{"photos":`},
			wantErr:  ErrDecode,
			wantReqs: 1,
		},
		{
			name: "missing photo list on page",
			fake: &fakeFlickr{
				countRes: `{"photos":{"pages":3},"stat":"ok"}`,
				pageRes:  `{"photos":{"pages":3},"stat":"ok"}`,
			},
			wantErr:  ErrUnknown,
			wantReqs: 2,
		},
		{
			name: "page rejected",
			fake: &fakeFlickr{
				countRes: `{"photos":{"pages":3},"stat":"ok"}`,
				pageRes:  `{"stat":"fail","code":3,"message":"Parameterless searches have been disabled"}`,
			},
			wantErr:  ErrInput,
			wantReqs: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.fake)

			urls, err := c.Search(context.Background(), 10, 20)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Search() error = %v, want %v", err, tt.wantErr)
			}
			if urls != nil {
				t.Errorf("Search() = %v, want nil on error", urls)
			}
			if n := len(tt.fake.requests()); n != tt.wantReqs {
				t.Errorf("requests = %d, want %d", n, tt.wantReqs)
			}
		})
	}
}

func TestClient_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := NewClient("k", WithBaseURL(base), WithRateLimit(0, 0))
	_, err := c.Search(context.Background(), 0, 0)
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("Search() error = %v, want ErrNetwork", err)
	}
}

func TestFlexInt(t *testing.T) {
	tests := []struct {
		in   string
		want flexInt
	}{
		{`12`, 12},
		{`"12"`, 12},
		{`""`, 0},
		{`null`, 0},
	}
	for _, tt := range tests {
		var got flexInt
		if err := got.UnmarshalJSON([]byte(tt.in)); err != nil {
			t.Errorf("UnmarshalJSON(%s) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("UnmarshalJSON(%s) = %d, want %d", tt.in, got, tt.want)
		}
	}

	var bad flexInt
	if err := bad.UnmarshalJSON([]byte(`"twelve"`)); err == nil {
		t.Error(`UnmarshalJSON("twelve") expected error`)
	}
}
