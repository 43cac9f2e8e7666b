package pocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pocketsnooze/snoozerd/internal/logger"
)

// fakeTokenStore is an in-memory TokenStore.
type fakeTokenStore struct {
	token   string
	cleared bool
}

func (f *fakeTokenStore) AccessToken(ctx context.Context) (string, error) {
	return f.token, nil
}

func (f *fakeTokenStore) ClearAccessToken(ctx context.Context) error {
	f.token = ""
	f.cleared = true
	return nil
}

func newTestClient(t *testing.T, tokens *fakeTokenStore, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(ClientOptions{
		BaseURL:     srv.URL,
		ConsumerKey: "test-consumer-key",
		Tokens:      tokens,
		Logger:      logger.New("error", false),
	})
}

func TestRequestAttachesCredentials(t *testing.T) {
	var got map[string]any
	tokens := &fakeTokenStore{token: "tok-123"}
	client := newTestClient(t, tokens, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		if r.Header.Get("X-Accept") != "application/json" {
			t.Errorf("X-Accept = %q", r.Header.Get("X-Accept"))
		}
		_, _ = w.Write([]byte(`{"item":{"item_id":"42"}}`))
	})

	if _, err := client.Add(context.Background(), "https://example.com", TagSnoozed); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if got["consumer_key"] != "test-consumer-key" {
		t.Errorf("consumer_key = %v", got["consumer_key"])
	}
	if got["access_token"] != "tok-123" {
		t.Errorf("access_token = %v", got["access_token"])
	}
	if got["url"] != "https://example.com" {
		t.Errorf("url = %v", got["url"])
	}
}

func TestRequestOmitsMissingToken(t *testing.T) {
	var got map[string]any
	client := newTestClient(t, &fakeTokenStore{}, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"code":"req-code"}`))
	})

	code, err := client.RequestToken(context.Background(), "https://getpocket.com/auth/verify")
	if err != nil {
		t.Fatalf("RequestToken failed: %v", err)
	}
	if code != "req-code" {
		t.Errorf("code = %q, want req-code", code)
	}
	if _, present := got["access_token"]; present {
		t.Error("access_token should not be attached before authentication")
	}
}

func TestUnauthorizedEvictsToken(t *testing.T) {
	tokens := &fakeTokenStore{token: "stale-token"}
	client := newTestClient(t, tokens, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Error", "User authorization revoked")
		w.WriteHeader(http.StatusUnauthorized)
	})

	err := client.Modify(context.Background(), []Action{ArchiveAction("1")})
	if err == nil {
		t.Fatal("Modify should have failed")
	}
	if !IsAuthError(err) {
		t.Errorf("error should be an auth error, got %v", err)
	}
	re, ok := AsRequestError(err)
	if !ok {
		t.Fatalf("error should be a RequestError, got %T", err)
	}
	if re.Name() != "PocketAuthenticationError" {
		t.Errorf("Name() = %q", re.Name())
	}
	if re.XError != "User authorization revoked" {
		t.Errorf("XError = %q", re.XError)
	}
	if !tokens.cleared {
		t.Error("token should have been evicted from the store")
	}
}

func TestUnauthorizedWithoutTokenIsNotAuthError(t *testing.T) {
	tokens := &fakeTokenStore{}
	client := newTestClient(t, tokens, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	err := client.Modify(context.Background(), []Action{ArchiveAction("1")})
	if IsAuthError(err) {
		t.Error("a 401 without an attached token should stay a plain request error")
	}
	if tokens.cleared {
		t.Error("nothing to evict without a stored token")
	}
}

func TestRemoteErrorClassification(t *testing.T) {
	client := newTestClient(t, &fakeTokenStore{token: "tok"}, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Error", "Invalid request")
		w.WriteHeader(http.StatusBadRequest)
	})

	err := client.Modify(context.Background(), []Action{ArchiveAction("1")})
	re, ok := AsRequestError(err)
	if !ok {
		t.Fatalf("error should be a RequestError, got %T", err)
	}
	if re.Kind != KindRemote {
		t.Errorf("Kind = %v, want KindRemote", re.Kind)
	}
	if re.Name() != "PocketRequestError" {
		t.Errorf("Name() = %q", re.Name())
	}
	if re.Status != http.StatusBadRequest {
		t.Errorf("Status = %d", re.Status)
	}
}

func TestTransportErrorClassification(t *testing.T) {
	client := NewClient(ClientOptions{
		BaseURL:     "http://127.0.0.1:1", // nothing listens here
		ConsumerKey: "key",
		Tokens:      &fakeTokenStore{},
		Logger:      logger.New("error", false),
	})

	err := client.Modify(context.Background(), []Action{ArchiveAction("1")})
	re, ok := AsRequestError(err)
	if !ok {
		t.Fatalf("error should be a RequestError, got %T", err)
	}
	if re.Kind != KindTransport {
		t.Errorf("Kind = %v, want KindTransport", re.Kind)
	}
	if re.XError != XErrorTransport {
		t.Errorf("XError = %q, want %q", re.XError, XErrorTransport)
	}
}

func TestRetrieveEmptyListQuirk(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{
			name: "empty result arrives as array",
			body: `{"list":[]}`,
			want: 0,
		},
		{
			name: "populated result is an object",
			body: `{"list":{"7":{"item_id":"7","resolved_title":"Seven"}}}`,
			want: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, &fakeTokenStore{token: "tok"}, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})

			items, err := client.Retrieve(context.Background(), RetrieveOptions{Tag: TagSnoozed})
			if err != nil {
				t.Fatalf("Retrieve failed: %v", err)
			}
			if len(items) != tt.want {
				t.Errorf("Retrieve returned %d items, want %d", len(items), tt.want)
			}
		})
	}
}

func TestBestURLAndTitle(t *testing.T) {
	item := Item{GivenURL: "https://g", URL: "https://u", ResolvedURL: "https://r"}
	if item.BestURL() != "https://r" {
		t.Errorf("BestURL = %q, want resolved", item.BestURL())
	}
	item = Item{GivenURL: "https://g"}
	if item.BestURL() != "https://g" {
		t.Errorf("BestURL = %q, want given", item.BestURL())
	}

	title := Item{GivenTitle: "g", Title: "t"}
	if title.BestTitle() != "t" {
		t.Errorf("BestTitle = %q, want t", title.BestTitle())
	}
}
