package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pocketsnooze/snoozerd/internal/domain"
	"github.com/pocketsnooze/snoozerd/internal/httpserver/deps"
	"github.com/pocketsnooze/snoozerd/internal/logger"
	"github.com/pocketsnooze/snoozerd/internal/pocket"
)

type fakeSnoozes struct {
	snoozedURL   string
	snoozedUntil int64
	unsnoozedID  string
	archivedID   string
	syncForced   bool
	syncErr      error
	items        []*domain.SnoozedItem
}

func (f *fakeSnoozes) Snooze(ctx context.Context, url string, until int64) error {
	f.snoozedURL, f.snoozedUntil = url, until
	return nil
}

func (f *fakeSnoozes) Unsnooze(ctx context.Context, itemID string) error {
	f.unsnoozedID = itemID
	return nil
}

func (f *fakeSnoozes) Archive(ctx context.Context, itemID string) error {
	f.archivedID = itemID
	return nil
}

func (f *fakeSnoozes) Sync(ctx context.Context, force bool) error {
	f.syncForced = force
	return f.syncErr
}

func (f *fakeSnoozes) ListSnoozed(ctx context.Context) ([]*domain.SnoozedItem, error) {
	return f.items, nil
}

type fakeAuth struct {
	authenticated bool
	authorizeURL  string
	startErr      error
	finishedCode  string
}

func (f *fakeAuth) IsAuthenticated(ctx context.Context) (bool, error) { return f.authenticated, nil }

func (f *fakeAuth) StartAuthentication(ctx context.Context) (string, error) {
	return f.authorizeURL, f.startErr
}

func (f *fakeAuth) FinishAuthentication(ctx context.Context, code string) error {
	f.finishedCode = code
	return nil
}

type fakeSettings struct {
	stored domain.Settings
}

func (f *fakeSettings) Settings(ctx context.Context, defaults domain.Settings) (domain.Settings, error) {
	return f.stored, nil
}

func (f *fakeSettings) SetSettings(ctx context.Context, settings domain.Settings) error {
	f.stored = settings
	return nil
}

func testDeps(snoozes *fakeSnoozes, auth *fakeAuth, settings *fakeSettings) deps.Deps {
	if settings == nil {
		settings = &fakeSettings{stored: domain.DefaultSettings()}
	}
	return deps.Deps{
		Logger:           logger.New("error", false),
		Snoozes:          snoozes,
		Auth:             auth,
		Settings:         settings,
		SettingsDefaults: domain.DefaultSettings(),
	}
}

func postMessage(t *testing.T, d deps.Deps, body string) (*httptest.ResponseRecorder, messageResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/message", strings.NewReader(body))
	rec := httptest.NewRecorder()
	Message(d)(rec, req)

	var resp messageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return rec, resp
}

func TestMessageSnooze(t *testing.T) {
	snoozes := &fakeSnoozes{}
	rec, resp := postMessage(t, testDeps(snoozes, &fakeAuth{}, nil),
		`{"action":"snooze","url":"https://example.com/a","untilTimestamp":2000}`)

	if rec.Code != http.StatusOK || !resp.OK {
		t.Fatalf("status %d, ok %v", rec.Code, resp.OK)
	}
	if snoozes.snoozedURL != "https://example.com/a" || snoozes.snoozedUntil != 2000 {
		t.Errorf("snooze called with (%q, %d)", snoozes.snoozedURL, snoozes.snoozedUntil)
	}
}

func TestMessageUnsnooze(t *testing.T) {
	snoozes := &fakeSnoozes{}
	rec, _ := postMessage(t, testDeps(snoozes, &fakeAuth{}, nil),
		`{"action":"unsnooze","itemId":"42"}`)

	if rec.Code != http.StatusOK || snoozes.unsnoozedID != "42" {
		t.Fatalf("status %d, unsnoozed %q", rec.Code, snoozes.unsnoozedID)
	}
}

func TestMessageForcedSync(t *testing.T) {
	snoozes := &fakeSnoozes{}
	rec, _ := postMessage(t, testDeps(snoozes, &fakeAuth{}, nil),
		`{"action":"sync","force":true}`)

	if rec.Code != http.StatusOK || !snoozes.syncForced {
		t.Fatalf("status %d, forced %v", rec.Code, snoozes.syncForced)
	}
}

func TestMessageListSnoozed(t *testing.T) {
	snoozes := &fakeSnoozes{items: []*domain.SnoozedItem{
		{ItemID: "42", URL: "https://example.com/a", Title: "A", UntilTimestamp: 2000},
	}}
	rec, resp := postMessage(t, testDeps(snoozes, &fakeAuth{}, nil),
		`{"action":"list_snoozed"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	raw, _ := json.Marshal(resp.Result)
	want := `[{"itemId":"42","url":"https://example.com/a","title":"A","untilTimestamp":2000}]`
	if string(raw) != want {
		t.Errorf("result = %s, want %s", raw, want)
	}
}

func TestMessageStartAuthentication(t *testing.T) {
	auth := &fakeAuth{authorizeURL: "https://getpocket.com/auth/authorize?request_token=abc"}
	rec, resp := postMessage(t, testDeps(&fakeSnoozes{}, auth, nil),
		`{"action":"start_authentication"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	result, ok := resp.Result.(map[string]any)
	if !ok || result["authorizeUrl"] != auth.authorizeURL {
		t.Errorf("result = %#v", resp.Result)
	}
}

func TestMessageFinishAuthentication(t *testing.T) {
	auth := &fakeAuth{}
	rec, _ := postMessage(t, testDeps(&fakeSnoozes{}, auth, nil),
		`{"action":"finish_authentication","code":"abc123"}`)

	if rec.Code != http.StatusOK || auth.finishedCode != "abc123" {
		t.Fatalf("status %d, code %q", rec.Code, auth.finishedCode)
	}
}

func TestMessageSetSettingsValidates(t *testing.T) {
	settings := &fakeSettings{stored: domain.DefaultSettings()}
	d := testDeps(&fakeSnoozes{}, &fakeAuth{}, settings)

	rec, _ := postMessage(t, d,
		`{"action":"set_settings","settings":{"morningHour":8,"morningMinute":30,"eveningHour":19,"eveningMinute":0,"firstDayOfWeek":1,"weekendDay":6}}`)
	if rec.Code != http.StatusOK || settings.stored.MorningHour != 8 {
		t.Fatalf("status %d, stored %+v", rec.Code, settings.stored)
	}

	rec, resp := postMessage(t, d, `{"action":"set_settings","settings":{"morningHour":25}}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid settings: status %d", rec.Code)
	}
	if resp.Error == nil || resp.Error.Name != "BadRequest" {
		t.Errorf("error = %+v", resp.Error)
	}
}

func TestMessageUnknownActionRejected(t *testing.T) {
	rec, resp := postMessage(t, testDeps(&fakeSnoozes{}, &fakeAuth{}, nil),
		`{"action":"explode"}`)

	if rec.Code != http.StatusBadRequest || resp.OK {
		t.Fatalf("status %d, ok %v", rec.Code, resp.OK)
	}
	if resp.Error.Name != "BadRequest" {
		t.Errorf("error name = %q", resp.Error.Name)
	}
}

func TestMessageMalformedPayloadRejected(t *testing.T) {
	rec, resp := postMessage(t, testDeps(&fakeSnoozes{}, &fakeAuth{}, nil), `{"action":`)

	if rec.Code != http.StatusBadRequest || resp.Error == nil {
		t.Fatalf("status %d, error %+v", rec.Code, resp.Error)
	}
}

func TestMessageAuthErrorShape(t *testing.T) {
	auth := &fakeAuth{startErr: &pocket.RequestError{
		Kind:    pocket.KindAuth,
		Message: "pocket request to /oauth/request failed: 401 Unauthorized",
		Status:  http.StatusUnauthorized,
		XError:  "User rejected code.",
	}}
	rec, resp := postMessage(t, testDeps(&fakeSnoozes{}, auth, nil),
		`{"action":"start_authentication"}`)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status %d", rec.Code)
	}
	if resp.Error.Name != "PocketAuthenticationError" {
		t.Errorf("error name = %q", resp.Error.Name)
	}
	if resp.Error.RemoteErrorContext != "User rejected code." {
		t.Errorf("remote error context = %q", resp.Error.RemoteErrorContext)
	}
}

func TestMessageRemoteErrorMapsToBadGateway(t *testing.T) {
	snoozes := &fakeSnoozes{syncErr: &pocket.RequestError{
		Kind:    pocket.KindRemote,
		Message: "pocket request to /get failed: 503 Service Unavailable",
		Status:  http.StatusServiceUnavailable,
		XError:  pocket.XErrorUnknown,
	}}
	rec, resp := postMessage(t, testDeps(snoozes, &fakeAuth{}, nil),
		`{"action":"sync"}`)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status %d", rec.Code)
	}
	if resp.Error.Name != "PocketRequestError" {
		t.Errorf("error name = %q", resp.Error.Name)
	}
}

func TestMessagePlainErrorDegrades(t *testing.T) {
	snoozes := &fakeSnoozes{syncErr: errors.New("redis gone")}
	rec, resp := postMessage(t, testDeps(snoozes, &fakeAuth{}, nil),
		`{"action":"sync"}`)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status %d", rec.Code)
	}
	if resp.Error.Name != "Error" || resp.Error.RemoteErrorContext != pocket.XErrorUnknown {
		t.Errorf("error = %+v", resp.Error)
	}
}
