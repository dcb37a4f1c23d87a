package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite" // register "sqlite" driver

	"github.com/hazyhaar/domstage/dbopen"
	"github.com/hazyhaar/domstage/event"
	"github.com/hazyhaar/domstage/internal/cues"
	"github.com/hazyhaar/domstage/internal/httpapi"
	"github.com/hazyhaar/domstage/internal/journal"
	"github.com/hazyhaar/domstage/internal/outline"
	"github.com/hazyhaar/domstage/internal/stage"
)

type fakeStage struct {
	mu      sync.Mutex
	phrases []string
	scrolls int
}

func (f *fakeStage) Status() stage.Status {
	return stage.Status{SessionID: "test", PageURL: "mem://portfolio", Mode: "typing"}
}

func (f *fakeStage) Phrases() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.phrases...)
}

func (f *fakeStage) SetPhrases(phrases []string) error {
	if len(phrases) == 0 {
		return errors.New("phrase list must not be empty")
	}
	f.mu.Lock()
	f.phrases = phrases
	f.mu.Unlock()
	return nil
}

func (f *fakeStage) ScrollTop() error {
	f.mu.Lock()
	f.scrolls++
	f.mu.Unlock()
	return nil
}

func (f *fakeStage) scrollCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scrolls
}

func newServer(t *testing.T, cfg httpapi.Config) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(httpapi.New(cfg).Router())
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, user, pass string, body any) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatal(err)
	}
	if user != "" {
		req.SetBasicAuth(user, pass)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out bytes.Buffer
	out.ReadFrom(resp.Body)
	return resp, out.Bytes()
}

func TestHealthz_NoAuthRequired(t *testing.T) {
	srv := newServer(t, httpapi.Config{
		Stage:        &fakeStage{},
		Username:     "admin",
		PasswordHash: hash(t, "secret"),
	})

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/healthz", "", "", nil)
	if resp.StatusCode != 200 {
		t.Fatalf("status: got %d, want 200", resp.StatusCode)
	}
	if !bytes.Contains(body, []byte(`"ok"`)) {
		t.Errorf("body: got %s", body)
	}
}

func hash(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	return string(h)
}

func TestAPI_RequiresAuth(t *testing.T) {
	srv := newServer(t, httpapi.Config{
		Stage:        &fakeStage{},
		Username:     "admin",
		PasswordHash: hash(t, "secret"),
	})

	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/api/status", "", "", nil)
	if resp.StatusCode != 401 {
		t.Errorf("no creds: got %d, want 401", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/api/status", "admin", "wrong", nil)
	if resp.StatusCode != 401 {
		t.Errorf("wrong password: got %d, want 401", resp.StatusCode)
	}

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/status", "admin", "secret", nil)
	if resp.StatusCode != 200 {
		t.Fatalf("good creds: got %d, want 200", resp.StatusCode)
	}
	if !bytes.Contains(body, []byte(`"test"`)) {
		t.Errorf("status body: got %s", body)
	}
}

func TestPutPhrases_DirectToStage(t *testing.T) {
	fs := &fakeStage{phrases: []string{"old"}}
	srv := newServer(t, httpapi.Config{Stage: fs})

	resp, body := doJSON(t, http.MethodPut, srv.URL+"/api/phrases", "", "",
		map[string]any{"phrases": []string{"one", "two"}})
	if resp.StatusCode != 200 {
		t.Fatalf("status: got %d, body %s", resp.StatusCode, body)
	}
	if got := fs.Phrases(); len(got) != 2 || got[0] != "one" {
		t.Errorf("stage phrases: got %v", got)
	}

	resp, _ = doJSON(t, http.MethodPut, srv.URL+"/api/phrases", "", "",
		map[string]any{"phrases": []string{}})
	if resp.StatusCode != 400 {
		t.Errorf("empty list: got %d, want 400", resp.StatusCode)
	}
}

func TestPutPhrases_ViaCueStore(t *testing.T) {
	db := dbopen.OpenMemory(t)
	store := cues.New(db, nil)
	fs := &fakeStage{phrases: []string{"old"}}
	srv := newServer(t, httpapi.Config{Stage: fs, Cues: store})

	resp, _ := doJSON(t, http.MethodPut, srv.URL+"/api/phrases", "", "",
		map[string]any{"phrases": []string{"from", "api"}})
	if resp.StatusCode != 202 {
		t.Fatalf("status: got %d, want 202", resp.StatusCode)
	}

	sheet, err := store.Phrases(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(sheet) != 2 || sheet[0] != "from" {
		t.Errorf("cue sheet: got %v", sheet)
	}
	// The watcher owns the swap; the API must not touch the stage.
	if got := fs.Phrases(); len(got) != 1 || got[0] != "old" {
		t.Errorf("stage phrases: got %v, want [old]", got)
	}
}

func TestGetPhrases_PrefersCueStore(t *testing.T) {
	db := dbopen.OpenMemory(t)
	store := cues.New(db, nil)
	if err := store.Replace(context.Background(), []string{"sheet phrase"}); err != nil {
		t.Fatal(err)
	}
	srv := newServer(t, httpapi.Config{Stage: &fakeStage{phrases: []string{"stage phrase"}}, Cues: store})

	_, body := doJSON(t, http.MethodGet, srv.URL+"/api/phrases", "", "", nil)
	if !bytes.Contains(body, []byte("sheet phrase")) || !bytes.Contains(body, []byte(`"cues"`)) {
		t.Errorf("body: got %s", body)
	}
}

func TestScrollTop(t *testing.T) {
	fs := &fakeStage{}
	srv := newServer(t, httpapi.Config{Stage: fs})

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/scroll-top", "", "", nil)
	if resp.StatusCode != 200 {
		t.Fatalf("status: got %d, want 200", resp.StatusCode)
	}
	if fs.scrollCount() != 1 {
		t.Errorf("scrolls: got %d, want 1", fs.scrollCount())
	}
}

func TestSessions_WithJournal(t *testing.T) {
	db := dbopen.OpenMemory(t)
	j := journal.New(db, nil)
	j.Send(context.Background(), event.Event{
		ID: "evt_1", SessionID: "s1", PageURL: "https://example.com/",
		Seq: 1, Kind: event.KindSessionStarted, Timestamp: time.Now().UnixMilli(),
	})
	srv := newServer(t, httpapi.Config{Stage: &fakeStage{}, Journal: j})

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/sessions", "", "", nil)
	if resp.StatusCode != 200 {
		t.Fatalf("sessions: got %d", resp.StatusCode)
	}
	var sessions []journal.SessionSummary
	if err := json.Unmarshal(body, &sessions); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(sessions) != 1 || sessions[0].SessionID != "s1" {
		t.Errorf("sessions: got %+v", sessions)
	}

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/sessions/s1/events?limit=10", "", "", nil)
	if resp.StatusCode != 200 {
		t.Fatalf("events: got %d", resp.StatusCode)
	}
	var events []event.Event
	if err := json.Unmarshal(body, &events); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(events) != 1 || events[0].Kind != event.KindSessionStarted {
		t.Errorf("events: got %+v", events)
	}
}

func TestSessions_NoJournal(t *testing.T) {
	srv := newServer(t, httpapi.Config{Stage: &fakeStage{}})
	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/api/sessions", "", "", nil)
	if resp.StatusCode != 404 {
		t.Errorf("got %d, want 404", resp.StatusCode)
	}
}

func TestOutline_Endpoint(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><title>T</title></head><body><section id="a"><h2>A</h2></section></body></html>`))
	}))
	defer page.Close()

	f := outline.NewFetcher(outline.FetchConfig{Validate: func(string) error { return nil }})
	srv := newServer(t, httpapi.Config{Stage: &fakeStage{}, Outline: f})

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/outline?url="+page.URL, "", "", nil)
	if resp.StatusCode != 200 {
		t.Fatalf("status: got %d, body %s", resp.StatusCode, body)
	}
	var o outline.Outline
	if err := json.Unmarshal(body, &o); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if o.Title != "T" || len(o.Sections) != 1 {
		t.Errorf("outline: got %+v", o)
	}

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/api/outline", "", "", nil)
	if resp.StatusCode != 400 {
		t.Errorf("missing url: got %d, want 400", resp.StatusCode)
	}
}
