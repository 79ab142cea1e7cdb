package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/daybook/internal/journal"
	"github.com/starford/daybook/internal/journalservice"
	"github.com/starford/daybook/internal/testutil"
)

// testEnv sets up a temp data dir, SQLite DB, service, and router for testing.
// An empty authToken means disabled mode.
func testEnv(t *testing.T, authToken string) (*journalservice.Service, http.Handler) {
	t.Helper()
	svc, router, _ := testEnvFull(t, authToken != "", authToken, nil)
	return svc, router
}

func testEnvFull(t *testing.T, authEnabled bool, token string, sseHandler http.Handler) (*journalservice.Service, http.Handler, string) {
	t.Helper()
	dir, fs := testutil.TestDataDir(t)
	j, c := testutil.TestJournal(t, fs)
	svc := journalservice.NewService(j, c, fs, testutil.TestDB(t))
	return svc, NewRouter(svc, authEnabled, token, sseHandler), dir
}

func do(t *testing.T, router http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, rd)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateAndListEntries(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/entries", map[string]string{"text": "first #run"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var created journal.Entry
	_ = json.Unmarshal(w.Body.Bytes(), &created)
	if created.Text != "first #run" || len(created.Tags) != 1 || created.Tags[0] != "run" {
		t.Errorf("created = %+v", created)
	}

	do(t, router, http.MethodPost, "/entries", map[string]string{"text": "second"})

	w = do(t, router, http.MethodGet, "/entries", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var resp EntriesResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Entries) != 2 || resp.Entries[0].Text != "first #run" || resp.Entries[1].Text != "second" {
		t.Errorf("entries = %+v", resp.Entries)
	}

	w = do(t, router, http.MethodGet, "/entries?limit=1", nil)
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Entries) != 1 || resp.Entries[0].Text != "second" {
		t.Errorf("limited entries = %+v", resp.Entries)
	}
}

func TestListEntries_EmptyJournal(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodGet, "/entries", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"entries":[]`) {
		t.Errorf("body = %s, want empty array", w.Body.String())
	}
}

func TestCreateEntry_Blank(t *testing.T) {
	_, router := testEnv(t, "")
	for _, text := range []string{"", "   \n\t"} {
		w := do(t, router, http.MethodPost, "/entries", map[string]string{"text": text})
		if w.Code != http.StatusBadRequest {
			t.Errorf("text %q: status = %d, want 400", text, w.Code)
		}
	}
}

func TestCreateEntry_InvalidJSON(t *testing.T) {
	_, router := testEnv(t, "")
	req := httptest.NewRequest(http.MethodPost, "/entries", strings.NewReader("{"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestCreateEntry_IOErrorIs500(t *testing.T) {
	_, router, dir := testEnvFull(t, false, "", nil)
	// A directory where the journal file should be makes every append fail.
	if err := os.Mkdir(filepath.Join(dir, journal.DefaultFile), 0o755); err != nil {
		t.Fatal(err)
	}
	w := do(t, router, http.MethodPost, "/entries", map[string]string{"text": "x"})
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if strings.Contains(w.Body.String(), dir) {
		t.Errorf("internal path leaked: %s", w.Body.String())
	}
}

func TestDays(t *testing.T) {
	_, router := testEnv(t, "")

	tests := []struct {
		query string
		code  int
		days  int
	}{
		{"/days", http.StatusOK, 440},
		{"/days?date=2025-08-04", http.StatusOK, 440},
		{"/days?date=2026-10-18", http.StatusOK, 0},
		{"/days?date=2027-10-18", http.StatusOK, -365},
		{"/days?date=2025-02-30", http.StatusBadRequest, 0},
		{"/days?date=banana", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		w := do(t, router, http.MethodGet, tt.query, nil)
		if w.Code != tt.code {
			t.Errorf("%s: status = %d, want %d", tt.query, w.Code, tt.code)
			continue
		}
		if tt.code != http.StatusOK {
			continue
		}
		var resp DaysResponse
		_ = json.Unmarshal(w.Body.Bytes(), &resp)
		if resp.Days != tt.days {
			t.Errorf("%s: days = %d, want %d", tt.query, resp.Days, tt.days)
		}
	}
}

func TestStartDate_GetAndPut(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/start-date", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var resp StartDateResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if !resp.StartDate.Equal(testutil.DefaultStart) {
		t.Errorf("start = %v", resp.StartDate)
	}

	w = do(t, router, http.MethodPut, "/start-date", map[string]string{"start_date": "2026-10-01"})
	if w.Code != http.StatusOK {
		t.Fatalf("put status = %d, body = %s", w.Code, w.Body.String())
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Days != 17 {
		t.Errorf("days = %d, want 17", resp.Days)
	}

	w = do(t, router, http.MethodGet, "/days", nil)
	var days DaysResponse
	_ = json.Unmarshal(w.Body.Bytes(), &days)
	if days.Date != "2026-10-01" || days.Days != 17 {
		t.Errorf("days after put = %+v", days)
	}
}

func TestStartDate_PutInvalid(t *testing.T) {
	_, router := testEnv(t, "")
	for _, v := range []string{"", "not-a-date"} {
		w := do(t, router, http.MethodPut, "/start-date", map[string]string{"start_date": v})
		if w.Code != http.StatusBadRequest {
			t.Errorf("%q: status = %d, want 400", v, w.Code)
		}
	}
}

func TestElapsed(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodGet, "/elapsed", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp ElapsedResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	// 2025-08-04T00:06 -> 2026-10-18T09:30
	if resp.Display != "440:9:24:0" {
		t.Errorf("display = %q", resp.Display)
	}
}

func TestSearchAndTags(t *testing.T) {
	_, router := testEnv(t, "")
	do(t, router, http.MethodPost, "/entries", map[string]string{"text": "morning #run"})
	do(t, router, http.MethodPost, "/entries", map[string]string{"text": "evening #run #stretch"})

	w := do(t, router, http.MethodGet, "/search?q=evening", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search status = %d", w.Code)
	}
	var sr SearchResponse
	_ = json.Unmarshal(w.Body.Bytes(), &sr)
	if len(sr.Results) != 1 || sr.Results[0].Seq != 2 {
		t.Errorf("results = %+v", sr.Results)
	}

	w = do(t, router, http.MethodGet, "/tags", nil)
	var tr TagsResponse
	_ = json.Unmarshal(w.Body.Bytes(), &tr)
	if len(tr.Tags) != 2 || tr.Tags[0].Tag != "run" || tr.Tags[0].Count != 2 {
		t.Errorf("tags = %+v", tr.Tags)
	}
}

func TestStats(t *testing.T) {
	_, router := testEnv(t, "")
	do(t, router, http.MethodPost, "/entries", map[string]string{"text": "x"})
	w := do(t, router, http.MethodGet, "/stats", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var st journalservice.Stats
	_ = json.Unmarshal(w.Body.Bytes(), &st)
	if st.Entries != 1 || st.Bytes == 0 {
		t.Errorf("stats = %+v", st)
	}
}

func TestSearchMissingQuery(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodGet, "/search", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("search no query = %d, want 400", w.Code)
	}
}

func TestCoach_Placeholder(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodGet, "/coach", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp CoachResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if !strings.HasPrefix(resp.Suggestion, "[Placeholder suggestion]") {
		t.Errorf("suggestion = %q", resp.Suggestion)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	body, _ := json.Marshal(map[string]string{"text": "authed"})
	req := httptest.NewRequest(http.MethodPost, "/entries", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Errorf("authed create = %d, want 201", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router := testEnv(t, "secret123")
	w := do(t, router, http.MethodGet, "/entries", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/entries", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodGet, "/entries", nil)
	if w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

// SSE endpoint auth tests.

func sseStub() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	})
}

func TestSSEEvents_AuthProtected(t *testing.T) {
	_, router, _ := testEnvFull(t, true, "secret", sseStub())

	w := do(t, router, http.MethodGet, "/events", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	_, router, _ := testEnvFull(t, true, "tok", sseStub())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with valid token should not 401")
	}
}

func TestSSEEvents_NotMountedWithoutHandler(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodGet, "/events", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestAuthMiddleware_Cookie(t *testing.T) {
	_, router := testEnv(t, "secret123")

	for _, tc := range []struct {
		value string
		want  int
	}{
		{"secret123", http.StatusOK},
		{"wrong", http.StatusUnauthorized},
	} {
		req := httptest.NewRequest(http.MethodGet, "/entries", nil)
		req.AddCookie(&http.Cookie{Name: TokenCookie, Value: tc.value})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != tc.want {
			t.Errorf("cookie %q = %d, want %d", tc.value, w.Code, tc.want)
		}
	}
}

func TestAuthorized_EmptyTokenNeverMatches(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer ")
	if Authorized(req, "") {
		t.Error("empty token must not authorize")
	}
}

func TestSSEEvents_CookieToken(t *testing.T) {
	_, router, _ := testEnvFull(t, true, "tok", sseStub())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.AddCookie(&http.Cookie{Name: TokenCookie, Value: "tok"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("SSE with token cookie = %d, want 200", w.Code)
	}
}
