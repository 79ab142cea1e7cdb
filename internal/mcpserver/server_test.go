package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/daybook/internal/journal"
	"github.com/starford/daybook/internal/journalservice"
	"github.com/starford/daybook/internal/testutil"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	_, fs := testutil.TestDataDir(t)
	j, c := testutil.TestJournal(t, fs)
	return New(journalservice.NewService(j, c, fs, testutil.TestDB(t)), "test")
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	handlers := map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"days_since":         srv.daysSince,
		"elapsed":            srv.elapsed,
		"append_entry":       srv.appendEntry,
		"list_entries":       srv.listEntries,
		"search_entries":     srv.searchEntries,
		"get_journal_format": srv.getJournalFormat,
	}
	h, ok := handlers[name]
	if !ok {
		t.Fatalf("unknown tool: %s", name)
	}
	result, err := h(ctx, req)
	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestDaysSince(t *testing.T) {
	srv := testServer(t)

	var out struct {
		Date string `json:"date"`
		Days int    `json:"days"`
	}
	r := callTool(t, srv, "days_since", map[string]any{"date": "2026-10-08"})
	if r.IsError {
		t.Fatalf("error: %s", resultText(r))
	}
	_ = json.Unmarshal([]byte(resultText(r)), &out)
	if out.Days != 10 || out.Date != "2026-10-08" {
		t.Errorf("out = %+v", out)
	}

	r = callTool(t, srv, "days_since", map[string]any{})
	_ = json.Unmarshal([]byte(resultText(r)), &out)
	if out.Days != 440 || out.Date != "2025-08-04" {
		t.Errorf("default out = %+v", out)
	}
}

func TestDaysSinceMalformed(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "days_since", map[string]any{"date": "08/04/2025"})
	if !r.IsError {
		t.Error("expected error for malformed date")
	}
}

func TestElapsed(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "elapsed", nil)
	if !strings.Contains(resultText(r), `"display": "440:9:24:0"`) {
		t.Errorf("elapsed = %s", resultText(r))
	}
}

func TestAppendAndList(t *testing.T) {
	srv := testServer(t)
	for _, text := range []string{"one", "two\nlines", "three #tag"} {
		r := callTool(t, srv, "append_entry", map[string]any{"text": text})
		if r.IsError {
			t.Fatalf("append %q: %s", text, resultText(r))
		}
	}

	r := callTool(t, srv, "list_entries", map[string]any{"limit": 2})
	var entries []journal.Entry
	if err := json.Unmarshal([]byte(resultText(r)), &entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 2 || entries[0].Text != "two\nlines" || entries[1].Text != "three #tag" {
		t.Errorf("entries = %+v", entries)
	}

	r = callTool(t, srv, "list_entries", map[string]any{"limit": 0})
	_ = json.Unmarshal([]byte(resultText(r)), &entries)
	if len(entries) != 3 {
		t.Errorf("len = %d, want 3", len(entries))
	}
}

func TestAppendBlank(t *testing.T) {
	srv := testServer(t)
	if r := callTool(t, srv, "append_entry", map[string]any{"text": " "}); !r.IsError {
		t.Error("expected error for blank text")
	}
	if r := callTool(t, srv, "append_entry", map[string]any{}); !r.IsError {
		t.Error("expected error for missing text")
	}
}

func TestSearchEntries(t *testing.T) {
	srv := testServer(t)
	callTool(t, srv, "append_entry", map[string]any{"text": "lunch with Ana"})
	callTool(t, srv, "append_entry", map[string]any{"text": "gym #health"})

	r := callTool(t, srv, "search_entries", map[string]any{"query": "health"})
	if r.IsError {
		t.Fatalf("search error: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), `"seq": 2`) || strings.Contains(resultText(r), `"seq": 1`) {
		t.Errorf("search = %s", resultText(r))
	}
}

func TestJournalFormat(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "get_journal_format", nil)
	if !strings.HasPrefix(resultText(r), "# daybook Journal Format") {
		t.Errorf("format = %q", resultText(r))
	}

	contents, err := srv.readJournalFormatResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil || len(contents) != 1 {
		t.Fatalf("resource = %v, %v", contents, err)
	}
	if tc, ok := contents[0].(mcp.TextResourceContents); !ok || tc.URI != formatURI {
		t.Errorf("resource contents = %+v", contents[0])
	}
}
