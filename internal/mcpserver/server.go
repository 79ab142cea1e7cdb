// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the day counter and the journal for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/daybook/internal/apperr"
	"github.com/starford/daybook/internal/journalservice"
)

const (
	formatURI        = "daybook://journal-format"
	defaultListLimit = 20
	searchLimit      = 20
)

// Server wraps the MCP server with daybook tools.
type Server struct {
	mcp *server.MCPServer
	svc *journalservice.Service
}

// New creates a new MCP server with all daybook tools registered.
func New(svc *journalservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"daybook",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("days_since",
		mcp.WithDescription("Count whole calendar days from a date to today. "+
			"Past dates give a positive number, future dates a negative one. "+
			"Without a date the configured start date is used."),
		mcp.WithString("date", mcp.Description("Target date, YYYY-MM-DD (optional)")),
	), s.daysSince)

	s.mcp.AddTool(mcp.NewTool("elapsed",
		mcp.WithDescription("Days, hours, minutes and seconds elapsed since the start date."),
	), s.elapsed)

	s.mcp.AddTool(mcp.NewTool("append_entry",
		mcp.WithDescription("Append a timestamped entry to the journal. "+
			"Entries cannot be edited or deleted afterwards. Use #tags inline."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Entry text; may span several lines")),
	), s.appendEntry)

	s.mcp.AddTool(mcp.NewTool("list_entries",
		mcp.WithDescription("List the most recent journal entries, oldest first."),
		mcp.WithNumber("limit", mcp.Description("Number of entries to return (default 20, 0 for all)")),
	), s.listEntries)

	s.mcp.AddTool(mcp.NewTool("search_entries",
		mcp.WithDescription("Search journal entries by text or tag, newest first."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchEntries)

	s.mcp.AddTool(mcp.NewTool("get_journal_format",
		mcp.WithDescription("Returns the on-disk journal format and the tag conventions."),
	), s.getJournalFormat)

	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Journal Format",
			mcp.WithResourceDescription("On-disk format of the daybook journal file."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readJournalFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func toolError(err error) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrInvalidInput) {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultError("internal error: " + err.Error())
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcpserver: encode result: %w", err)
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) daysSince(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	days, target, err := s.svc.DaysSince(ctx, req.GetString("date", ""))
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(map[string]any{
		"date": target.Format(time.DateOnly),
		"days": days,
	})
}

func (s *Server) elapsed(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap, err := s.svc.Snapshot(ctx)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(map[string]any{
		"start_date": snap.StartDate.Format(time.RFC3339),
		"elapsed":    snap.Elapsed,
		"display":    snap.Elapsed.String(),
	})
}

func (s *Server) appendEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	e, err := s.svc.Append(ctx, text)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(e)
}

func (s *Server) listEntries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", defaultListLimit)
	if limit < 0 {
		return mcp.NewToolResultError("limit must not be negative"), nil
	}
	entries, err := s.svc.Latest(ctx, limit)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(entries)
}

func (s *Server) searchEntries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, searchLimit)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(results)
}

func (s *Server) getJournalFormat(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(JournalFormat), nil
}

func (s *Server) readJournalFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     JournalFormat,
		},
	}, nil
}
