package domstage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/domstage/internal/kit"
)

// RegisterMCP registers domstage tools on an MCP server, so an agent
// can direct the performance: read status, swap phrases, trigger the
// back-to-top scroll, browse the journal, outline a candidate page.
func (p *Presenter) RegisterMCP(srv *mcp.Server) {
	p.registerStatusTool(srv)
	p.registerPhrasesSetTool(srv)
	p.registerScrollTopTool(srv)
	p.registerSessionsTool(srv)
	p.registerOutlineTool(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// --- status ---

func (p *Presenter) registerStatusTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "domstage_status",
		Description: "Snapshot of the running performance: current phrase, typed text, navbar state, active section, scroll offset.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(_ context.Context, _ any) (any, error) {
		return p.Status(), nil
	}

	decode := func(_ *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: nil}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- phrases set ---

type phrasesSetReq struct {
	Phrases []string `json:"phrases"`
}

func (p *Presenter) registerPhrasesSetTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "domstage_phrases_set",
		Description: "Replace the phrase list the typewriter rotates through. Goes through the cue store when one is configured.",
		InputSchema: inputSchema(map[string]any{
			"phrases": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "New phrase list, in rotation order",
			},
		}, []string{"phrases"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*phrasesSetReq)
		status, err := p.UpdatePhrases(ctx, r.Phrases)
		if err != nil {
			return nil, err
		}
		return map[string]any{"status": status, "count": len(r.Phrases)}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r phrasesSetReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- scroll top ---

func (p *Presenter) registerScrollTopTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "domstage_scroll_top",
		Description: "Smooth-scroll the performed page back to the top.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(_ context.Context, _ any) (any, error) {
		if err := p.ScrollTop(); err != nil {
			return nil, err
		}
		return map[string]any{"status": "scrolled"}, nil
	}

	decode := func(_ *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: nil}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- sessions ---

func (p *Presenter) registerSessionsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "domstage_sessions",
		Description: "List recorded performance sessions from the event journal.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(ctx context.Context, _ any) (any, error) {
		if p.jrnl == nil {
			return nil, fmt.Errorf("journal not configured")
		}
		sessions, err := p.jrnl.Sessions(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{"sessions": sessions}, nil
	}

	decode := func(_ *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: nil}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- outline ---

type outlineReq struct {
	URL string `json:"url"`
}

func (p *Presenter) registerOutlineTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "domstage_outline",
		Description: "Fetch a page and report its section structure, nav targets and stage hooks, plus a markdown rendering.",
		InputSchema: inputSchema(map[string]any{
			"url": map[string]any{"type": "string", "description": "Page URL to outline"},
		}, []string{"url"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*outlineReq)
		return p.Outline(ctx, r.URL)
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r outlineReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}
