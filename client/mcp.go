package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterMCP exposes the client as browser_* tools on srv.
func RegisterMCP(srv *mcp.Server, c *Client) {
	registerTool(srv, &mcp.Tool{
		Name:        "browser_list_pages",
		Description: "List the named browser pages of the current session.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}, func(ctx context.Context, _ *struct{}) (any, error) {
		pages, err := c.ListPages(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{"pages": pages}, nil
	})

	registerTool(srv, &mcp.Tool{
		Name:        "browser_snapshot",
		Description: "Capture the accessibility tree of a page as YAML. Interactive elements carry [ref=eN] markers usable with browser_select_ref.",
		InputSchema: inputSchema(map[string]any{
			"page": map[string]any{"type": "string", "description": "Page name"},
		}, []string{"page"}),
	}, func(ctx context.Context, r *pageReq) (any, error) {
		snap, err := c.Snapshot(ctx, r.Page)
		if err != nil {
			return nil, err
		}
		return snapshotResp{ID: snap.ID, Snapshot: snap.Text, Refs: snap.Registry.Refs(), Iframes: snap.IframeRefs}, nil
	})

	registerTool(srv, &mcp.Tool{
		Name:        "browser_select_ref",
		Description: "Act on an element from the last snapshot by ref: click, fill (with value), hover or text.",
		InputSchema: inputSchema(map[string]any{
			"page":   map[string]any{"type": "string", "description": "Page name"},
			"ref":    map[string]any{"type": "string", "description": "Ref from the last snapshot, e.g. e3"},
			"action": map[string]any{"type": "string", "enum": []string{"click", "fill", "hover", "text"}},
			"value":  map[string]any{"type": "string", "description": "Text for fill"},
		}, []string{"page", "ref", "action"}),
	}, func(ctx context.Context, r *selectRefReq) (any, error) {
		out, err := c.SelectRef(ctx, r.Page, r.Ref, r.Action, r.Value)
		if err != nil {
			return nil, err
		}
		return map[string]string{"result": out}, nil
	})

	registerTool(srv, &mcp.Tool{
		Name:        "browser_goto",
		Description: "Navigate a page to a URL, creating the page if needed.",
		InputSchema: inputSchema(map[string]any{
			"page": map[string]any{"type": "string", "description": "Page name"},
			"url":  map[string]any{"type": "string", "description": "Absolute URL"},
		}, []string{"page", "url"}),
	}, func(ctx context.Context, r *gotoReq) (any, error) {
		if r.URL == "" {
			return nil, errors.New("url is required")
		}
		title, url, err := c.Goto(ctx, r.Page, r.URL)
		if err != nil {
			return nil, err
		}
		return map[string]string{"title": title, "url": url}, nil
	})
}

type pageReq struct {
	Page string `json:"page"`
}

type selectRefReq struct {
	Page   string `json:"page"`
	Ref    string `json:"ref"`
	Action string `json:"action"`
	Value  string `json:"value,omitempty"`
}

type gotoReq struct {
	Page string `json:"page"`
	URL  string `json:"url"`
}

type snapshotResp struct {
	ID       string   `json:"id"`
	Snapshot string   `json:"snapshot"`
	Refs     []string `json:"refs"`
	Iframes  []string `json:"iframes,omitempty"`
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

// registerTool decodes the arguments into Req, calls fn and returns its
// result as JSON text. Failures become tool errors, not protocol errors.
func registerTool[Req any](srv *mcp.Server, tool *mcp.Tool, fn func(context.Context, *Req) (any, error)) {
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var in Req
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &in); err != nil {
				return toolError(fmt.Errorf("invalid arguments: %w", err)), nil
			}
		}
		out, err := fn(ctx, &in)
		if err != nil {
			return toolError(err), nil
		}
		data, err := json.Marshal(out)
		if err != nil {
			return toolError(fmt.Errorf("marshal: %w", err)), nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil
	})
}

func toolError(err error) *mcp.CallToolResult {
	var res mcp.CallToolResult
	res.SetError(err)
	return &res
}
