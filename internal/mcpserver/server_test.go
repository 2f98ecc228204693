package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/promptcraft/internal/testutil"
	"github.com/starford/promptcraft/internal/workspace"
)

func testServer(t *testing.T, pages map[string]string) (*Server, string) {
	t.Helper()
	baseDir := t.TempDir()
	ws := workspace.New(workspace.Options{
		Fetcher: testutil.NewStubFetcher(pages),
		History: testutil.TestHistory(t),
	})
	t.Cleanup(ws.Wait)
	return New(ws, baseDir), baseDir
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so the handlers are
	// invoked directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_attachments":
		result, err = srv.listAttachments(ctx, req)
	case "add_attachment":
		result, err = srv.addAttachment(ctx, req)
	case "add_url":
		result, err = srv.addURL(ctx, req)
	case "remove_attachment":
		result, err = srv.removeAttachment(ctx, req)
	case "assemble_prompt":
		result, err = srv.assemblePrompt(ctx, req)
	case "get_markup_contract":
		result, err = srv.getMarkupContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

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

func listItems(t *testing.T, srv *Server) []attachmentItem {
	t.Helper()
	var items []attachmentItem
	if err := json.Unmarshal([]byte(resultText(callTool(t, srv, "list_attachments", map[string]any{}))), &items); err != nil {
		t.Fatal(err)
	}
	return items
}

func TestAddListRemoveAttachment(t *testing.T) {
	srv, _ := testServer(t, nil)

	r := callTool(t, srv, "add_attachment", map[string]any{"file_name": "ctx.md", "content": "CONTEXT"})
	if r.IsError {
		t.Fatalf("add: %s", resultText(r))
	}
	items := listItems(t, srv)
	if len(items) != 1 || items[0].FileName != "ctx.md" || items[0].Size != 7 {
		t.Fatalf("items = %+v", items)
	}

	r = callTool(t, srv, "remove_attachment", map[string]any{"id": items[0].ID})
	if resultText(r) != "removed: ctx.md" {
		t.Errorf("remove = %q", resultText(r))
	}
	if r = callTool(t, srv, "remove_attachment", map[string]any{"id": items[0].ID}); !r.IsError {
		t.Error("second remove should fail")
	}
}

func TestAddAttachmentDataURI(t *testing.T) {
	srv, _ := testServer(t, nil)
	uri := "data:text/markdown;base64," + base64.StdEncoding.EncodeToString([]byte("# From URI"))
	r := callTool(t, srv, "add_attachment", map[string]any{"data_uri": uri})
	if r.IsError {
		t.Fatalf("add: %s", resultText(r))
	}
	items := listItems(t, srv)
	if len(items) != 1 || !strings.HasSuffix(items[0].FileName, ".md") {
		t.Errorf("items = %+v", items)
	}
}

func TestAddAttachmentRejects(t *testing.T) {
	srv, _ := testServer(t, nil)
	png := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("\x89PNG\r\n\x1a\n"))
	cases := []map[string]any{
		{},
		{"data_uri": png},
		{"data_uri": "data:text/plain,notbase64"},
		{"file_name": "photo.png", "content": "x"},
		{"file_name": "bin.txt", "content": "\x00\x01\x02\x03"},
	}
	for _, args := range cases {
		if r := callTool(t, srv, "add_attachment", args); !r.IsError {
			t.Errorf("%v should be rejected", args)
		}
	}
}

func TestAddURL(t *testing.T) {
	srv, _ := testServer(t, map[string]string{"https://example.com/post": "# Post"})
	r := callTool(t, srv, "add_url", map[string]any{"url": "https://example.com/post"})
	var item attachmentItem
	_ = json.Unmarshal([]byte(resultText(r)), &item)
	if item.FileName != "example.com-post.md" || item.Failed {
		t.Errorf("item = %+v", item)
	}

	r = callTool(t, srv, "add_url", map[string]any{"url": "https://down.example.com/x"})
	_ = json.Unmarshal([]byte(resultText(r)), &item)
	if !item.Failed {
		t.Error("unreachable URL should be marked failed")
	}
}

func TestAssemblePrompt(t *testing.T) {
	srv, baseDir := testServer(t, nil)
	_ = os.WriteFile(filepath.Join(baseDir, "disk.txt"), []byte("DISK"), 0o644)
	callTool(t, srv, "add_attachment", map[string]any{"file_name": "ctx.md", "content": "CONTEXT"})

	markup := "---\nattachments: [disk.txt]\n---\nUse [[ctx.md]] and [[disk.txt]][[gone.md]].\nDone."
	r := callTool(t, srv, "assemble_prompt", map[string]any{"markup": markup})
	if r.IsError {
		t.Fatalf("assemble: %s", resultText(r))
	}
	if got := resultText(r); got != "Use CONTEXT and DISK.\nDone." {
		t.Errorf("assembled = %q", got)
	}
}

func TestAssemblePromptReportsFailedFetch(t *testing.T) {
	srv, _ := testServer(t, nil)
	r := callTool(t, srv, "assemble_prompt", map[string]any{"markup": "See [[https://down.example.com/a]]"})
	if len(r.Content) != 2 {
		t.Fatalf("content = %+v", r.Content)
	}
	if !strings.Contains(resultText(r), "# Content from down.example.com") {
		t.Errorf("placeholder missing: %q", resultText(r))
	}
}

func TestUnknownSession(t *testing.T) {
	srv, _ := testServer(t, nil)
	r := callTool(t, srv, "list_attachments", map[string]any{"session": "nope"})
	if !r.IsError {
		t.Error("expected error for unknown session")
	}
}

func TestMarkupContract(t *testing.T) {
	srv, _ := testServer(t, nil)
	r := callTool(t, srv, "get_markup_contract", nil)
	if resultText(r) != MarkupContract {
		t.Error("contract tool should return the contract")
	}
	res, err := srv.readMarkupResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil || len(res) != 1 {
		t.Fatalf("resource = %v, %v", res, err)
	}
	if res[0].(mcp.TextResourceContents).URI != MarkupURI {
		t.Errorf("resource = %+v", res[0])
	}
}
