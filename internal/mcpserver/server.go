// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes PromptCraft tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/promptcraft/internal/models"
	"github.com/starford/promptcraft/internal/workspace"
)

// MarkupURI addresses the markup contract resource.
const MarkupURI = "promptcraft://markup"

// Server wraps the MCP server with PromptCraft tools.
type Server struct {
	mcp     *server.MCPServer
	ws      *workspace.Workspace
	baseDir string
}

// New creates a new MCP server with all PromptCraft tools registered.
// baseDir resolves relative attachment paths in assembled markup.
func New(ws *workspace.Workspace, baseDir string) *Server {
	s := &Server{ws: ws, baseDir: baseDir}

	s.mcp = server.NewMCPServer(
		"PromptCraft",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	sessionArg := mcp.WithString("session", mcp.Description("Session ID (default: "+workspace.DefaultSessionID+")"))

	s.mcp.AddTool(mcp.NewTool("list_attachments",
		mcp.WithDescription("List the session's attachments in the order they were added."),
		sessionArg,
	), s.listAttachments)

	s.mcp.AddTool(mcp.NewTool("add_attachment",
		mcp.WithDescription("Add a text attachment. Pass file_name with content, or a base64 "+
			"data: URI of a .txt, .md or .json file."),
		sessionArg,
		mcp.WithString("file_name", mcp.Description("Attachment name referenced as [[file_name]] (.txt, .md or .json)")),
		mcp.WithString("content", mcp.Description("Raw text content")),
		mcp.WithString("data_uri", mcp.Description("data:text/markdown;base64,... alternative to content")),
	), s.addAttachment)

	s.mcp.AddTool(mcp.NewTool("add_url",
		mcp.WithDescription("Fetch a web page as Markdown and add it as an attachment. "+
			"A failed fetch adds a placeholder that explains the failure."),
		sessionArg,
		mcp.WithString("url", mcp.Required(), mcp.Description("http or https URL")),
	), s.addURL)

	s.mcp.AddTool(mcp.NewTool("remove_attachment",
		mcp.WithDescription("Remove an attachment by ID. References to it produce no output."),
		sessionArg,
		mcp.WithString("id", mcp.Required(), mcp.Description("Attachment ID from list_attachments")),
	), s.removeAttachment)

	s.mcp.AddTool(mcp.NewTool("assemble_prompt",
		mcp.WithDescription("Resolve prompt markup against the session's attachments and return "+
			"the final prompt text. Read the contract first via get_markup_contract or the "+
			MarkupURI+" resource."),
		sessionArg,
		mcp.WithString("markup", mcp.Required(), mcp.Description("Prompt markup with [[references]]")),
	), s.assemblePrompt)

	s.mcp.AddTool(mcp.NewTool("get_markup_contract",
		mcp.WithDescription("Returns the PromptCraft prompt markup contract."),
	), s.getMarkupContract)

	// Resource: markup contract.
	s.mcp.AddResource(
		mcp.NewResource(MarkupURI, "Prompt Markup Contract",
			mcp.WithResourceDescription("How prompts reference attachments and how they are assembled."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readMarkupResource,
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

// optString returns an optional string argument.
func optString(req mcp.CallToolRequest, key string) string {
	v, _ := req.GetArguments()[key].(string)
	return v
}

func sessionID(req mcp.CallToolRequest) string {
	if id := optString(req, "session"); id != "" {
		return id
	}
	return workspace.DefaultSessionID
}

type attachmentItem struct {
	ID       string `json:"id"`
	FileName string `json:"file_name"`
	Source   string `json:"source"`
	URL      string `json:"url,omitempty"`
	Failed   bool   `json:"failed,omitempty"`
	Size     int    `json:"size"`
}

func toItem(a models.Attachment) attachmentItem {
	return attachmentItem{
		ID:       a.ID,
		FileName: a.FileName,
		Source:   string(a.Source),
		URL:      a.URL,
		Failed:   a.Failed,
		Size:     len(a.Content),
	}
}

func jsonResult(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

func (s *Server) listAttachments(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.ws.Session(sessionID(req))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	items := sess.Store().List()
	out := make([]attachmentItem, 0, len(items))
	for _, a := range items {
		out = append(out, toItem(a))
	}
	return jsonResult(out), nil
}

func (s *Server) addURL(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawURL, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	a, err := s.ws.AddURL(ctx, sessionID(req), rawURL)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(toItem(a)), nil
}

func (s *Server) removeAttachment(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	a, err := s.ws.RemoveAttachment(sessionID(req), id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("removed: %s", a.FileName)), nil
}

func (s *Server) assemblePrompt(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	markup, err := req.RequireString("markup")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sess, err := s.ws.Session(sessionID(req))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := s.ws.Assemble(ctx, workspace.AssembleInput{
		Markup:  []byte(markup),
		BaseDir: s.baseDir,
		Inline:  sess.Store().List(),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(out.Failed) == 0 {
		return mcp.NewToolResultText(out.Text), nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(out.Text),
			mcp.NewTextContent("fetch failed, placeholder used: " + strings.Join(out.Failed, ", ")),
		},
	}, nil
}

func (s *Server) getMarkupContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(MarkupContract), nil
}

func (s *Server) readMarkupResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      MarkupURI,
			MIMEType: "text/markdown",
			Text:     MarkupContract,
		},
	}, nil
}
