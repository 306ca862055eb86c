package mcp

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"testing"

	"github.com/matheus-rech/clinical-study-extraction/internal/descriptions"
)

// rpc sends one JSON-RPC message through the MCP server and decodes the response
func rpc(t *testing.T, server *Server, message string, out interface{}) {
	t.Helper()
	resp := server.mcpServer.HandleMessage(context.Background(), json.RawMessage(message))
	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("failed to encode response: %v", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		t.Fatalf("failed to decode response %s: %v", data, err)
	}
}

func TestServerToolsRegistration(t *testing.T) {
	server, _ := newTestServer(t)

	var resp struct {
		Result struct {
			Tools []struct {
				Name        string `json:"name"`
				Description string `json:"description"`
			} `json:"tools"`
		} `json:"result"`
	}
	rpc(t, server, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`, &resp)

	var got []string
	for _, tool := range resp.Result.Tools {
		got = append(got, tool.Name)
		if tool.Description != descriptions.GetToolDescription(tool.Name) {
			t.Errorf("tool %s registered without its catalog description", tool.Name)
		}
	}

	want := descriptions.GetAllToolNames()
	sort.Strings(want)
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("registered tools = %v, want %v", got, want)
	}
	if len(descriptions.Catalog) != len(want) {
		t.Errorf("catalog lists %d tools, descriptions cover %d", len(descriptions.Catalog), len(want))
	}
}

func TestServerToolCallRoundTrip(t *testing.T) {
	server, _ := newTestServer(t)

	var resp struct {
		Result struct {
			IsError bool `json:"isError"`
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"result"`
	}
	rpc(t, server,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"article_open","arguments":{"articleId":"Study_002.pdf"}}}`,
		&resp)

	if resp.Result.IsError {
		t.Fatalf("article_open failed: %+v", resp.Result.Content)
	}
	if len(resp.Result.Content) == 0 || !strings.Contains(resp.Result.Content[0].Text, "Study_002.pdf") {
		t.Errorf("unexpected article_open response: %+v", resp.Result.Content)
	}
	if server.session.Active() != "Study_002.pdf" {
		t.Errorf("active article = %q, want Study_002.pdf", server.session.Active())
	}
}

func TestServerErrorHandling(t *testing.T) {
	server, _ := newTestServer(t)

	var resp struct {
		Result struct {
			IsError bool `json:"isError"`
			Content []struct {
				Text string `json:"text"`
			} `json:"content"`
		} `json:"result"`
	}
	rpc(t, server,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"extraction_undo","arguments":{}}}`,
		&resp)

	if !resp.Result.IsError {
		t.Fatal("expected extraction_undo on an empty log to report an error")
	}
	if len(resp.Result.Content) == 0 || !strings.Contains(resp.Result.Content[0].Text, "no extractions to undo") {
		t.Errorf("unexpected error content: %+v", resp.Result.Content)
	}
}
