package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gobii-run/agentcore/tools"
)

func TestNormalizeToolResult_TextContent(t *testing.T) {
	resp, err := normalizeToolResult(toolsCallResult{
		Content: []contentItem{{Type: "text", Text: strPtr(`{"ok":true}`)}},
	})
	if err != nil {
		t.Fatalf("normalizeToolResult: %v", err)
	}
	if string(resp.Result) != `{"ok":true}` {
		t.Fatalf("Result = %s, want {\"ok\":true}", resp.Result)
	}
}

func TestNormalizeToolResult_PlainTextIsQuoted(t *testing.T) {
	resp, err := normalizeToolResult(toolsCallResult{
		Content: []contentItem{{Type: "text", Text: strPtr("hello world")}},
	})
	if err != nil {
		t.Fatalf("normalizeToolResult: %v", err)
	}
	var decoded string
	if err := json.Unmarshal(resp.Result, &decoded); err != nil {
		t.Fatalf("Result is not valid JSON: %v", err)
	}
	if decoded != "hello world" {
		t.Fatalf("decoded = %q, want %q", decoded, "hello world")
	}
}

func TestNormalizeToolResult_EmptyContentErrors(t *testing.T) {
	if _, err := normalizeToolResult(toolsCallResult{}); err == nil {
		t.Fatal("expected an error for empty content")
	}
}

func TestHTTPCaller_CallTool(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		switch req.Method {
		case "initialize":
			_ = json.NewEncoder(w).Encode(rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: json.RawMessage(`{}`)})
		case "tools/call":
			result := toolsCallResult{Content: []contentItem{{Type: "text", Text: strPtr(`{"status":"done"}`)}}}
			raw, _ := json.Marshal(result)
			_ = json.NewEncoder(w).Encode(rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: raw})
		default:
			t.Fatalf("unexpected method %q", req.Method)
		}
	}))
	defer server.Close()

	caller, err := NewHTTPCaller(context.Background(), HTTPOptions{Endpoint: server.URL})
	if err != nil {
		t.Fatalf("NewHTTPCaller: %v", err)
	}
	resp, err := caller.CallTool(context.Background(), CallRequest{Suite: "search", Tool: "run", Payload: json.RawMessage(`{"q":"x"}`)})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if string(resp.Result) != `{"status":"done"}` {
		t.Fatalf("Result = %s", resp.Result)
	}
}

func TestRegisterTool_WrapsCallerAsHandler(t *testing.T) {
	registry := tools.NewRegistry()
	var gotSuite, gotTool string
	caller := CallerFunc(func(_ context.Context, req CallRequest) (CallResponse, error) {
		gotSuite, gotTool = req.Suite, req.Tool
		return CallResponse{Result: json.RawMessage(`{"echo":true}`)}, nil
	})

	if err := RegisterTool(registry, caller, ToolDescriptor{Suite: "search", Tool: "run"}); err != nil {
		t.Fatalf("RegisterTool: %v", err)
	}

	tool, ok := registry.Lookup("search.run")
	if !ok {
		t.Fatal("expected tool \"search.run\" to be registered")
	}
	result, err := tool.Handler(context.Background(), tools.AgentView{AgentID: "a1"}, map[string]any{"q": "x"})
	if err != nil {
		t.Fatalf("Handler: %v", err)
	}
	if result.Status != tools.StatusOK {
		t.Fatalf("Status = %v, want StatusOK", result.Status)
	}
	if result.Payload["echo"] != true {
		t.Fatalf("Payload = %v", result.Payload)
	}
	if gotSuite != "search" || gotTool != "run" {
		t.Fatalf("caller saw suite=%q tool=%q", gotSuite, gotTool)
	}
}

func TestRegisterTool_CallerErrorBecomesToolError(t *testing.T) {
	registry := tools.NewRegistry()
	caller := CallerFunc(func(context.Context, CallRequest) (CallResponse, error) {
		return CallResponse{}, &Error{Code: JSONRPCInternalError, Message: "unreachable"}
	})
	if err := RegisterTool(registry, caller, ToolDescriptor{Suite: "search", Tool: "run"}); err != nil {
		t.Fatalf("RegisterTool: %v", err)
	}

	tool, _ := registry.Lookup("search.run")
	result, err := tool.Handler(context.Background(), tools.AgentView{}, nil)
	if err != nil {
		t.Fatalf("Handler should report transport failures as a tool error, not a Go error: %v", err)
	}
	if result.Status != tools.StatusError {
		t.Fatalf("Status = %v, want StatusError", result.Status)
	}
}

func strPtr(s string) *string { return &s }
