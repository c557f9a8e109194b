package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/nexus-rpc/sdk-go/nexus"
)

// NexusCaller implements Caller by executing a tool call as a Nexus
// operation (https://github.com/nexus-rpc) against a remote tool-server
// endpoint, rather than dialing the MCP server's own JSON-RPC transport
// directly. This is the path spec §4.3 calls "remote MCP": a tool server
// that the dispatcher's process cannot reach on a local network hop, but
// that exposes its operations through a Nexus-compatible handler (the same
// durable cross-service call shape a Temporal deployment uses for Nexus
// operations elsewhere in the stack).
type NexusCaller struct {
	client *nexus.HTTPClient
}

// NexusOptions configures NewNexusCaller.
type NexusOptions struct {
	// BaseURL is the remote Nexus endpoint's base URL.
	BaseURL string
	// Service is the Nexus service name the remote tool server registers
	// its tool operations under.
	Service string
	HTTP    *http.Client
}

// NewNexusCaller builds a Caller that addresses one Nexus service. Each
// call executes the operation named "<suite>.<tool>" from the
// CallRequest's Suite and Tool, so one NexusCaller can front every suite a
// remote server exposes.
func NewNexusCaller(opts NexusOptions) (*NexusCaller, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("mcp: NexusOptions.BaseURL is required")
	}
	if opts.Service == "" {
		return nil, fmt.Errorf("mcp: NexusOptions.Service is required")
	}
	httpClient := opts.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	client, err := nexus.NewHTTPClient(nexus.HTTPClientOptions{
		BaseURL:    opts.BaseURL,
		Service:    opts.Service,
		HTTPCaller: httpClient.Do,
	})
	if err != nil {
		return nil, fmt.Errorf("mcp: build nexus client: %w", err)
	}
	return &NexusCaller{client: client}, nil
}

// CallTool implements Caller by starting the named operation synchronously
// and consuming its result as the tool's JSON result. A failed or canceled
// operation comes back from ExecuteOperation as an
// *nexus.UnsuccessfulOperationError, which is surfaced as an *Error so the
// dispatcher's error handling doesn't need to special-case the transport.
func (c *NexusCaller) CallTool(ctx context.Context, req CallRequest) (CallResponse, error) {
	operation := req.Suite + "." + req.Tool
	value, err := c.client.ExecuteOperation(ctx, operation, req.Payload, nexus.ExecuteOperationOptions{})
	if err != nil {
		var unsuccessful *nexus.UnsuccessfulOperationError
		if errors.As(err, &unsuccessful) {
			return CallResponse{}, &Error{Code: JSONRPCInternalError, Message: unsuccessful.Error()}
		}
		return CallResponse{}, fmt.Errorf("mcp: nexus operation %s: %w", operation, err)
	}

	var raw json.RawMessage
	if err := value.Consume(&raw); err != nil {
		return CallResponse{}, fmt.Errorf("mcp: consume nexus result for %s: %w", operation, err)
	}
	return decodeToolCallResult(raw)
}
