package main

import (
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/cameronrye/gopher-mcp-go/internal/result"
)

// toolResultFor renders a Result as an MCP tool result. Error-kind
// results surface as a tool error (so the calling model sees the
// failure as a failure), every other kind as a JSON text payload.
func toolResultFor(r result.Result) (*mcp.CallToolResult, error) {
	payload, err := json.Marshal(r)
	if err != nil {
		return mcp.NewToolResultError("marshalling result: " + err.Error()), nil
	}

	if r.Kind == result.KindError {
		return mcp.NewToolResultError(string(payload)), nil
	}
	return mcp.NewToolResultText(string(payload)), nil
}
