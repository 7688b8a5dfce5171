package registry

import (
	"context"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// ToolFilter hides individual tools from discovery. Disable tools by setting
// NADAC_MCP_DISABLED_TOOLS to a comma-separated list of tool names.
type ToolFilter struct {
	disabled map[string]struct{}
}

// NewToolFilterFromEnv constructs a filter using NADAC_MCP_DISABLED_TOOLS.
func NewToolFilterFromEnv() *ToolFilter {
	disabled := map[string]struct{}{}
	for _, name := range strings.Split(os.Getenv("NADAC_MCP_DISABLED_TOOLS"), ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" {
			disabled[name] = struct{}{}
		}
	}
	return &ToolFilter{disabled: disabled}
}

// FilterTools implements server tool filtering semantics.
func (f *ToolFilter) FilterTools(ctx context.Context, tools []mcp.Tool) []mcp.Tool {
	if len(f.disabled) == 0 {
		return tools
	}
	out := make([]mcp.Tool, 0, len(tools))
	for _, t := range tools {
		if _, hidden := f.disabled[strings.ToLower(t.Name)]; hidden {
			continue
		}
		out = append(out, t)
	}
	return out
}
