package registry

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"
)

func TestToolFilter_NoEnvPassesEverything(t *testing.T) {
	t.Setenv("NADAC_MCP_DISABLED_TOOLS", "")
	f := NewToolFilterFromEnv()

	tools := []mcp.Tool{{Name: "get_drug_pricing"}, {Name: "search_by_ndc"}}
	require.Equal(t, tools, f.FilterTools(context.Background(), tools))
}

func TestToolFilter_HidesDisabledTools(t *testing.T) {
	t.Setenv("NADAC_MCP_DISABLED_TOOLS", "search_by_ndc, Get_Price_History")
	f := NewToolFilterFromEnv()

	tools := []mcp.Tool{
		{Name: "get_drug_pricing"},
		{Name: "get_price_history"},
		{Name: "search_by_ndc"},
	}
	got := f.FilterTools(context.Background(), tools)
	require.Len(t, got, 1)
	require.Equal(t, "get_drug_pricing", got[0].Name)
}
