package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/panbanda/locus/internal/output"
	"github.com/panbanda/locus/internal/service/analysis"
	"github.com/panbanda/locus/pkg/similarity"
)

// ScanInput is shared by every tool.
type ScanInput struct {
	Paths   []string `json:"paths,omitempty" jsonschema:"Paths to analyze. Defaults to current directory if empty."`
	Include []string `json:"include,omitempty" jsonschema:"Gitignore-style patterns; when set only matching files are analyzed."`
	Exclude []string `json:"exclude,omitempty" jsonschema:"Gitignore-style patterns for files to skip."`
	Format  string   `json:"format,omitempty" jsonschema:"Output format: toon (default), json, or markdown."`
}

// FindDuplicatesInput configures find_duplicates.
type FindDuplicatesInput struct {
	ScanInput
	Strategy    string `json:"strategy,omitempty" jsonschema:"Grouping strategy: exact or ast. Default ast."`
	IncludeInit bool   `json:"include_init,omitempty" jsonschema:"Include __init__ methods, which are skipped by default."`
	SkipTrivial bool   `json:"skip_trivial,omitempty" jsonschema:"Skip dunder methods and short get_/set_/to_/as_ accessors."`
	MinNodes    int    `json:"min_nodes,omitempty" jsonschema:"Skip functions whose canonical syntax tree has fewer nodes."`
}

// ListFilesInput configures list_files.
type ListFilesInput struct {
	ScanInput
}

func getPaths(input ScanInput) []string {
	if len(input.Paths) == 0 {
		return []string{"."}
	}
	return input.Paths
}

func getFormat(input ScanInput) output.Format {
	switch f := output.ParseFormat(input.Format); f {
	case output.FormatJSON, output.FormatMarkdown:
		return f
	default:
		return output.FormatTOON
	}
}

// render formats r in format. Markdown uses the renderable's own layout;
// JSON and TOON serialize its data.
func render(r output.Renderable, format output.Format) (string, error) {
	switch format {
	case output.FormatMarkdown:
		var buf bytes.Buffer
		if err := r.RenderMarkdown(&buf); err != nil {
			return "", err
		}
		return buf.String(), nil
	case output.FormatJSON:
		data, err := json.MarshalIndent(r.RenderData(), "", "  ")
		if err != nil {
			return "", err
		}
		return string(data), nil
	default:
		return output.MarshalTOON(r.RenderData())
	}
}

func toolResult(r output.Renderable, format output.Format) (*mcp.CallToolResult, any, error) {
	text, err := render(r, format)
	if err != nil {
		return toolError(fmt.Sprintf("render %s: %v", format, err))
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}, nil, nil
}

func toolError(msg string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: "Error: " + msg},
		},
		IsError: true,
	}, nil, nil
}

func (s *Server) load(ctx context.Context, input ScanInput) (*analysis.Workspace, error) {
	return s.service.Load(ctx, getPaths(input),
		analysis.ScanOptions{Include: input.Include, Exclude: input.Exclude},
		analysis.ReadOptions{},
	)
}

func (s *Server) handleFindDuplicates(ctx context.Context, req *mcp.CallToolRequest, input FindDuplicatesInput) (*mcp.CallToolResult, any, error) {
	ws, err := s.load(ctx, input.ScanInput)
	if err != nil {
		return toolError(err.Error())
	}
	if len(ws.Files) == 0 {
		return toolError("no Python files found")
	}

	cfg := s.service.SimilarityConfig()
	cfg.Strategy = similarity.StrategyAST
	if input.Strategy != "" {
		cfg.Strategy = similarity.StrategyName(input.Strategy)
	}
	cfg.IncludeInit = input.IncludeInit
	cfg.SkipTrivial = cfg.SkipTrivial || input.SkipTrivial
	if input.MinNodes > 0 {
		cfg.MinNodes = input.MinNodes
	}

	res, err := s.service.FindDuplicates(ws, cfg)
	if err != nil {
		return toolError(err.Error())
	}
	return toolResult(similarity.NewSummary(res), getFormat(input.ScanInput))
}

func (s *Server) handleListFiles(ctx context.Context, req *mcp.CallToolRequest, input ListFilesInput) (*mcp.CallToolResult, any, error) {
	ws, err := s.load(ctx, input.ScanInput)
	if err != nil {
		return toolError(err.Error())
	}
	if len(ws.Files) == 0 {
		return toolError("no Python files found")
	}

	stats, err := s.service.Inventory(ctx, ws)
	if err != nil {
		return toolError(err.Error())
	}
	return toolResult(analysis.FileTable(stats), getFormat(input.ScanInput))
}
