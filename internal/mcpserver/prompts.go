package mcpserver

import (
	"bytes"
	"context"
	"embed"
	"path"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"gopkg.in/yaml.v3"
)

//go:embed prompts/*.md
var promptFiles embed.FS

type promptDef struct {
	Name        string
	Description string `yaml:"description"`
	Body        string `yaml:"-"`
}

var frontmatterFence = []byte("---\n")

// loadPrompts reads every embedded prompt, sorted by file name.
func loadPrompts() ([]promptDef, error) {
	entries, err := promptFiles.ReadDir("prompts")
	if err != nil {
		return nil, err
	}

	prompts := make([]promptDef, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".md" {
			continue
		}
		content, err := promptFiles.ReadFile(path.Join("prompts", entry.Name()))
		if err != nil {
			return nil, err
		}
		p := splitFrontmatter(content)
		p.Name = strings.TrimSuffix(entry.Name(), ".md")
		prompts = append(prompts, p)
	}
	return prompts, nil
}

// splitFrontmatter separates a leading YAML block from the prompt body.
// Content without a valid block is all body.
func splitFrontmatter(content []byte) promptDef {
	whole := promptDef{Body: string(content)}
	if !bytes.HasPrefix(content, frontmatterFence) {
		return whole
	}
	rest := content[len(frontmatterFence):]
	head, body, ok := bytes.Cut(rest, append([]byte("\n"), frontmatterFence...))
	if !ok {
		return whole
	}

	var p promptDef
	if err := yaml.Unmarshal(head, &p); err != nil {
		return whole
	}
	p.Body = strings.TrimLeft(string(body), "\n")
	return p
}

func (s *Server) registerPrompts() {
	prompts, err := loadPrompts()
	if err != nil {
		return
	}
	for _, p := range prompts {
		s.server.AddPrompt(&mcp.Prompt{Name: p.Name, Description: p.Description}, promptHandler(p))
	}
}

func promptHandler(p promptDef) mcp.PromptHandler {
	return func(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		return &mcp.GetPromptResult{
			Description: p.Description,
			Messages: []*mcp.PromptMessage{
				{Role: "user", Content: &mcp.TextContent{Text: p.Body}},
			},
		}, nil
	}
}
