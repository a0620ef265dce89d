package mcpserver

import (
	"encoding/json"
)

const manifestSchema = "https://static.modelcontextprotocol.io/schemas/2025-10-17/server.schema.json"

// Manifest is the server.json entry published to MCP registries.
type Manifest struct {
	Schema      string      `json:"$schema"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Version     string      `json:"version"`
	Repository  *Repository `json:"repository,omitempty"`
	Packages    []Package   `json:"packages,omitempty"`
}

// Repository points at the source repository.
type Repository struct {
	URL    string `json:"url"`
	Source string `json:"source"`
}

// Package says how a client launches the server.
type Package struct {
	RegistryType     string     `json:"registryType"`
	Identifier       string     `json:"identifier"`
	PackageArguments []Argument `json:"packageArguments,omitempty"`
	Transport        Transport  `json:"transport"`
}

// Argument is one command-line argument.
type Argument struct {
	Type  string `json:"type"`
	Value string `json:"value,omitempty"`
}

// Transport names the wire transport.
type Transport struct {
	Type string `json:"type"`
}

// GenerateManifest renders server.json for version.
func GenerateManifest(version string) ([]byte, error) {
	if version == "" || version == "dev" {
		version = "0.0.0"
	}
	return json.MarshalIndent(Manifest{
		Schema:      manifestSchema,
		Name:        "io.github.panbanda/locus",
		Description: "Duplicate and near-duplicate Python function detection",
		Version:     version,
		Repository:  &Repository{URL: "https://github.com/panbanda/locus", Source: "github"},
		Packages: []Package{{
			RegistryType:     "oci",
			Identifier:       "ghcr.io/panbanda/locus:" + version,
			PackageArguments: []Argument{{Type: "positional", Value: "mcp"}},
			Transport:        Transport{Type: "stdio"},
		}},
	}, "", "  ")
}
