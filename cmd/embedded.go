package main

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"
)

//go:embed configs/*.yaml
var configsFS embed.FS

//go:embed content/*.yaml
var contentFS embed.FS

// getEmbeddedConfig returns the raw bytes of an embedded config file.
// name can be with or without the .yaml extension.
func getEmbeddedConfig(name string) ([]byte, error) {
	if !strings.HasSuffix(name, ".yaml") {
		name += ".yaml"
	}
	return configsFS.ReadFile(path.Join("configs", name))
}

// getEmbeddedContent returns the raw bytes of an embedded content manifest.
func getEmbeddedContent(name string) ([]byte, error) {
	if !strings.HasSuffix(name, ".yaml") {
		name += ".yaml"
	}
	return contentFS.ReadFile(path.Join("content", name))
}

// listEmbeddedContent returns the names of all embedded content manifests (without extension).
func listEmbeddedContent() ([]string, error) {
	entries, err := contentFS.ReadDir("content")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded content: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".yaml") {
			names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
		}
	}
	sort.Strings(names)
	return names, nil
}
