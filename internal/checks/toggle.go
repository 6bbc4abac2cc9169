// internal/checks/toggle.go - atomic enable/disable of a definition file
package checks

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// SetEnabled flips the enabled flag of the definition that produced the named
// check. The file is parsed, mutated as a structured document and replaced by
// atomic rename; the raw text is never string-edited.
func SetEnabled(dir, name string, enabled bool) error {
	all, err := LoadDir(dir)
	if err != nil {
		return err
	}

	var sourcePath string
	for _, check := range all {
		if check.Name == name {
			sourcePath = check.SourcePath
			break
		}
	}
	if sourcePath == "" {
		return fmt.Errorf("check not found: %s", name)
	}

	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return fmt.Errorf("failed to read check file: %w", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("invalid YAML in %s: %w", sourcePath, err)
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return fmt.Errorf("unexpected document structure in %s", sourcePath)
	}

	setMappingBool(doc.Content[0], "enabled", enabled)

	out, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("failed to marshal check file: %w", err)
	}

	// No .yaml suffix: a leftover temp file must never match LoadDir's glob.
	tmp, err := os.CreateTemp(filepath.Dir(sourcePath), ".check-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(out); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, sourcePath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace check file: %w", err)
	}
	return nil
}

// setMappingBool updates key in a YAML mapping node, appending it when absent.
func setMappingBool(mapping *yaml.Node, key string, value bool) {
	text := "false"
	if value {
		text = "true"
	}

	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			mapping.Content[i+1].SetString(text)
			mapping.Content[i+1].Tag = "!!bool"
			return
		}
	}

	keyNode := &yaml.Node{Kind: yaml.ScalarNode, Value: key}
	valueNode := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: text}
	mapping.Content = append(mapping.Content, keyNode, valueNode)
}
