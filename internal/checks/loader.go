// internal/checks/loader.go - definition loading and matrix expansion
package checks

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const DefaultTimeout = 30

var variablePattern = regexp.MustCompile(`\$\{(\w+)\}`)

// checkDoc mirrors the definition file. Pointers distinguish "absent" from
// zero so defaults apply only when a field is missing.
type checkDoc struct {
	Name        string                 `yaml:"name"`
	Command     string                 `yaml:"command"`
	Schedule    string                 `yaml:"schedule"`
	Description string                 `yaml:"description"`
	Enabled     *bool                  `yaml:"enabled"`
	Timeout     *int                   `yaml:"timeout"`
	Sudo        bool                   `yaml:"sudo"`
	LLM         LLMConfig              `yaml:"llm"`
	Notify      NotifyConfig           `yaml:"notify"`
	Matrix      map[string][]yaml.Node `yaml:"matrix"`
}

func (d *checkDoc) toCheck(path string) (Check, error) {
	check := Check{
		Name:        d.Name,
		Command:     d.Command,
		Schedule:    d.Schedule,
		Description: d.Description,
		Enabled:     true,
		Timeout:     DefaultTimeout,
		Sudo:        d.Sudo,
		LLM:         d.LLM,
		Notify:      d.Notify,
		SourcePath:  path,
	}
	if d.Enabled != nil {
		check.Enabled = *d.Enabled
	}
	if d.Timeout != nil {
		check.Timeout = *d.Timeout
	}
	if check.Notify.Priority == "" {
		check.Notify.Priority = PriorityDefault
	} else {
		if _, err := ParsePriority(string(check.Notify.Priority)); err != nil {
			return Check{}, err
		}
	}
	return check, nil
}

// LoadFile loads the check(s) defined in one YAML file, expanding the matrix
// section when present.
func LoadFile(path string) ([]Check, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read check file: %w", err)
	}

	var doc checkDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid YAML in %s: %w", path, err)
	}

	var missing []string
	for field, value := range map[string]string{
		"name": doc.Name, "command": doc.Command, "schedule": doc.Schedule,
	} {
		if value == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("missing required fields in %s: %s", path, strings.Join(missing, ", "))
	}

	if len(doc.Matrix) == 0 {
		check, err := doc.toCheck(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return []Check{check}, nil
	}

	return expandMatrix(&doc, path)
}

// LoadDir loads every *.yaml/*.yml definition in dir, sorted by filename.
func LoadDir(dir string) ([]Check, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("checks directory not found: %s", dir)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("failed to glob checks: %w", err)
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)

	var all []Check
	for _, path := range paths {
		expanded, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		all = append(all, expanded...)
	}
	return all, nil
}

// expandMatrix generates one check per combination of the matrix variables,
// substituting ${var} in every string field.
func expandMatrix(doc *checkDoc, path string) ([]Check, error) {
	keys := make([]string, 0, len(doc.Matrix))
	for key, values := range doc.Matrix {
		if len(values) == 0 {
			return nil, fmt.Errorf("matrix.%s cannot be empty in %s", key, path)
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	combos := [][]string{{}}
	for _, key := range keys {
		var next [][]string
		for _, combo := range combos {
			for _, node := range doc.Matrix[key] {
				var value string
				if err := node.Decode(&value); err != nil {
					return nil, fmt.Errorf("matrix.%s values must be scalars in %s", key, path)
				}
				extended := append(append([]string{}, combo...), value)
				next = append(next, extended)
			}
		}
		combos = next
	}

	var expanded []Check
	for _, combo := range combos {
		variables := make(map[string]string, len(keys))
		for i, key := range keys {
			variables[key] = combo[i]
		}

		sub := *doc
		sub.Matrix = nil
		sub.Notify.Tags = append([]string{}, doc.Notify.Tags...)
		substituteDoc(&sub, variables)

		check, err := sub.toCheck(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		expanded = append(expanded, check)
	}
	return expanded, nil
}

func substituteDoc(doc *checkDoc, variables map[string]string) {
	doc.Name = substitute(doc.Name, variables)
	doc.Command = substitute(doc.Command, variables)
	doc.Schedule = substitute(doc.Schedule, variables)
	doc.Description = substitute(doc.Description, variables)
	doc.LLM.Prompt = substitute(doc.LLM.Prompt, variables)
	doc.LLM.Model = substitute(doc.LLM.Model, variables)
	doc.LLM.TriageModel = substitute(doc.LLM.TriageModel, variables)
	doc.LLM.AnalysisModel = substitute(doc.LLM.AnalysisModel, variables)
	for i, tag := range doc.Notify.Tags {
		doc.Notify.Tags[i] = substitute(tag, variables)
	}
}

// substitute replaces ${var} patterns, leaving unknown variables untouched.
func substitute(text string, variables map[string]string) string {
	return variablePattern.ReplaceAllStringFunc(text, func(match string) string {
		name := variablePattern.FindStringSubmatch(match)[1]
		if value, ok := variables[name]; ok {
			return value
		}
		return match
	})
}
