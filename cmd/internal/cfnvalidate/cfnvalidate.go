// Package cfnvalidate checks synthesized CloudFormation templates before deployment.
package cfnvalidate

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/lex00/cfn-lint-go/pkg/lint"
	"gopkg.in/yaml.v3"
)

// Finding is one problem reported for a template.
type Finding struct {
	Template string
	Level    string
	RuleID   string
	Message  string
	Path     string
}

func (f Finding) String() string {
	if f.Path != "" {
		return fmt.Sprintf("%s: [%s] %s: %s (at %s)", filepath.Base(f.Template), f.Level, f.RuleID, f.Message, f.Path)
	}
	return fmt.Sprintf("%s: [%s] %s: %s", filepath.Base(f.Template), f.Level, f.RuleID, f.Message)
}

// Report collects the findings for a set of templates.
type Report struct {
	Templates []string
	Findings  []Finding
}

// Errors returns the number of error-level findings.
func (r *Report) Errors() int {
	n := 0
	for _, f := range r.Findings {
		if f.Level == "Error" {
			n++
		}
	}
	return n
}

// TemplateStructure checks that a template parses and declares resources. Synthesized
// templates are JSON, which the YAML parser accepts as well.
func TemplateStructure(templatePath string) error {
	data, err := os.ReadFile(templatePath)
	if err != nil {
		return errors.Wrapf(err, "reading template %s", templatePath)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return errors.Wrap(err, "parsing template YAML")
	}

	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return errors.New("invalid YAML document")
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return errors.New("template root is not a mapping")
	}

	resources := findMappingValue(root, "Resources")
	if resources == nil {
		return errors.New("template has no Resources section")
	}
	if resources.Kind != yaml.MappingNode || len(resources.Content) == 0 {
		return errors.New("template Resources section is empty")
	}

	return nil
}

// Templates returns the stack templates of a cloud assembly directory.
func Templates(cdkOut string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(cdkOut, "*.template.json"))
	if err != nil {
		return nil, errors.Wrapf(err, "listing templates in %s", cdkOut)
	}
	if len(paths) == 0 {
		return nil, errors.Newf("no templates in %s, run synth first", cdkOut)
	}
	sort.Strings(paths)
	return paths, nil
}

// Lint runs the structure check and cfn-lint on every template.
func Lint(templates []string) (*Report, error) {
	report := &Report{Templates: templates}
	linter := lint.New(lint.Options{})

	for _, path := range templates {
		if err := TemplateStructure(path); err != nil {
			report.Findings = append(report.Findings, Finding{
				Template: path,
				Level:    "Error",
				RuleID:   "structure",
				Message:  err.Error(),
			})
			continue
		}

		matches, err := linter.LintFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "linting %s", path)
		}
		for _, match := range matches {
			report.Findings = append(report.Findings, findingFromMatch(path, match))
		}
	}

	return report, nil
}

func findingFromMatch(path string, match lint.Match) Finding {
	parts := make([]string, len(match.Location.Path))
	for i, p := range match.Location.Path {
		parts[i] = fmt.Sprintf("%v", p)
	}
	return Finding{
		Template: path,
		Level:    match.Level,
		RuleID:   match.Rule.ID,
		Message:  match.Message,
		Path:     strings.Join(parts, "/"),
	}
}

func findMappingValue(node *yaml.Node, key string) *yaml.Node {
	if node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i < len(node.Content)-1; i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}
