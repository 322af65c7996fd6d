// Package stackgraph reads the stack dependency graph from a synthesized cloud assembly.
package stackgraph

import (
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/emicklei/dot"
)

const stackArtifactType = "aws:cloudformation:stack"

// Format of a rendered graph.
type Format string

const (
	FormatDOT     Format = "dot"
	FormatMermaid Format = "mermaid"
)

type Stack struct {
	Name      string
	Account   string
	Region    string
	DependsOn []string
}

type Graph struct {
	Stacks map[string]*Stack
}

type manifest struct {
	Artifacts map[string]struct {
		Type         string   `json:"type"`
		Environment  string   `json:"environment"`
		Dependencies []string `json:"dependencies"`
	} `json:"artifacts"`
}

// Load reads manifest.json of the cloud assembly in cdkOut.
func Load(cdkOut string) (*Graph, error) {
	path := filepath.Join(cdkOut, "manifest.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s, run synth first", path)
	}

	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}

	g := &Graph{Stacks: map[string]*Stack{}}
	for name, art := range m.Artifacts {
		if art.Type != stackArtifactType {
			continue
		}
		account, region := parseEnvironment(art.Environment)
		g.Stacks[name] = &Stack{Name: name, Account: account, Region: region}
	}

	// Dependencies on asset manifests and other non-stack artifacts are dropped.
	for name, art := range m.Artifacts {
		stack, ok := g.Stacks[name]
		if !ok {
			continue
		}
		for _, dep := range art.Dependencies {
			if _, isStack := g.Stacks[dep]; isStack {
				stack.DependsOn = append(stack.DependsOn, dep)
			}
		}
		sort.Strings(stack.DependsOn)
	}

	if len(g.Stacks) == 0 {
		return nil, errors.Newf("no stacks in %s", path)
	}
	return g, nil
}

// parseEnvironment splits "aws://{account}/{region}".
func parseEnvironment(env string) (string, string) {
	rest, ok := strings.CutPrefix(env, "aws://")
	if !ok {
		return "", ""
	}
	account, region, _ := strings.Cut(rest, "/")
	return account, region
}

// Order returns the stack names so that every stack follows its dependencies.
// Stacks that are ready at the same time are ordered by name.
func (g *Graph) Order() ([]string, error) {
	remaining := make(map[string]int, len(g.Stacks))
	dependents := make(map[string][]string, len(g.Stacks))
	for name, stack := range g.Stacks {
		remaining[name] = len(stack.DependsOn)
		for _, dep := range stack.DependsOn {
			dependents[dep] = append(dependents[dep], name)
		}
	}

	var ready []string
	for name, n := range remaining {
		if n == 0 {
			ready = append(ready, name)
		}
	}

	order := make([]string, 0, len(g.Stacks))
	for len(ready) > 0 {
		sort.Strings(ready)
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)
		for _, dependent := range dependents[next] {
			remaining[dependent]--
			if remaining[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}

	if len(order) != len(g.Stacks) {
		return nil, errors.New("dependency cycle between stacks")
	}
	return order, nil
}

// Filter keeps the stacks whose names start with prefix.
func (g *Graph) Filter(prefix string) *Graph {
	out := &Graph{Stacks: map[string]*Stack{}}
	for name, stack := range g.Stacks {
		if strings.HasPrefix(name, prefix) {
			cp := *stack
			cp.DependsOn = slices.DeleteFunc(slices.Clone(stack.DependsOn), func(dep string) bool {
				return !strings.HasPrefix(dep, prefix)
			})
			out.Stacks[name] = &cp
		}
	}
	return out
}

// Render draws the graph with one cluster per region and an edge from every stack to
// the stacks it depends on.
func (g *Graph) Render(format Format) (string, error) {
	graph := dot.NewGraph(dot.Directed)
	graph.Attr("rankdir", "LR")
	graph.NodeInitializer(func(n dot.Node) {
		n.Attr("shape", "box")
		n.Attr("fontname", "Arial")
	})

	names := make([]string, 0, len(g.Stacks))
	for name := range g.Stacks {
		names = append(names, name)
	}
	sort.Strings(names)

	clusters := map[string]*dot.Graph{}
	nodes := make(map[string]dot.Node, len(names))
	for _, name := range names {
		stack := g.Stacks[name]
		region := stack.Region
		if region == "" {
			region = "unknown"
		}
		cluster, ok := clusters[region]
		if !ok {
			cluster = graph.Subgraph(region, dot.ClusterOption{})
			cluster.Attr("label", region)
			clusters[region] = cluster
		}
		nodes[name] = cluster.Node(name)
	}

	for _, name := range names {
		for _, dep := range g.Stacks[name].DependsOn {
			graph.Edge(nodes[name], nodes[dep])
		}
	}

	switch format {
	case FormatDOT, "":
		return graph.String(), nil
	case FormatMermaid:
		return dot.MermaidGraph(graph, dot.MermaidLeftToRight), nil
	default:
		return "", errors.Newf("unknown graph format %q (valid: dot, mermaid)", format)
	}
}
