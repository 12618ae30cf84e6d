package runtime

import (
	"fmt"
	"strings"

	"github.com/juju/errors"
)

func (p *pipeline) RenderGraph(steps, exceptSteps []string) (string, error) {
	graph, err := p.buildGraph(steps, exceptSteps, p.opts.OnlySelected)
	if err != nil {
		return "", errors.Trace(err)
	}

	res, err := newResolver(graph)
	if err != nil {
		return "", errors.Trace(err)
	}

	renderer := newGraphRenderer()
	return renderer.generateDOT(res.order(), graph, p.resolvedHandler), nil
}

func newGraphRenderer() *graphRenderer {
	return &graphRenderer{&strings.Builder{}}
}

type graphRenderer struct {
	sb *strings.Builder
}

/**
 * generateDOT emits the selected graph in Graphviz dot form. Nodes come
 * out in execution order and edges point from requirement to dependent,
 * so the picture reads top-down the way the run proceeds.
 */
func (d *graphRenderer) generateDOT(
	order []string,
	graph map[string][]string,
	lookup func(string) (stepHandler, bool),
) string {
	d.write("digraph D {")
	d.write("rankdir=TB")

	for _, name := range order {
		d.drawNode(name, lookup)
	}
	for _, name := range order {
		for _, requirement := range graph[name] {
			d.write("%s -> %s", idString(requirement), idString(name))
		}
	}

	d.write("}")
	return d.sb.String()
}

func (d *graphRenderer) drawNode(name string, lookup func(string) (stepHandler, bool)) {
	shape := "record"
	attr := ""

	if handler, exists := lookup(name); exists {
		if _, isGroup := handler.(*stepGroupHandler); isGroup {
			shape = "diamond"
		}
		if desc := handler.description(); desc != "" {
			attr = fmt.Sprintf(" tooltip=%s", quoteString(desc))
		}
	}

	d.write("%s [label=%s shape=\"%s\"%s]", idString(name), quoteString(name), shape, attr)
}

func (d *graphRenderer) write(format string, s ...any) {
	d.sb.WriteString(fmt.Sprintf(format+"\n", s...))
}

func quoteString(s string) string {
	return "\"" + strings.ReplaceAll(s, "\"", "\\\"") + "\""
}

var idleChars = []string{" ", "'", "\"", "(", ")", "*", "&", "^", "%", "$", "#", "@", "!", "?", "<", ">", "[", "]", "{", "}", ".", ",", "="}

func idString(s string) string {
	for _, ch := range idleChars {
		s = strings.ReplaceAll(s, ch, "_")
	}
	return s
}
