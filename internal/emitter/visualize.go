package emitter

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/comalice/scxml-aot/internal/model"
	"github.com/comalice/scxml-aot/internal/scxmlerr"
)

// ExportDOT renders a Graphviz DOT graph of the normalized state hierarchy
// plus transition edges, for debugging generated output without reading
// the emitted target-language source. States with children become
// clusters labelled with their kind; leaf states are labelled with their
// ID only (history states drawn as ellipses); edges carry the event
// descriptor.
//
// Cluster-per-compound-state rendering over a root-finding / recursive-render
// shape, adapted from live-snapshot-highlighting visualization into a static
// structural export.
func ExportDOT(m *model.Model) string {
	var buf bytes.Buffer
	buf.WriteString("digraph Statechart {\n  rankdir=LR;\n  node [shape=box, fontsize=10, style=rounded];\n  edge [fontsize=9];\n\n")

	for _, rootID := range m.Roots {
		renderState(&buf, m, rootID)
	}

	for _, s := range m.States {
		for _, t := range s.Transitions {
			if t.Target == "" {
				continue
			}
			label := t.Event
			if label == "" {
				label = "ε"
			}
			fmt.Fprintf(&buf, "  \"%s\" -> \"%s\" [label=\"%s\"];\n", s.ID, t.Target, label)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func renderState(buf *bytes.Buffer, m *model.Model, id string) {
	s := m.States[id]
	if s == nil {
		return
	}
	if len(s.Children) > 0 {
		fmt.Fprintf(buf, "  subgraph cluster_%s {\n    label=\"%s (%s)\";\n", id, id, s.Kind)
		if s.Kind == model.Parallel {
			buf.WriteString("    style=filled; fillcolor=lightblue;\n")
		}
		for _, c := range s.Children {
			renderState(buf, m, c)
		}
		buf.WriteString("  }\n")
		return
	}
	shape := "box"
	if s.Kind == model.History {
		shape = "ellipse"
	}
	fmt.Fprintf(buf, "  \"%s\" [label=\"%s\" shape=%s];\n", id, id, shape)
}

// WriteDOT writes ExportDOT's output to {outputDir}/{name}.dot.
func WriteDOT(outputDir string, m *model.Model) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", scxmlerr.Wrap(scxmlerr.EmitterFailure, outputDir, "", err)
	}
	path := filepath.Join(outputDir, m.Name+".dot")
	if err := os.WriteFile(path, []byte(ExportDOT(m)), 0o644); err != nil {
		return "", scxmlerr.Wrap(scxmlerr.EmitterFailure, path, "", err)
	}
	return path, nil
}
