package emitter

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"text/template"

	"github.com/comalice/scxml-aot/internal/model"
)

// TemplateRenderer is the bundled default Renderer: a single text/template
// unit emitting a self-contained C++ header per state machine. Templating
// itself is explicitly out of scope for the core; this
// implementation exists so the Emitter Driver has a working collaborator
// to exercise end to end, not as a complete C++ code generator.
type TemplateRenderer struct {
	// TemplateDir, when non-empty, names a directory holding a
	// "state_machine.tmpl" file overriding the bundled template text.
	TemplateDir string
}

const bundledTemplate = `// Generated by scxmlc. Do not edit by hand.
#pragma once
#include <string>
#include <functional>

namespace {{.Model.Name}} {

enum class State {
{{- range .States}}
  {{. | capitalize}},
{{- end}}
};

enum class Event {
{{- range .Events}}
  {{. | capitalize}},
{{- end}}
};

{{if .Model.MachineNeedsInterpreterFallback -}}
// This machine could not be fully statically resolved; it delegates to an
// external interpreter whose interface is out of scope here.
class {{.Model.Name | capitalize}}InterpreterWrapper {
 public:
  explicit {{.Model.Name | capitalize}}InterpreterWrapper(const std::string& scxmlPath);
  void handleEvent(Event e);
};
{{else -}}
class {{.Model.Name | capitalize}}StateMachine {
 public:
  {{.Model.Name | capitalize}}StateMachine();
  void handleEvent(Event e);
  State currentState() const { return state_; }
{{if .NeedsScriptEngine}}
  // Script-engine boundary: set/get variable, evaluate expression, inject _event.
  virtual bool evalBoolean(const std::string& expr) = 0;
{{end}}
 private:
  State state_ = State::{{.InitialLeaf | capitalize}};
};
{{end -}}

}  // namespace {{.Model.Name}}
`

type renderData struct {
	Model             *model.Model
	States            []string
	Events            []string
	NeedsScriptEngine bool
	InitialLeaf       string
}

// Render implements Renderer.
func (r *TemplateRenderer) Render(m *model.Model, basePath string) (string, error) {
	text := bundledTemplate
	if r.TemplateDir != "" {
		custom := filepath.Join(r.TemplateDir, "state_machine.tmpl")
		if data, err := os.ReadFile(custom); err == nil {
			text = string(data)
		}
	}

	tmpl, err := template.New("state_machine").Funcs(FuncMap()).Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}

	data := renderData{
		Model:             m,
		States:            sortedKeys(m.States),
		Events:            sortedSet(m.Events),
		NeedsScriptEngine: m.Flags.NeedsScriptEngine,
		InitialLeaf:       m.InitialLeaf,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}
	return buf.String(), nil
}

func sortedKeys(m map[string]*model.StateNode) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedSet(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
