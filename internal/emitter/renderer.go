// Package emitter implements the Emitter Driver: it binds a
// frozen Model to an injected Renderer and writes the primary output unit
// plus the children manifest, the YAML metadata sidecar, and (optionally)
// a Graphviz DOT debug export.
package emitter

import (
	"strings"
	"text/template"

	"github.com/comalice/scxml-aot/internal/model"
)

// Renderer is the contract an injected template-binding collaborator must
// satisfy. The core never assumes a specific target language;
// Render receives the frozen Model and the base path (directory + input
// stem) the renderer may use to resolve its own template files.
type Renderer interface {
	Render(m *model.Model, basePath string) (string, error)
}

// FuncMap exposes the two filters the renderer contract requires:
// capitalize and escape_cpp. Bundled here so any Renderer
// implementation — including custom ones supplied by a caller — can reuse
// them via text/template's FuncMap without re-deriving the exact rules.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"capitalize": Capitalize,
		"escape_cpp": EscapeCPP,
	}
}

// Capitalize implements the renderer contract's capitalize filter: empty
// string maps to "Empty"; "pass"/"fail" map to "Pass"/"Fail"; otherwise the
// first character is capitalized.
func Capitalize(s string) string {
	switch s {
	case "":
		return "Empty"
	case "pass":
		return "Pass"
	case "fail":
		return "Fail"
	default:
		return strings.ToUpper(s[:1]) + s[1:]
	}
}

// EscapeCPP implements the renderer contract's escape_cpp filter: escapes
// backslash, double quote, and the C0 whitespace controls \n \r \t, so a
// string literal embeds safely in generated C++ source.
func EscapeCPP(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`"`, `\"`,
		"\n", `\n`,
		"\r", `\r`,
		"\t", `\t`,
	)
	return r.Replace(s)
}
