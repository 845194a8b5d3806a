package emitter

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/comalice/scxml-aot/internal/model"
	"github.com/comalice/scxml-aot/internal/scxmlerr"
)

// Driver binds a Model to a Renderer and writes the primary output unit
// plus the children manifest. The ext defaults to "h" (the
// bundled renderer targets a C++ header unit); a custom Renderer may imply
// a different extension by setting it at construction.
type Driver struct {
	Renderer   Renderer
	OutputDir  string
	Ext        string
}

// NewDriver returns a Driver bound to the given renderer and output
// directory. Ext defaults to "h" when empty.
func NewDriver(r Renderer, outputDir, ext string) *Driver {
	if ext == "" {
		ext = "h"
	}
	return &Driver{Renderer: r, OutputDir: outputDir, Ext: ext}
}

// Result describes the artifacts one successful Emit call produced.
type Result struct {
	PrimaryUnit  string
	ChildrenFile string // empty when no PureStatic invoke exists
}

// Emit writes the primary unit (and the children manifest, when
// applicable) for m. When m.MachineNeedsInterpreterFallback is set, the
// same Renderer contract is used but the Model carries the fallback flag,
// so a single renderer implementation can service both emission paths.
func (d *Driver) Emit(m *model.Model, basePath string) (*Result, error) {
	if err := os.MkdirAll(d.OutputDir, 0o755); err != nil {
		return nil, scxmlerr.Wrap(scxmlerr.EmitterFailure, basePath, "", err)
	}

	rendered, err := d.Renderer.Render(m, basePath)
	if err != nil {
		return nil, scxmlerr.Wrap(scxmlerr.EmitterFailure, basePath, m.Name, err)
	}

	primary := filepath.Join(d.OutputDir, m.Name+"_sm."+strings.TrimPrefix(d.Ext, "."))
	if err := os.WriteFile(primary, []byte(rendered), 0o644); err != nil {
		return nil, scxmlerr.Wrap(scxmlerr.EmitterFailure, primary, "", err)
	}

	res := &Result{PrimaryUnit: primary}

	if len(m.StaticInvokes) > 0 {
		childrenFile := filepath.Join(d.OutputDir, m.Name+"_children.txt")
		var names []string
		for _, inv := range m.StaticInvokes {
			if inv.ChildName != "" {
				names = append(names, inv.ChildName)
			}
		}
		content := strings.Join(names, "\n")
		if len(names) > 0 {
			content += "\n"
		}
		if err := os.WriteFile(childrenFile, []byte(content), 0o644); err != nil {
			return nil, scxmlerr.Wrap(scxmlerr.EmitterFailure, childrenFile, "", err)
		}
		res.ChildrenFile = childrenFile
	}

	return res, nil
}
