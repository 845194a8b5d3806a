package strategy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/comalice/scxml-aot/internal/loader"
	"github.com/comalice/scxml-aot/internal/model"
	"github.com/comalice/scxml-aot/internal/normalizer"
)

func build(t *testing.T, name, body string, extraFiles map[string]string) (*model.Model, *loader.Document) {
	t.Helper()
	dir := t.TempDir()
	for fname, content := range extraFiles {
		if err := os.WriteFile(filepath.Join(dir, fname), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	path := filepath.Join(dir, name+".scxml")
	content := `<scxml xmlns="http://www.w3.org/2005/07/scxml" version="1.0" initial="s0">` + body + `</scxml>`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	doc, err := loader.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	m, err := model.BuildFromDocument(doc)
	if err != nil {
		t.Fatal(err)
	}
	if err := normalizer.Normalize(m, doc); err != nil {
		t.Fatal(err)
	}
	return m, doc
}

func TestSrcInvokeClassifiedPureStatic(t *testing.T) {
	childDoc := `<scxml xmlns="http://www.w3.org/2005/07/scxml" version="1.0" initial="c0">
		<state id="c0">
			<onentry>
				<send target="#_parent" event="childDone"/>
			</onentry>
		</state>
	</scxml>`
	m, _ := build(t, "src", `
		<state id="s0">
			<invoke src="child.scxml"/>
		</state>
	`, map[string]string{"child.scxml": childDoc})
	SelectInvokeStrategies(m)
	inv := m.States["s0"].Invokes[0]
	if inv.Strategy != model.PureStatic {
		t.Errorf("Strategy = %v, want PureStatic", inv.Strategy)
	}
	if inv.ChildName != "src_child" {
		t.Errorf("ChildName = %q, want src_child", inv.ChildName)
	}
	if !m.Events["done.invoke"] || !m.Events["cancel.invoke"] {
		t.Errorf("expected done.invoke/cancel.invoke injected, got %v", m.Events)
	}
	// The src= child's own <send target="#_parent"> must already have been
	// folded into the parent's event set during Normalize, before
	// SelectInvokeStrategies ever runs.
	if !m.Events["childDone"] {
		t.Errorf("expected childDone folded into parent events, got %v", m.Events)
	}
}

func TestSrcExprInvokeClassifiedStaticHybrid(t *testing.T) {
	m, _ := build(t, "srcexpr", `
		<state id="s0">
			<invoke srcexpr="childExpr()"/>
		</state>
	`, nil)
	SelectInvokeStrategies(m)
	inv := m.States["s0"].Invokes[0]
	if inv.Strategy != model.StaticHybrid {
		t.Errorf("Strategy = %v, want StaticHybrid (srcexpr-only invokes always classify Static-Hybrid)", inv.Strategy)
	}
}

func TestUnsupportedInvokeTypeFallsBack(t *testing.T) {
	m, _ := build(t, "unsupported", `
		<state id="s0">
			<invoke type="http://example.com/other" src="child.scxml"/>
		</state>
	`, nil)
	SelectInvokeStrategies(m)
	inv := m.States["s0"].Invokes[0]
	if inv.Strategy != model.InterpreterFallback {
		t.Errorf("Strategy = %v, want InterpreterFallback", inv.Strategy)
	}
}

func TestMachineFallbackOnMissingInitial(t *testing.T) {
	m, _ := build(t, "missing", `<state id="s0"/>`, nil)
	m.Initial = "does-not-exist"
	m.InitialLeaf = "does-not-exist"
	SelectMachineStrategy(m)
	if !m.MachineNeedsInterpreterFallback {
		t.Errorf("expected machine-level fallback on unresolved initial")
	}
}

func TestMachineFallbackOnScopedDuplicateVars(t *testing.T) {
	m, _ := build(t, "dupvar", `
		<state id="s0">
			<datamodel>
				<data id="x" expr="1"/>
				<data id="x" expr="2"/>
			</datamodel>
		</state>
	`, nil)
	SelectMachineStrategy(m)
	if !m.MachineNeedsInterpreterFallback {
		t.Errorf("expected machine-level fallback on duplicate scoped variable names")
	}
}
