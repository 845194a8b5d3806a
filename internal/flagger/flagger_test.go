package flagger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/comalice/scxml-aot/internal/loader"
	"github.com/comalice/scxml-aot/internal/model"
	"github.com/comalice/scxml-aot/internal/normalizer"
)

func buildAndFlag(t *testing.T, name, body string) *model.Model {
	t.Helper()
	dir := t.TempDir()
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
	Flag(m)
	return m
}

// A pure In() guard does not by itself set needsScriptEngine.
func TestPureInGuardDoesNotRequireEngine(t *testing.T) {
	m := buildAndFlag(t, "purein", `
		<state id="s0">
			<transition event="go" cond="In('s0') &amp;&amp; In('s0')" target="s0"/>
		</state>
	`)
	tr := m.States["s0"].Transitions[0]
	if tr.CondKind != model.CondPureIn {
		t.Errorf("CondKind = %v, want CondPureIn", tr.CondKind)
	}
	if tr.CondNative == "" {
		t.Errorf("CondNative should be populated for a PureIn condition")
	}
	if m.Flags.NeedsScriptEngine {
		t.Errorf("NeedsScriptEngine should not be set by a pure In() guard alone")
	}
	if !m.Flags.UsesInPredicate {
		t.Errorf("UsesInPredicate should be set")
	}
}

// needsScriptEngine must be true whenever a datamodel variable exists.
func TestNeedsScriptEngineOnDatamodelVar(t *testing.T) {
	m := buildAndFlag(t, "dm", `
		<datamodel>
			<data id="x" expr="1"/>
		</datamodel>
		<state id="s0"/>
	`)
	if !m.Flags.NeedsScriptEngine {
		t.Errorf("NeedsScriptEngine should be set when a datamodel variable exists")
	}
	if !m.Events["error.execution"] {
		t.Errorf("error.execution should be injected once the script engine is required")
	}
	for _, f := range model.EventMetadataFields {
		if !m.Flags.EventMetadataFields[f] {
			t.Errorf("event metadata field %q should be all-or-nothing required", f)
		}
	}
}

// <assign> always forces the script engine.
func TestNeedsScriptEngineOnAssign(t *testing.T) {
	m := buildAndFlag(t, "assign", `
		<state id="s0">
			<onentry>
				<assign location="x" expr="1"/>
			</onentry>
		</state>
	`)
	if !m.Flags.NeedsScriptEngine {
		t.Errorf("NeedsScriptEngine should be set when <assign> exists")
	}
}

// HasChildCommunication must come from a <send target="#_child"> somewhere
// in the document, not from an invoke's default @type or @autoforward.
func TestHasChildCommunicationRequiresChildSend(t *testing.T) {
	noChildSend := buildAndFlag(t, "nochildsend", `
		<state id="s0">
			<invoke autoforward="true">
				<content>
					<scxml xmlns="http://www.w3.org/2005/07/scxml" version="1.0" initial="c0">
						<state id="c0"/>
					</scxml>
				</content>
			</invoke>
		</state>
	`)
	if noChildSend.Flags.HasChildCommunication {
		t.Errorf("HasChildCommunication should not be set by @type/@autoforward alone")
	}

	withChildSend := buildAndFlag(t, "childsend", `
		<state id="s0">
			<onentry>
				<send target="#_child" event="ping"/>
			</onentry>
		</state>
	`)
	if !withChildSend.Flags.HasChildCommunication {
		t.Errorf("HasChildCommunication should be set by <send target=\"#_child\">")
	}
}

// HasParentCommunication must come from a <send target="#_parent">
// somewhere in the document, not merely from a non-empty <finalize>.
func TestHasParentCommunicationRequiresParentSend(t *testing.T) {
	m := buildAndFlag(t, "finalizenosend", `
		<state id="s0">
			<invoke>
				<content>
					<scxml xmlns="http://www.w3.org/2005/07/scxml" version="1.0" initial="c0">
						<state id="c0"/>
					</scxml>
				</content>
				<finalize>
					<assign location="x" expr="1"/>
				</finalize>
			</invoke>
		</state>
	`)
	if m.Flags.HasParentCommunication {
		t.Errorf("HasParentCommunication should not be set by a send-less <finalize>")
	}
}

// error.execution must be injected for a plain <send>, even when nothing
// else requires the script engine.
func TestErrorExecutionInjectedForPlainSend(t *testing.T) {
	m := buildAndFlag(t, "plainsend", `
		<state id="s0">
			<onentry>
				<send event="ping"/>
			</onentry>
		</state>
	`)
	if m.Flags.NeedsScriptEngine {
		t.Errorf("this document should not need the script engine")
	}
	if !m.Events["error.execution"] {
		t.Errorf("error.execution should be injected whenever a <send> exists")
	}
}

// error.execution must be injected for a Final state's <donedata>, even
// when nothing else requires the script engine.
func TestErrorExecutionInjectedForDoneData(t *testing.T) {
	m := buildAndFlag(t, "donedata", `
		<state id="s0" initial="a">
			<state id="a">
				<transition event="go" target="f"/>
			</state>
			<final id="f">
				<donedata>
					<param name="result" expr="'ok'"/>
				</donedata>
			</final>
		</state>
	`)
	if m.Flags.NeedsScriptEngine {
		t.Errorf("this document should not need the script engine")
	}
	if !m.Events["error.execution"] {
		t.Errorf("error.execution should be injected whenever a Final state has <donedata>")
	}
}
