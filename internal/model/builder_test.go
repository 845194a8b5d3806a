package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/comalice/scxml-aot/internal/loader"
)

func build(t *testing.T, name, body string) *Model {
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
	m, err := BuildFromDocument(doc)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

// documentOrder must be injective and respect XML pre-order.
func TestDocumentOrderIsPreOrder(t *testing.T) {
	m := build(t, "order", `
		<state id="s0">
			<state id="s0a"/>
			<state id="s0b"/>
		</state>
		<state id="s1"/>
	`)
	want := map[string]int{"s0": 0, "s0a": 1, "s0b": 2, "s1": 3}
	seen := map[int]bool{}
	for id, order := range want {
		got := m.States[id].DocumentOrder
		if got != order {
			t.Errorf("States[%s].DocumentOrder = %d, want %d", id, got, order)
		}
		if seen[got] {
			t.Errorf("documentOrder %d assigned more than once", got)
		}
		seen[got] = true
	}
}

func TestAtomicVsCompoundKind(t *testing.T) {
	m := build(t, "kind", `
		<state id="leaf"/>
		<state id="parent">
			<state id="child"/>
		</state>
		<parallel id="par">
			<state id="r1"/>
			<state id="r2"/>
		</parallel>
		<final id="fin"/>
	`)
	if m.States["leaf"].Kind != Atomic {
		t.Errorf("leaf kind = %v, want Atomic", m.States["leaf"].Kind)
	}
	if m.States["parent"].Kind != Compound {
		t.Errorf("parent kind = %v, want Compound", m.States["parent"].Kind)
	}
	if m.States["par"].Kind != Parallel {
		t.Errorf("par kind = %v, want Parallel", m.States["par"].Kind)
	}
	if m.States["fin"].Kind != Final {
		t.Errorf("fin kind = %v, want Final", m.States["fin"].Kind)
	}
}

func TestIfElseifElseParsing(t *testing.T) {
	m := build(t, "ifelse", `
		<state id="s0">
			<transition event="go" target="s0">
				<if cond="In('a')">
					<log label="a" expr="'hit-a'"/>
					<elseif cond="In('b')"/>
					<log label="b" expr="'hit-b'"/>
					<else/>
					<log label="c" expr="'hit-c'"/>
				</if>
			</transition>
		</state>
	`)
	tr := m.States["s0"].Transitions[0]
	ifa := tr.Actions[0].If
	if ifa.If.Cond != "In('a')" {
		t.Errorf("If.Cond = %q, want In('a')", ifa.If.Cond)
	}
	if len(ifa.If.Actions) != 1 || ifa.If.Actions[0].Log.Label != "a" {
		t.Errorf("then branch mismatch: %+v", ifa.If.Actions)
	}
	if len(ifa.ElseifBranches) != 1 || ifa.ElseifBranches[0].Cond != "In('b')" {
		t.Errorf("elseif branch mismatch: %+v", ifa.ElseifBranches)
	}
	if len(ifa.ElseActions) != 1 || ifa.ElseActions[0].Log.Label != "c" {
		t.Errorf("else branch mismatch: %+v", ifa.ElseActions)
	}
}

func TestTransitionEventWildcardNotAddedToEvents(t *testing.T) {
	m := build(t, "wild", `
		<state id="s0">
			<transition event="*" target="s0"/>
			<transition event="foo" target="s0"/>
		</state>
	`)
	if m.Events["*"] {
		t.Errorf("wildcard should never be added to events")
	}
	if !m.Events["foo"] {
		t.Errorf("expected foo in events, got %v", m.Events)
	}
}
