// Package strategy implements the Strategy Selector's roll-up: it collects
// the per-invoke classification into {PureStatic, StaticHybrid,
// InterpreterFallback} that internal/normalizer assigned, and makes the
// whole-machine classification into Static or Interpreter-Wrapper.
//
// internal/normalizer already assigns every invoke's Strategy (it has to
// load or extract a child file, or determine none exists, to know
// PureStatic from StaticHybrid from InterpreterFallback — work that must
// happen before the child→parent event closure, so it cannot wait for this
// package). This package only rolls those per-invoke outcomes up into the
// whole-machine decision.
package strategy

import (
	"github.com/comalice/scxml-aot/internal/model"
)

// SelectInvokeStrategies collects each invoke's already-assigned Strategy
// (see internal/normalizer) into m.HybridInvokes — m.StaticInvokes is
// populated as each static child is resolved during normalization — and
// injects the done.invoke/cancel.invoke events implied by any invoke's
// mere presence.
func SelectInvokeStrategies(m *model.Model) {
	anyInvoke := false
	for _, s := range m.States {
		for _, inv := range s.Invokes {
			anyInvoke = true
			if inv.Strategy == model.StaticHybrid {
				m.HybridInvokes = append(m.HybridInvokes, inv)
			}
		}
	}
	// Any invoke, whatever its strategy, implies the runtime must be able
	// to react to its completion/cancellation.
	if anyInvoke {
		m.AddEvent("done.invoke")
		m.AddEvent("cancel.invoke")
	}
}

// SelectMachineStrategy decides whether the whole machine must fall back to
// the Interpreter-Wrapper emission path: missing/unresolved
// initial, or duplicate variable names within one datamodel scope. Parallel,
// history, hybrid invokes, and _event access alone never force fallback.
func SelectMachineStrategy(m *model.Model) {
	if m.InitialLeaf == "" {
		m.MachineNeedsInterpreterFallback = true
		return
	}
	if _, ok := m.States[m.InitialLeaf]; !ok {
		m.MachineNeedsInterpreterFallback = true
		return
	}

	if hasScopedDuplicateVars(m) {
		m.Flags.ScopedDatamodel = true
		m.MachineNeedsInterpreterFallback = true
		return
	}
}

func hasScopedDuplicateVars(m *model.Model) bool {
	if dup(m.Datamodel) {
		return true
	}
	for _, s := range m.States {
		if dup(s.Datamodel) {
			return true
		}
	}
	return false
}

func dup(vars []*model.DatamodelVar) bool {
	seen := map[string]bool{}
	for _, v := range vars {
		if seen[v.ID] {
			return true
		}
		seen[v.ID] = true
	}
	return false
}
