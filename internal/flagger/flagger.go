// Package flagger implements the Feature Flagger: a single
// recursive scan over the normalized Model that sets the include flags
// controlling which runtime helpers the emitter must bundle.
//
// The all-or-nothing event-metadata rule and the datamodel variable-type
// inference folded into DatamodelVar.Kind both trace back to a reference
// feature-analysis pass over the same model shape.
package flagger

import (
	"strings"

	"github.com/comalice/scxml-aot/internal/classifier"
	"github.com/comalice/scxml-aot/internal/model"
)

// Flag runs the full scan, setting m.Flags and performing the
// error.execution / Wildcard event injections.
func Flag(m *model.Model) {
	f := &m.Flags
	f.EventMetadataFields = make(map[string]bool)

	hasWildcard := false
	hasSend := false
	hasDoneData := false

	for _, v := range m.Datamodel {
		flagDatamodelVar(f, v)
	}

	for _, s := range m.States {
		for _, v := range s.Datamodel {
			flagDatamodelVar(f, v)
			f.ScopedDatamodel = true
		}

		if hasSendAction(s.OnEntry) || hasSendAction(s.OnExit) {
			hasSend = true
		}
		scanActions(f, s.OnEntry)
		scanActions(f, s.OnExit)

		for _, t := range s.Transitions {
			for _, e := range strings.Fields(t.Event) {
				if e == "*" || e == ".*" || e == "_*" || strings.HasSuffix(e, ".*") {
					hasWildcard = true
				}
			}
			if t.Cond != "" {
				if classifier.IsPureInPredicate(t.Cond) {
					t.CondKind = model.CondPureIn
					t.CondNative = nativeInPredicate(t.Cond)
					f.UsesInPredicate = true
				} else {
					t.CondKind = model.CondRequiresEngine
					f.NeedsScriptEngine = true
				}
			}
			if hasSendAction(t.Actions) {
				hasSend = true
			}
			scanActions(f, t.Actions)
		}

		for _, inv := range s.Invokes {
			if inv.Namelist != "" {
				f.NeedsScriptEngine = true
			}
			for _, p := range inv.Params {
				flagParam(f, p)
			}
			if len(inv.Finalize) > 0 {
				if hasSendAction(inv.Finalize) {
					hasSend = true
				}
				scanActions(f, inv.Finalize)
			}
		}

		if s.DoneData != nil {
			hasDoneData = true
			for _, p := range s.DoneData.Params {
				flagParam(f, p)
			}
			if s.DoneData.ContentExpr != "" {
				f.NeedsScriptEngine = true
			}
		}
	}

	if hasWildcard {
		m.AddEvent("Wildcard")
	}

	// All-or-nothing event-metadata injection: once the script
	// engine is required, every _event.* field is flagged required.
	if f.NeedsScriptEngine {
		for _, field := range model.EventMetadataFields {
			f.EventMetadataFields[field] = true
		}
	}

	// error.execution is injected whenever the script engine is required,
	// whenever any <send> exists (a send can fail at runtime even with no
	// dynamic expressions), or whenever any Final state carries
	// <donedata> (its param evaluation can fail the same way).
	if f.NeedsScriptEngine || hasSend || hasDoneData {
		m.AddEvent("error.execution")
	}
}

// hasSendAction reports whether any <send> appears among actions, recursing
// into <if>/<foreach> bodies the same way scanActions does.
func hasSendAction(actions []model.ExecutableContent) bool {
	for i := range actions {
		a := &actions[i]
		switch a.Kind {
		case model.ExecSend:
			return true
		case model.ExecForeach:
			if hasSendAction(a.Foreach.Actions) {
				return true
			}
		case model.ExecIf:
			if hasSendAction(a.If.If.Actions) || hasSendAction(a.If.ElseActions) {
				return true
			}
			for _, b := range a.If.ElseifBranches {
				if hasSendAction(b.Actions) {
					return true
				}
			}
		}
	}
	return false
}

func flagDatamodelVar(f *model.FeatureFlags, v *model.DatamodelVar) {
	f.NeedsScriptEngine = true
	if v.Kind == model.KindRuntime {
		f.NeedsScriptEngine = true
	}
}

func flagParam(f *model.FeatureFlags, p *model.Param) {
	if p.Expr != "" && !classifier.IsStaticStringLiteral(p.Expr) {
		f.NeedsScriptEngine = true
	}
}

func scanActions(f *model.FeatureFlags, actions []model.ExecutableContent) {
	for i := range actions {
		a := &actions[i]
		switch a.Kind {
		case model.ExecAssign, model.ExecForeach, model.ExecScript:
			f.NeedsScriptEngine = true
			if a.Kind == model.ExecForeach {
				scanActions(f, a.Foreach.Actions)
			}
		case model.ExecSend:
			flagSend(f, a.Send)
		case model.ExecCancel:
			f.SchedulerRequired = true
		case model.ExecIf:
			classifyBranchCond(f, &a.If.If)
			scanActions(f, a.If.If.Actions)
			scanActions(f, a.If.ElseActions)
			for bi := range a.If.ElseifBranches {
				classifyBranchCond(f, &a.If.ElseifBranches[bi])
				scanActions(f, a.If.ElseifBranches[bi].Actions)
			}
		}
		detectEventMetadata(f, actionExprs(a)...)
	}
}

func classifyBranchCond(f *model.FeatureFlags, b *model.CondBranch) {
	if b.Cond == "" {
		return
	}
	if classifier.IsPureInPredicate(b.Cond) {
		b.CondKind = model.CondPureIn
		b.CondNative = nativeInPredicate(b.Cond)
		f.UsesInPredicate = true
	} else {
		b.CondKind = model.CondRequiresEngine
		f.NeedsScriptEngine = true
	}
}

func flagSend(f *model.FeatureFlags, s *model.Send) {
	if s.Delay != "" || s.DelayExpr != "" {
		f.SchedulerRequired = true
	}
	if s.EventExpr != "" || s.TargetExpr != "" || s.DelayExpr != "" {
		f.NeedsScriptEngine = true
	}
	if s.Namelist != "" {
		f.NeedsScriptEngine = true
	}
	if s.ContentExpr != "" {
		f.NeedsScriptEngine = true
	}
	for _, p := range s.Params {
		flagParam(f, p)
	}
	switch s.Target {
	case "#_parent":
		f.HasParentCommunication = true
	case "#_child":
		f.HasChildCommunication = true
	}
}

func actionExprs(a *model.ExecutableContent) []string {
	switch a.Kind {
	case model.ExecAssign:
		return []string{a.Assign.Expr}
	case model.ExecLog:
		return []string{a.Log.Expr}
	case model.ExecSend:
		return []string{a.Send.EventExpr, a.Send.TargetExpr, a.Send.DelayExpr, a.Send.ContentExpr}
	}
	return nil
}

func detectEventMetadata(f *model.FeatureFlags, exprs ...string) {
	for _, e := range exprs {
		if e == "" {
			continue
		}
		if strings.Contains(e, "_event.") {
			f.NeedsScriptEngine = true
		}
	}
}

// nativeInPredicate lowers a PureInPredicate guard to a target-language
// boolean expression over an `isInState(id)` primitive the renderer/runtime
// provides, preserving && / || / parens structurally.
func nativeInPredicate(cond string) string {
	e := strings.NewReplacer("&amp;&amp;", "&&", "&amp;|", "||").Replace(cond)
	e = strings.ReplaceAll(e, "||", "__OR__")
	e = strings.ReplaceAll(e, "&&", "__AND__")
	var sb strings.Builder
	i := 0
	for i < len(e) {
		switch {
		case strings.HasPrefix(e[i:], "__AND__"):
			sb.WriteString(" && ")
			i += len("__AND__")
		case strings.HasPrefix(e[i:], "__OR__"):
			sb.WriteString(" || ")
			i += len("__OR__")
		case strings.HasPrefix(e[i:], "In("):
			end := strings.Index(e[i:], ")")
			atom := e[i : i+end+1]
			id := atom[4 : len(atom)-2] // strip `In('` and `')`
			sb.WriteString("isInState(\"" + id + "\")")
			i += end + 1
		default:
			sb.WriteByte(e[i])
			i++
		}
	}
	return sb.String()
}
