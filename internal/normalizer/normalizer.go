// Package normalizer runs a fixed sequence of normalization phases over a
// Model already populated by internal/model's builder: default-initial
// fill, static-invoke child extraction, deep-initial and history
// resolution, parallel-region mapping, transition-action scanning,
// done-event synthesis, invoke-done specificity, child→parent event
// closure, and initial-children validation.
//
// Initial-leaf resolution and shallow/deep history bookkeeping are
// re-purposed here from a live runtime tracker into a one-shot,
// single-threaded, no-shared-state compile-time resolver.
package normalizer

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/comalice/scxml-aot/internal/classifier"
	"github.com/comalice/scxml-aot/internal/loader"
	"github.com/comalice/scxml-aot/internal/model"
	"github.com/comalice/scxml-aot/internal/scxmlerr"
)

const maxChaseHops = 20

// supportedInvokeTypes are the URIs the ECMAScript/SCXML family permits;
// anything else cannot be classified above InterpreterFallback, and is
// never loaded or parsed.
var supportedInvokeTypes = map[string]bool{
	"":      true,
	"scxml": true,
	"http://www.w3.org/TR/scxml/":                     true,
	"http://www.w3.org/TR/scxml/#SCXMLEventProcessor": true,
}

// childCache memoizes parsed static-invoke children by childName so the
// child→parent closure parses each referenced child at most
// once.
type childCache map[string]*model.Model

// Normalize runs all normalization phases in order, mutating m in place.
func Normalize(m *model.Model, doc *loader.Document) error {
	cache := childCache{}

	defaultInitialFill(m)

	if err := extractStaticInvokeChildren(m, doc, cache); err != nil {
		return err
	}

	if err := deepInitialResolution(m, doc); err != nil {
		return err
	}

	if err := historyTargetResolution(m, doc); err != nil {
		return err
	}

	leaf, err := resolveLeaf(m, m.Initial, doc)
	if err != nil {
		return err
	}
	m.InitialLeaf = leaf

	parallelRegionMap(m)
	transitionActionScan(m)
	doneStateSynthesis(m)
	invokeDoneSpecificity(m)

	if err := childParentEventClosure(m, doc, cache); err != nil {
		return err
	}

	if err := initialChildrenValidation(m, doc); err != nil {
		return err
	}

	return nil
}

// defaultInitialFill fills in a default initial for every Compound or
// Parallel state that lacks an explicit one, choosing the lowest
// documentOrder non-history child.
func defaultInitialFill(m *model.Model) {
	for _, s := range m.States {
		if s.Initial != "" {
			continue
		}
		if s.Kind != model.Compound && s.Kind != model.Parallel {
			continue
		}
		var best *model.StateNode
		for _, cid := range s.Children {
			c := m.States[cid]
			if c == nil || c.Kind == model.History {
				continue
			}
			if best == nil || c.DocumentOrder < best.DocumentOrder {
				best = c
			}
		}
		if best != nil {
			s.Initial = best.ID
		}
	}
}

// extractStaticInvokeChildren resolves every invoke's strategy and, for
// PureStatic invokes, its child model: inline
// <invoke><content><scxml>…</scxml></content></invoke> children are
// materialized to a sibling file, and invokes with a literal src="…" are
// resolved against doc.Dir directly — both cases are then loaded and
// parsed the same way, so childParentEventClosure can later find either
// kind of static child in cache by ChildName regardless of how it was
// declared. A child that cannot be loaded or parsed is recorded as a
// warning in m.Diagnostics and its invoke is classified
// InterpreterFallback. An unsupported @type, or an invoke with neither a
// literal child nor a src, is classified without ever touching the
// filesystem.
func extractStaticInvokeChildren(m *model.Model, doc *loader.Document, cache childCache) error {
	anon := 0
	for _, s := range m.States {
		for _, inv := range s.Invokes {
			if !supportedInvokeTypes[inv.Type] {
				inv.Strategy = model.InterpreterFallback
				continue
			}

			switch {
			case inv.ContentLiteral != "":
				if inv.SrcExpr != "" || inv.ContentExpr != "" {
					inv.Strategy = model.StaticHybrid
					continue
				}

				name := inv.ID
				if name == "" {
					name = fmt.Sprintf("child%d", anon)
					anon++
				}
				childName := fmt.Sprintf("%s_%s", m.Name, name)
				childPath := filepath.Join(doc.Dir, childName+".scxml")

				content := wrapAsDocument(inv.ContentLiteral)
				if err := os.WriteFile(childPath, []byte(content), 0o644); err != nil {
					return scxmlerr.Wrap(scxmlerr.EmitterFailure, childPath, inv.ID, err)
				}

				childModel, err := loadCachedChild(childPath, childName, cache)
				if err != nil {
					m.Diagnostics.Warn(fmt.Sprintf("child %q could not be loaded: %v; invoke falls back to the interpreter", childName, err))
					inv.Strategy = model.InterpreterFallback
					continue
				}
				finalizeStaticInvoke(m, inv, childName, childModel)

			case inv.Src != "":
				childName := fmt.Sprintf("%s_%s", m.Name, strings.TrimSuffix(filepath.Base(inv.Src), filepath.Ext(inv.Src)))
				childPath := filepath.Join(doc.Dir, inv.Src)

				childModel, err := loadCachedChild(childPath, childName, cache)
				if err != nil {
					m.Diagnostics.Warn(fmt.Sprintf("child %q could not be loaded: %v; invoke falls back to the interpreter", childName, err))
					inv.Strategy = model.InterpreterFallback
					continue
				}
				finalizeStaticInvoke(m, inv, childName, childModel)

			case inv.SrcExpr != "" || inv.ContentExpr != "":
				// Open question: srcExpr/contentExpr-only invokes are
				// treated as Static-Hybrid uniformly, not escalated to
				// fallback — the target is unknown until runtime, but
				// the invoke mechanism itself is statically known.
				inv.Strategy = model.StaticHybrid

			default:
				// No src, no srcExpr, no inline content: nothing to
				// materialize or classify further.
				inv.Strategy = model.InterpreterFallback
			}
		}
	}
	return nil
}

// loadCachedChild loads and parses the SCXML file at path into a Model,
// keyed by childName in cache so a child referenced more than once (or
// consulted again later by childParentEventClosure) is parsed once.
func loadCachedChild(path, childName string, cache childCache) (*model.Model, error) {
	if cached, ok := cache[childName]; ok {
		return cached, nil
	}
	childDoc, err := loader.Load(path)
	if err != nil {
		return nil, err
	}
	childModel, err := model.BuildFromDocument(childDoc)
	if err != nil {
		return nil, err
	}
	cache[childName] = childModel
	return childModel, nil
}

// finalizeStaticInvoke records a successfully loaded static child on both
// the invoke and the model's StaticInvokes list.
func finalizeStaticInvoke(m *model.Model, inv *model.Invoke, childName string, childModel *model.Model) {
	inv.Strategy = model.PureStatic
	inv.ChildName = childName
	inv.ChildNeedsScriptEngine = quickNeedsScriptEngine(childModel)
	for _, v := range childModel.Datamodel {
		inv.ChildDatamodelVars = append(inv.ChildDatamodelVars, v.ID)
	}
	m.StaticInvokes = append(m.StaticInvokes, inv)
}

// wrapAsDocument re-attaches the SCXML root namespace to an extracted
// inline child's inner markup so the materialized sibling file is itself a
// valid standalone document.
func wrapAsDocument(innerXML string) string {
	return `<scxml xmlns="` + loader.SCXMLNamespace + `" version="1.0">` + innerXML + `</scxml>`
}

// quickNeedsScriptEngine is a pre-normalization heuristic over a freshly
// built (not yet normalized) child model, sufficient for the
// childNeedsScriptEngine summary field: any declared datamodel variable,
// any assign/foreach/script executable content, or any RequiresScriptEngine
// guard.
func quickNeedsScriptEngine(m *model.Model) bool {
	if len(m.Datamodel) > 0 {
		return true
	}
	for _, s := range m.States {
		if len(s.Datamodel) > 0 {
			return true
		}
		if scanActionsNeedEngine(s.OnEntry) || scanActionsNeedEngine(s.OnExit) {
			return true
		}
		for _, t := range s.Transitions {
			if t.Cond != "" && classifier.RequiresScriptEngine(t.Cond) {
				return true
			}
			if scanActionsNeedEngine(t.Actions) {
				return true
			}
		}
	}
	return false
}

func scanActionsNeedEngine(actions []model.ExecutableContent) bool {
	for _, a := range actions {
		switch a.Kind {
		case model.ExecAssign, model.ExecForeach, model.ExecScript:
			return true
		case model.ExecIf:
			if scanActionsNeedEngine(a.If.If.Actions) || scanActionsNeedEngine(a.If.ElseActions) {
				return true
			}
			for _, b := range a.If.ElseifBranches {
				if scanActionsNeedEngine(b.Actions) {
					return true
				}
			}
		}
	}
	return false
}

// deepInitialResolution handles the case where the document-level initial
// is space-separated and every token is a known state: it is preserved as
// a parallel-initial override set, each token overriding its own immediate
// parent's initial attribute.
func deepInitialResolution(m *model.Model, doc *loader.Document) error {
	tokens := strings.Fields(m.Initial)
	if len(tokens) > 1 {
		allExist := true
		for _, t := range tokens {
			if _, ok := m.States[t]; !ok {
				allExist = false
				break
			}
		}
		if allExist {
			for _, t := range tokens {
				s := m.States[t]
				if s.Parent == "" {
					continue
				}
				parent := m.States[s.Parent]
				parent.Initial = t
			}
		}
	}
	// The chase itself (for m.InitialLeaf) happens via resolveLeaf, called
	// by Normalize after history resolution re-derives any initial that
	// pointed at a history pseudo-state.
	return nil
}

// resolveLeaf chases `initial` links from id until an Atomic/Final/History/
// Parallel node is reached, bounded by maxChaseHops (cycle guard).
func resolveLeaf(m *model.Model, id string, doc *loader.Document) (string, error) {
	cur := strings.Fields(id)
	if len(cur) == 0 {
		return id, nil
	}
	start := cur[0]
	seen := map[string]bool{}
	for hops := 0; hops < maxChaseHops; hops++ {
		s := m.States[start]
		if s == nil {
			return start, nil // validated later by initialChildrenValidation
		}
		if seen[start] {
			return "", scxmlerr.New(scxmlerr.InitialCycle, doc.Path, start)
		}
		seen[start] = true
		switch s.Kind {
		case model.Atomic, model.Final, model.History, model.Parallel:
			return start, nil
		case model.Compound:
			tokens := strings.Fields(s.Initial)
			if len(tokens) == 0 {
				return start, nil
			}
			start = tokens[0]
		}
	}
	return "", scxmlerr.New(scxmlerr.InitialCycle, doc.Path, start)
}

// historyTargetResolution resolves each history state's defaultTarget to
// its leaf; states whose initial points at a history pseudo-state are
// annotated, with initial replaced by the resolved leaf so entry-chain
// computation still works when history is empty.
func historyTargetResolution(m *model.Model, doc *loader.Document) error {
	for id, s := range m.States {
		if s.Kind != model.History {
			continue
		}
		leaf, err := resolveLeaf(m, s.DefaultTarget, doc)
		if err != nil {
			return scxmlerr.New(scxmlerr.HistoryCycle, doc.Path, id)
		}
		m.HistoryDefaults[id] = leaf
		m.HistoryInfo[id] = &model.HistoryInfo{
			Parent:         s.Parent,
			Type:           s.HistoryType,
			DefaultTarget:  s.DefaultTarget,
			DefaultActions: s.DefaultActions,
			LeafTarget:     leaf,
		}
	}

	for _, s := range m.States {
		tokens := strings.Fields(s.Initial)
		if len(tokens) != 1 {
			continue
		}
		h, ok := m.States[tokens[0]]
		if !ok || h.Kind != model.History {
			continue
		}
		s.InitialHistoryID = h.ID
		s.InitialHistoryDefaultTarget = m.HistoryDefaults[h.ID]
		s.InitialHistoryDefaultActions = h.DefaultActions
		s.Initial = m.HistoryDefaults[h.ID]
	}

	// Annotate transitions targeting a history state.
	for _, s := range m.States {
		for _, t := range s.Transitions {
			if t.Target == "" {
				continue
			}
			if target, ok := m.States[t.Target]; ok && target.Kind == model.History {
				t.HistoryTarget = true
			}
		}
	}
	return nil
}

func parallelRegionMap(m *model.Model) {
	for id, s := range m.States {
		if s.Kind != model.Parallel {
			continue
		}
		regions := append([]string(nil), s.Children...)
		sort.Slice(regions, func(i, j int) bool {
			return m.States[regions[i]].DocumentOrder < m.States[regions[j]].DocumentOrder
		})
		m.ParallelRegions[id] = regions
	}
}

func transitionActionScan(m *model.Model) {
	for _, s := range m.States {
		for _, t := range s.Transitions {
			if len(t.Actions) > 0 {
				m.Flags.HasTransitionActions = true
				return
			}
		}
	}
}

// doneStateSynthesis adds done.state.{id} to the event set for every
// non-parallel compound state with at least one Final child.
func doneStateSynthesis(m *model.Model) {
	for id, s := range m.States {
		if s.Kind != model.Compound {
			continue
		}
		for _, cid := range s.Children {
			if c := m.States[cid]; c != nil && c.Kind == model.Final {
				m.AddEvent("done.state." + id)
				break
			}
		}
	}
}

// invokeDoneSpecificity flags an invoke's UseSpecificEvent when some
// transition in the document matches done.invoke.{id} exactly; otherwise
// the generic done.invoke token is used at emission time.
func invokeDoneSpecificity(m *model.Model) {
	specific := map[string]bool{}
	for _, s := range m.States {
		for _, t := range s.Transitions {
			for _, e := range strings.Fields(t.Event) {
				if strings.HasPrefix(e, "done.invoke.") {
					specific[strings.TrimPrefix(e, "done.invoke.")] = true
				}
			}
		}
	}
	for _, s := range m.States {
		for _, inv := range s.Invokes {
			if inv.ID != "" && specific[inv.ID] {
				inv.UseSpecificEvent = true
			}
		}
	}
}

// childParentEventClosure scans every static child (memoized by childName)
// for <send target="#_parent" event="E"/>, contributing E to the parent's
// event set. Children are parsed by extractStaticInvokeChildren, which
// demotes a parse failure to a warning, so a broken child never blocks
// generation of an otherwise-correct parent.
func childParentEventClosure(m *model.Model, doc *loader.Document, cache childCache) error {
	for _, s := range m.States {
		for _, inv := range s.Invokes {
			if inv.Strategy != model.PureStatic || inv.ChildName == "" {
				continue
			}
			child, ok := cache[inv.ChildName]
			if !ok {
				m.Diagnostics.Warn(fmt.Sprintf("child %q referenced but not cached; skipping event closure", inv.ChildName))
				continue
			}
			for _, e := range findParentSends(child) {
				m.AddEvent(e)
			}
		}
	}
	return nil
}

func findParentSends(m *model.Model) []string {
	var events []string
	var scan func(actions []model.ExecutableContent)
	scan = func(actions []model.ExecutableContent) {
		for _, a := range actions {
			switch a.Kind {
			case model.ExecSend:
				if a.Send.Target == "#_parent" && a.Send.Event != "" {
					events = append(events, a.Send.Event)
				}
			case model.ExecIf:
				scan(a.If.If.Actions)
				scan(a.If.ElseActions)
				for _, b := range a.If.ElseifBranches {
					scan(b.Actions)
				}
			case model.ExecForeach:
				scan(a.Foreach.Actions)
			}
		}
	}
	for _, s := range m.States {
		scan(s.OnEntry)
		scan(s.OnExit)
		for _, t := range s.Transitions {
			scan(t.Actions)
		}
	}
	return events
}

// initialChildrenValidation splits each state's
// initial by whitespace and verifies every referenced ID exists.
func initialChildrenValidation(m *model.Model, doc *loader.Document) error {
	for id, s := range m.States {
		tokens := strings.Fields(s.Initial)
		for _, t := range tokens {
			if _, ok := m.States[t]; !ok {
				return scxmlerr.New(scxmlerr.InvalidInitialTarget, doc.Path, id+" -> "+t)
			}
		}
		s.InitialChildren = tokens
	}

	for _, t := range strings.Fields(m.Initial) {
		if _, ok := m.States[t]; !ok {
			return scxmlerr.New(scxmlerr.InvalidInitialTarget, doc.Path, t)
		}
	}
	return nil
}
