// Package model defines the in-memory representation of a normalized SCXML
// document: the state forest, transitions, executable content, and the
// derived metadata the later pipeline stages (classifier, normalizer,
// strategy selector, feature flagger, emitter) attach to it.
//
// A Model is grown by explicit phase functions (see internal/normalizer) and
// frozen before being handed to the Emitter. Nothing in this package mutates
// a Model concurrently; state kinds are closed tagged variants, never a
// class hierarchy.
package model

// StateKind is the closed variant tag for a StateNode.
type StateKind int

const (
	Atomic StateKind = iota
	Compound
	Parallel
	Final
	History
)

func (k StateKind) String() string {
	switch k {
	case Atomic:
		return "atomic"
	case Compound:
		return "compound"
	case Parallel:
		return "parallel"
	case Final:
		return "final"
	case History:
		return "history"
	default:
		return "unknown"
	}
}

// HistoryType distinguishes shallow from deep history states.
type HistoryType int

const (
	NoHistory HistoryType = iota
	Shallow
	Deep
)

// CondKind is the closed classification of a transition/guard expression.
type CondKind int

const (
	CondNone CondKind = iota
	CondPureIn
	CondRequiresEngine
)

// TransitionKind distinguishes external from internal (targetless, same
// non-exiting) transitions per SCXML §3.13.
type TransitionKind int

const (
	External TransitionKind = iota
	Internal
)

// DatamodelVarKind is the closed classification of a datamodel variable's
// declared value, used to decide whether it forces the script engine.
type DatamodelVarKind int

const (
	KindInt DatamodelVarKind = iota
	KindString
	KindBool
	KindRuntime
)

// InvokeStrategy is the closed code-generation strategy for one <invoke>.
type InvokeStrategy int

const (
	PureStatic InvokeStrategy = iota
	StaticHybrid
	InterpreterFallback
)

// StateNode is one node of the SCXML state forest.
type StateNode struct {
	ID            string
	Kind          StateKind
	Parent        string // empty for roots
	DocumentOrder int

	Initial         string   // raw, possibly space-separated, attribute value
	InitialChildren []string // resolved after normalization

	Transitions []*Transition
	OnEntry     []ExecutableContent
	OnExit      []ExecutableContent

	Datamodel []*DatamodelVar // local declarations; non-empty flags ScopedDatamodel
	Invokes   []*Invoke
	DoneData  *DoneData // only meaningful on Final

	// InitialTransitionActions runs after the parent's onEntry, before the
	// child's entry, per the <initial> element's executable content.
	InitialTransitionActions []ExecutableContent

	// History-specific.
	HistoryType    HistoryType
	DefaultTarget  string
	DefaultActions []ExecutableContent

	// Set during normalization on a state whose initial points at a
	// history child.
	InitialHistoryID            string
	InitialHistoryDefaultTarget string
	InitialHistoryDefaultActions []ExecutableContent

	Children []string // direct child state IDs, document order
}

// Transition is one <transition> element.
type Transition struct {
	Event        string // raw descriptor; empty = eventless
	Target       string // id or empty = internal/self
	Cond         string
	CondKind     CondKind
	CondNative   string // target-language predicate, populated iff CondKind == CondPureIn
	Kind         TransitionKind
	Actions      []ExecutableContent
	PrefixMatches []string // closure over the final event set

	// HistoryTarget is set when Target names a history state, so the
	// emitter can generate restore-or-default logic at the call site.
	HistoryTarget bool
}

// ExecutableContent is a tagged union over SCXML's executable-content
// elements. Exactly one of the typed fields is non-nil, named by Kind.
type ExecutableContent struct {
	Kind ExecKind

	Raise *RaiseAction
	Send  *Send
	Assign *AssignAction
	If     *IfAction
	Foreach *ForeachAction
	Log     *LogAction
	Script  *ScriptAction
	Cancel  *CancelAction
}

type ExecKind int

const (
	ExecRaise ExecKind = iota
	ExecSend
	ExecAssign
	ExecIf
	ExecForeach
	ExecLog
	ExecScript
	ExecCancel
)

type RaiseAction struct {
	Event string
}

type AssignAction struct {
	Location string
	Expr     string
}

// CondBranch pairs a classified condition with its action list, used for
// both IfAction.If (the <if cond="…"> branch) and ElseifBranches.
type CondBranch struct {
	Cond       string
	CondKind   CondKind
	CondNative string
	Actions    []ExecutableContent
}

type IfAction struct {
	If             CondBranch // the <if cond="…"> branch itself
	ElseifBranches []CondBranch
	ElseActions    []ExecutableContent
}

type ForeachAction struct {
	Array string
	Item  string
	Index string
	Actions []ExecutableContent
}

type LogAction struct {
	Label string
	Expr  string
}

type ScriptAction struct {
	Src     string // raw src attribute value as written, not resolved
	Content string // literal inline source, verbatim
}

type CancelAction struct {
	SendID     string
	SendIDExpr string
}

// Send is the <send> element.
type Send struct {
	Event     string
	EventExpr string
	Target    string
	TargetExpr string
	SendType   string
	Delay      string
	DelayExpr  string
	ID         string
	IDLocation string
	Namelist   string
	Params     []*Param
	Content    string // literal XML content, verbatim
	ContentExpr string
}

// Param is one <param> element, possibly a compile-time-embeddable literal.
type Param struct {
	Name            string
	Expr            string
	Location        string
	IsStaticLiteral bool
	StaticValue     string
}

// Invoke is the <invoke> element.
type Invoke struct {
	Type    string // URI
	Src     string
	SrcExpr string

	ContentLiteral string // inner markup of an inline <content><scxml>, or the raw <content> markup
	ContentExpr    string

	ID         string
	IDLocation string
	AutoForward bool
	Namelist    string
	Params      []*Param
	Finalize    []ExecutableContent

	Strategy InvokeStrategy

	// Populated for PureStatic/StaticHybrid only.
	ChildName             string
	ChildNeedsScriptEngine bool
	ChildDatamodelVars     []string

	// UseSpecificEvent is true iff some transition in the enclosing
	// document matches done.invoke.{ID} exactly.
	UseSpecificEvent bool
}

// DoneData is the <donedata> element attached to a Final state.
type DoneData struct {
	Params  []*Param
	Content string
	ContentExpr string
}

// DatamodelVar is one <data> element.
type DatamodelVar struct {
	ID      string
	Expr    string
	Src     string
	Content string
	Kind    DatamodelVarKind
}

// GlobalScript is a document-root <script>, either inline or src-resolved.
type GlobalScript struct {
	Src     string
	Content string
}

// HistoryInfo is the resolved summary for one history state, recorded on
// Model for the emitter's convenience (mirrors StateNode's own fields).
type HistoryInfo struct {
	Parent         string
	Type           HistoryType
	DefaultTarget  string
	DefaultActions []ExecutableContent
	LeafTarget     string
}

// FeatureFlags are the emitter-facing include flags set by the Feature
// Flagger.
type FeatureFlags struct {
	NeedsScriptEngine     bool
	SchedulerRequired     bool
	UsesInPredicate       bool
	HasParentCommunication bool
	HasChildCommunication  bool
	HasTransitionActions   bool
	ScopedDatamodel        bool

	// EventMetadataFields maps each _event.* field name to whether it is
	// required. All-or-nothing once NeedsScriptEngine is true.
	EventMetadataFields map[string]bool
}

// Diagnostics accumulates non-fatal warnings surfaced alongside a
// successful run (e.g. demoted child-parse failures).
type Diagnostics struct {
	Warnings []string
}

func (d *Diagnostics) Warn(msg string) {
	d.Warnings = append(d.Warnings, msg)
}

// Stats are derived counts computed once at freeze time for the CLI summary
// line and the metadata sidecar.
type Stats struct {
	StateCount      int
	TransitionCount int
	EventCount      int
	NeedsScriptEngine bool
}

// Model is the root of the normalized document. The Strategy Selector and
// Feature Flagger extend it after normalization; it is then frozen and
// handed unchanged to the Emitter Driver.
type Model struct {
	Name     string // derived from the input filename stem, not @name
	Initial  string
	InitialLeaf string

	Binding    string // "early" or "late"
	DatamodelKind string // default "ecmascript"

	Datamodel    []*DatamodelVar
	GlobalScripts []*GlobalScript

	States map[string]*StateNode
	Roots  []string // top-level state IDs, document order

	Events map[string]bool

	HistoryDefaults map[string]string
	HistoryInfo     map[string]*HistoryInfo
	ParallelRegions map[string][]string

	StaticInvokes  []*Invoke
	HybridInvokes  []*Invoke

	Flags FeatureFlags

	MachineNeedsInterpreterFallback bool

	Diagnostics Diagnostics
	Stats       Stats
}

// NewModel returns an empty Model ready for the builder phases.
func NewModel(name string) *Model {
	return &Model{
		Name:            name,
		DatamodelKind:   "ecmascript",
		Binding:         "early",
		States:          make(map[string]*StateNode),
		Events:          make(map[string]bool),
		HistoryDefaults: make(map[string]string),
		HistoryInfo:     make(map[string]*HistoryInfo),
		ParallelRegions: make(map[string][]string),
		Flags: FeatureFlags{
			EventMetadataFields: make(map[string]bool),
		},
	}
}

// AddEvent records an event name into the model's compile-time event set.
// Wildcards (*, .*, _*) are never added to the compile-time event set.
func (m *Model) AddEvent(name string) {
	if name == "" || name == "*" || name == ".*" || name == "_*" {
		return
	}
	m.Events[name] = true
}

// EventMetadataFields is the exhaustive, ordered list of _event.* fields
// the classifier and feature flagger recognize.
var EventMetadataFields = []string{
	"name", "data", "type", "sendid", "origin", "origintype", "invokeid",
}

// Freeze computes Stats from the current model contents. Called once after
// the full normalization/classification/flagging pipeline completes.
func (m *Model) Freeze() {
	m.Stats.StateCount = len(m.States)
	for _, s := range m.States {
		m.Stats.TransitionCount += len(s.Transitions)
	}
	m.Stats.EventCount = len(m.Events)
	m.Stats.NeedsScriptEngine = m.Flags.NeedsScriptEngine
}
