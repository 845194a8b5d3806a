package model

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/comalice/scxml-aot/internal/loader"
	"github.com/comalice/scxml-aot/internal/scxmlerr"
)

// docCounter assigns documentOrder in a single pre-order walk, never
// revised afterward.
type docCounter struct{ n int }

func (c *docCounter) next() int {
	v := c.n
	c.n++
	return v
}

// BuildFromDocument performs the first three build phases (datamodel capture,
// global-script capture, state tree build) over a namespace-checked
// Document, producing an unnormalized Model. Later normalization phases
// (internal/normalizer) complete the model in place.
func BuildFromDocument(doc *loader.Document) (*Model, error) {
	stem := strings.TrimSuffix(filepath.Base(doc.Path), filepath.Ext(doc.Path))
	m := NewModel(stem)

	root := doc.Root
	m.Initial = root.AttrOr("initial", "")
	m.Binding = root.AttrOr("binding", "early")
	m.DatamodelKind = root.AttrOr("datamodel", "ecmascript")

	// Datamodel capture: only direct <datamodel> children of root.
	for _, dm := range root.ChildrenNamed("datamodel") {
		for _, data := range dm.ChildrenNamed("data") {
			v := &DatamodelVar{
				ID:      data.AttrOr("id", ""),
				Expr:    data.AttrOr("expr", ""),
				Src:     data.AttrOr("src", ""),
			}
			if len(data.Children) > 0 {
				v.Content = data.Content // canonical serialized XML, verbatim
			} else {
				v.Content = data.Text()
			}
			v.Kind = classifyVarKind(v)
			m.Datamodel = append(m.Datamodel, v)
		}
	}

	// Global-script capture.
	for _, sc := range root.ChildrenNamed("script") {
		gs := &GlobalScript{}
		if src, ok := sc.Attr("src"); ok && src != "" {
			content, resolved, err := loader.ResolveScript(doc.Dir, src)
			if err != nil {
				return nil, err
			}
			gs.Src = resolved
			gs.Content = content
		} else {
			gs.Content = sc.Text()
		}
		m.GlobalScripts = append(m.GlobalScripts, gs)
	}

	// State tree build, recursive pre-order.
	counter := &docCounter{}
	for _, child := range root.Children {
		if !isStateElement(child.XMLName.Local) {
			continue
		}
		id, err := buildState(m, child, "", counter, doc)
		if err != nil {
			return nil, err
		}
		m.Roots = append(m.Roots, id)
	}

	return m, nil
}

func isStateElement(name string) bool {
	switch name {
	case "state", "parallel", "final", "history":
		return true
	}
	return false
}

func classifyVarKind(v *DatamodelVar) DatamodelVarKind {
	if v.Src != "" || v.Content != "" && len(v.Content) > 0 && strings.ContainsAny(v.Content, "<{") {
		return KindRuntime
	}
	expr := strings.TrimSpace(v.Expr)
	if expr == "" {
		expr = strings.TrimSpace(v.Content)
	}
	switch {
	case expr == "":
		return KindRuntime
	case expr == "true" || expr == "false":
		return KindBool
	default:
		if _, err := strconv.ParseInt(expr, 10, 64); err == nil {
			return KindInt
		}
		if isStaticQuotedLiteral(expr) {
			return KindString
		}
		return KindRuntime
	}
}

func isStaticQuotedLiteral(s string) bool {
	if len(s) < 2 {
		return false
	}
	q := s[0]
	if (q != '\'' && q != '"') || s[len(s)-1] != q {
		return false
	}
	inner := s[1 : len(s)-1]
	return !strings.ContainsAny(inner, "\\") && !strings.Contains(inner, string(q))
}

// buildState constructs one StateNode (and recursively its children),
// returning its id.
func buildState(m *Model, n loader.Node, parent string, counter *docCounter, doc *loader.Document) (string, error) {
	id := n.AttrOr("id", "")
	if id == "" {
		id = "_anon" + strconv.Itoa(counter.n)
	}

	s := &StateNode{
		ID:            id,
		Parent:        parent,
		DocumentOrder: counter.next(),
	}

	switch n.XMLName.Local {
	case "state":
		s.Kind = Atomic // corrected to Compound below if it has state children
	case "parallel":
		s.Kind = Parallel
	case "final":
		s.Kind = Final
	case "history":
		s.Kind = History
		switch n.AttrOr("type", "shallow") {
		case "deep":
			s.HistoryType = Deep
		default:
			s.HistoryType = Shallow
		}
	}

	s.Initial = n.AttrOr("initial", "")

	if oe, ok := n.Child("onentry"); ok {
		s.OnEntry = parseExecContent(oe.Children)
	}
	if ox, ok := n.Child("onexit"); ok {
		s.OnExit = parseExecContent(ox.Children)
	}

	for _, t := range n.ChildrenNamed("transition") {
		tr := &Transition{
			Target: t.AttrOr("target", ""),
			Cond:   t.AttrOr("cond", ""),
		}
		if t.AttrOr("type", "external") == "internal" {
			tr.Kind = Internal
		}
		events := strings.Fields(t.AttrOr("event", ""))
		if len(events) == 0 {
			tr.Event = ""
		} else {
			tr.Event = strings.Join(events, " ")
		}
		for _, e := range events {
			if isWildcardEvent(e) {
				continue
			}
			m.AddEvent(e)
		}
		tr.Actions = parseExecContent(t.Children)
		s.Transitions = append(s.Transitions, tr)
	}

	if hTrans, ok := n.Child("transition"); ok && s.Kind == History {
		s.DefaultTarget = hTrans.AttrOr("target", "")
		s.DefaultActions = parseExecContent(hTrans.Children)
	}

	if init, ok := n.Child("initial"); ok {
		if tr, ok := init.Child("transition"); ok {
			s.Initial = tr.AttrOr("target", "")
			s.InitialTransitionActions = parseExecContent(tr.Children)
		}
	}

	for _, dm := range n.ChildrenNamed("datamodel") {
		for _, data := range dm.ChildrenNamed("data") {
			v := &DatamodelVar{
				ID:   data.AttrOr("id", ""),
				Expr: data.AttrOr("expr", ""),
				Src:  data.AttrOr("src", ""),
			}
			if len(data.Children) > 0 {
				v.Content = data.Content
			} else {
				v.Content = data.Text()
			}
			v.Kind = classifyVarKind(v)
			s.Datamodel = append(s.Datamodel, v)
		}
	}

	for _, inv := range n.ChildrenNamed("invoke") {
		iv, err := buildInvoke(inv)
		if err != nil {
			return "", err
		}
		s.Invokes = append(s.Invokes, iv)
	}

	if s.Kind == Final {
		if dd, ok := n.Child("donedata"); ok {
			s.DoneData = buildDoneData(dd)
		}
	}

	for _, child := range n.Children {
		if !isStateElement(child.XMLName.Local) {
			continue
		}
		childID, err := buildState(m, child, id, counter, doc)
		if err != nil {
			return "", err
		}
		s.Children = append(s.Children, childID)
	}

	if n.XMLName.Local == "state" && len(s.Children) > 0 {
		s.Kind = Compound
	}

	if _, exists := m.States[id]; exists {
		return "", scxmlerr.New(scxmlerr.DocumentMalformed, doc.Path, id)
	}
	m.States[id] = s
	return id, nil
}

func isWildcardEvent(e string) bool {
	return e == "*" || e == ".*" || e == "_*" || strings.HasSuffix(e, ".*")
}

func buildInvoke(n loader.Node) (*Invoke, error) {
	iv := &Invoke{
		Type:       n.AttrOr("type", "http://www.w3.org/TR/scxml/"),
		Src:        n.AttrOr("src", ""),
		SrcExpr:    n.AttrOr("srcexpr", ""),
		ID:         n.AttrOr("id", ""),
		IDLocation: n.AttrOr("idlocation", ""),
		Namelist:   n.AttrOr("namelist", ""),
	}
	iv.AutoForward = n.AttrOr("autoforward", "false") == "true"

	if content, ok := n.Child("content"); ok {
		if expr, ok := content.Attr("expr"); ok {
			iv.ContentExpr = expr
		} else if scxmlChild, ok := content.Child("scxml"); ok {
			iv.ContentLiteral = reserializeInline(scxmlChild)
		} else {
			iv.ContentLiteral = content.Content
		}
	}

	for _, p := range n.ChildrenNamed("param") {
		iv.Params = append(iv.Params, buildParam(p))
	}

	if fin, ok := n.Child("finalize"); ok {
		iv.Finalize = parseExecContent(fin.Children)
	}

	return iv, nil
}

// reserializeInline captures the literal inner markup of an inline
// <content><scxml>…</scxml></content> child so it can be written out
// verbatim as an extracted sibling file during normalization.
func reserializeInline(n loader.Node) string {
	return n.Content
}

func buildParam(n loader.Node) *Param {
	p := &Param{
		Name:     n.AttrOr("name", ""),
		Expr:     n.AttrOr("expr", ""),
		Location: n.AttrOr("location", ""),
	}
	if isStaticQuotedLiteral(strings.TrimSpace(p.Expr)) {
		p.IsStaticLiteral = true
		p.StaticValue = strings.Trim(strings.TrimSpace(p.Expr), `'"`)
	}
	return p
}

func buildDoneData(n loader.Node) *DoneData {
	dd := &DoneData{}
	if content, ok := n.Child("content"); ok {
		if expr, ok := content.Attr("expr"); ok {
			dd.ContentExpr = expr
		} else {
			dd.Content = content.Content
		}
	}
	for _, p := range n.ChildrenNamed("param") {
		dd.Params = append(dd.Params, buildParam(p))
	}
	return dd
}

// parseExecContent walks a sibling run of executable-content elements
// (children of onentry/onexit/transition/if/elseif/else/foreach/finalize),
// handling <if>/<elseif>/<else> sequencing explicitly since they are flat
// siblings in the XML rather than nested.
func parseExecContent(nodes []loader.Node) []ExecutableContent {
	var out []ExecutableContent
	for i := 0; i < len(nodes); i++ {
		n := nodes[i]
		switch n.XMLName.Local {
		case "raise":
			out = append(out, ExecutableContent{Kind: ExecRaise, Raise: &RaiseAction{Event: n.AttrOr("event", "")}})
		case "send":
			out = append(out, ExecutableContent{Kind: ExecSend, Send: buildSend(n)})
		case "assign":
			out = append(out, ExecutableContent{Kind: ExecAssign, Assign: &AssignAction{
				Location: n.AttrOr("location", ""),
				Expr:     n.AttrOr("expr", ""),
			}})
		case "if":
			ifa, consumed := buildIf(nodes[i:])
			out = append(out, ExecutableContent{Kind: ExecIf, If: ifa})
			i += consumed - 1
		case "foreach":
			out = append(out, ExecutableContent{Kind: ExecForeach, Foreach: &ForeachAction{
				Array:   n.AttrOr("array", ""),
				Item:    n.AttrOr("item", ""),
				Index:   n.AttrOr("index", ""),
				Actions: parseExecContent(n.Children),
			}})
		case "log":
			out = append(out, ExecutableContent{Kind: ExecLog, Log: &LogAction{
				Label: n.AttrOr("label", ""),
				Expr:  n.AttrOr("expr", ""),
			}})
		case "script":
			sa := &ScriptAction{}
			if src, ok := n.Attr("src"); ok {
				sa.Src = src
			} else {
				sa.Content = n.Text()
			}
			out = append(out, ExecutableContent{Kind: ExecScript, Script: sa})
		case "cancel":
			out = append(out, ExecutableContent{Kind: ExecCancel, Cancel: &CancelAction{
				SendID:     n.AttrOr("sendid", ""),
				SendIDExpr: n.AttrOr("sendidexpr", ""),
			}})
		}
	}
	return out
}

// buildIf consumes a single <if> element, whose children are a flat
// sequence of executable content interspersed with bare <elseif cond=…/>
// and <else/> markers (SCXML represents if/elseif/else as siblings within
// one <if>, not as nested elements). It returns the constructed IfAction;
// <if> never spans multiple top-level siblings, so the caller always
// advances by exactly one node.
func buildIf(nodes []loader.Node) (*IfAction, int) {
	head := nodes[0]

	type segment struct {
		cond   string // "" for the initial then-segment and for else
		isElse bool
		nodes  []loader.Node
	}
	segs := []segment{{cond: head.AttrOr("cond", "")}}

	for _, c := range head.Children {
		switch c.XMLName.Local {
		case "elseif":
			segs = append(segs, segment{cond: c.AttrOr("cond", "")})
		case "else":
			segs = append(segs, segment{isElse: true})
		default:
			last := &segs[len(segs)-1]
			last.nodes = append(last.nodes, c)
		}
	}

	ifa := &IfAction{If: CondBranch{Cond: segs[0].cond, Actions: parseExecContent(segs[0].nodes)}}
	for _, s := range segs[1:] {
		if s.isElse {
			ifa.ElseActions = parseExecContent(s.nodes)
			continue
		}
		ifa.ElseifBranches = append(ifa.ElseifBranches, CondBranch{
			Cond:    s.cond,
			Actions: parseExecContent(s.nodes),
		})
	}
	return ifa, 1
}

func buildSend(n loader.Node) *Send {
	s := &Send{
		Event:       n.AttrOr("event", ""),
		EventExpr:   n.AttrOr("eventexpr", ""),
		Target:      n.AttrOr("target", ""),
		TargetExpr:  n.AttrOr("targetexpr", ""),
		SendType:    n.AttrOr("type", ""),
		Delay:       n.AttrOr("delay", ""),
		DelayExpr:   n.AttrOr("delayexpr", ""),
		ID:          n.AttrOr("id", ""),
		IDLocation:  n.AttrOr("idlocation", ""),
		Namelist:    n.AttrOr("namelist", ""),
	}
	for _, p := range n.ChildrenNamed("param") {
		s.Params = append(s.Params, buildParam(p))
	}
	if content, ok := n.Child("content"); ok {
		if expr, ok := content.Attr("expr"); ok {
			s.ContentExpr = expr
		} else {
			s.Content = content.Content
		}
	}
	return s
}
