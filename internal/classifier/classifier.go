// Package classifier implements a pure, side-effect-free expression
// classifier: it partitions guard and expression strings into
// {PureInPredicate, StaticStringLiteral, RequiresScriptEngine} without ever
// evaluating them, and computes the event-descriptor prefix-match closure.
//
// A runtime three-token guard evaluator is repurposed here as a compile-time
// grammar check, with exhaustive operator/reserved-word/event-field constant
// lists carried over from a reference ECMAScript-subset parser.
package classifier

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/comalice/scxml-aot/internal/model"
)

// ecmaOperators is the exhaustive set of ECMAScript operators whose
// presence in an expression forces script-engine evaluation.
var ecmaOperators = []string{"===", "!==", "==", "!=", "&&", "||", "<=", ">=", "<", ">"}

// eventMetadataFields mirrors model.EventMetadataFields, fully qualified
// with the "_event." prefix, for substring detection in RequiresScriptEngine
// classification.
var eventMetadataFields = func() []string {
	out := make([]string, 0, len(model.EventMetadataFields))
	for _, f := range model.EventMetadataFields {
		out = append(out, "_event."+f)
	}
	return out
}()

// reservedWords is the exhaustive target-language (C++) reserved-word list
// whose presence as a bare identifier would break direct embedding, forcing
// script-engine dispatch instead.
var reservedWords = map[string]bool{
	"alignas": true, "alignof": true, "and": true, "and_eq": true, "asm": true,
	"auto": true, "bitand": true, "bitor": true, "bool": true, "break": true,
	"case": true, "catch": true, "char": true, "class": true, "compl": true,
	"const": true, "constexpr": true, "continue": true, "default": true,
	"delete": true, "do": true, "double": true, "else": true, "enum": true,
	"explicit": true, "export": true, "extern": true, "false": true,
	"float": true, "for": true, "friend": true, "goto": true, "if": true,
	"inline": true, "int": true, "long": true, "mutable": true,
	"namespace": true, "new": true, "noexcept": true, "not": true,
	"not_eq": true, "nullptr": true, "operator": true, "or": true,
	"or_eq": true, "private": true, "protected": true, "public": true,
	"register": true, "reinterpret_cast": true, "return": true, "short": true,
	"signed": true, "sizeof": true, "static": true, "static_cast": true,
	"struct": true, "switch": true, "template": true, "this": true,
	"thread_local": true, "throw": true, "true": true, "try": true,
	"typedef": true, "typeid": true, "typename": true, "union": true,
	"unsigned": true, "using": true, "virtual": true, "void": true,
	"volatile": true, "wchar_t": true, "while": true, "xor": true, "xor_eq": true,
}

var identifierRe = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// pureInAtomRe matches a single In('literalId') atom: single-quoted literal
// only — In("…") and In(variable) are rejected
var pureInAtomRe = regexp.MustCompile(`^In\('([^']*)'\)$`)

// normalizeEntities rewrites XML-escaped && and || (as they commonly appear
// in cond attributes authored inside XML attribute values) to their literal
// forms before classification.
func normalizeEntities(expr string) string {
	r := strings.NewReplacer("&amp;&amp;", "&&", "&amp;|", "&|", "&amp;", "&")
	return r.Replace(expr)
}

// Classify returns the closed classification of expr without evaluating it.
// Unclassifiable expressions default to RequiresScriptEngine.
func Classify(expr string) model.CondKind {
	if IsPureInPredicate(expr) {
		return model.CondPureIn
	}
	return model.CondRequiresEngine
}

// IsPureInPredicate reports whether expr, after normalizing XML-escaped
// &&/||, is built exclusively from In('literalId') atoms joined by &&, ||,
// parentheses, and whitespace.
func IsPureInPredicate(expr string) bool {
	e := normalizeEntities(strings.TrimSpace(expr))
	if e == "" {
		return false
	}
	if !isBalancedInExpression(e) {
		return false
	}
	return true
}

// isBalancedInExpression performs a small recursive-descent check: the
// grammar is `expr := term ( ("&&"|"||") term )*`, `term := "(" expr ")" |
// "In('id')"`.
func isBalancedInExpression(s string) bool {
	toks, ok := tokenizeInExpr(s)
	if !ok || len(toks) == 0 {
		return false
	}
	pos := 0
	ok = parseInExpr(toks, &pos)
	return ok && pos == len(toks)
}

func tokenizeInExpr(s string) ([]string, bool) {
	var toks []string
	i := 0
	for i < len(s) {
		switch {
		case s[i] == ' ' || s[i] == '\t' || s[i] == '\n':
			i++
		case s[i] == '(' || s[i] == ')':
			toks = append(toks, string(s[i]))
			i++
		case strings.HasPrefix(s[i:], "&&") || strings.HasPrefix(s[i:], "||"):
			toks = append(toks, s[i:i+2])
			i += 2
		case strings.HasPrefix(s[i:], "In("):
			end := strings.Index(s[i:], ")")
			if end < 0 {
				return nil, false
			}
			atom := s[i : i+end+1]
			if !pureInAtomRe.MatchString(atom) {
				return nil, false
			}
			toks = append(toks, atom)
			i += end + 1
		default:
			return nil, false
		}
	}
	return toks, true
}

func parseInExpr(toks []string, pos *int) bool {
	if !parseInTerm(toks, pos) {
		return false
	}
	for *pos < len(toks) && (toks[*pos] == "&&" || toks[*pos] == "||") {
		*pos++
		if !parseInTerm(toks, pos) {
			return false
		}
	}
	return true
}

func parseInTerm(toks []string, pos *int) bool {
	if *pos >= len(toks) {
		return false
	}
	if toks[*pos] == "(" {
		*pos++
		if !parseInExpr(toks, pos) {
			return false
		}
		if *pos >= len(toks) || toks[*pos] != ")" {
			return false
		}
		*pos++
		return true
	}
	if pureInAtomRe.MatchString(toks[*pos]) {
		*pos++
		return true
	}
	return false
}

// IsStaticStringLiteral reports whether expr is a single- or double-quoted
// string literal with no backslash-escape and no interpolation.
func IsStaticStringLiteral(expr string) bool {
	s := strings.TrimSpace(expr)
	if len(s) < 2 {
		return false
	}
	q := s[0]
	if (q != '\'' && q != '"') || s[len(s)-1] != q {
		return false
	}
	inner := s[1 : len(s)-1]
	if strings.ContainsRune(inner, '\\') {
		return false
	}
	if strings.ContainsRune(inner, rune(q)) {
		return false
	}
	return true
}

// RequiresScriptEngine reports whether expr must be evaluated through the
// runtime script engine: any ECMAScript operator, any `_`-prefixed
// identifier, any _event.* metadata field access, any bare numeric/boolean
// literal (used for truthiness coercion), or any target-language reserved
// word appearing as an identifier.
func RequiresScriptEngine(expr string) bool {
	e := normalizeEntities(expr)

	if IsPureInPredicate(e) {
		return false
	}

	for _, op := range ecmaOperators {
		if strings.Contains(e, op) {
			return true
		}
	}
	for _, f := range eventMetadataFields {
		if strings.Contains(e, f) {
			return true
		}
	}
	for _, id := range identifierRe.FindAllString(e, -1) {
		if strings.HasPrefix(id, "_") {
			return true
		}
		if reservedWords[strings.ToLower(id)] {
			return true
		}
	}
	if isBareLiteral(e) {
		return true
	}
	return true // classifier never fails; default
}

func isBareLiteral(e string) bool {
	s := strings.TrimSpace(e)
	if s == "" {
		return false
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return true
	}
	if s == "true" || s == "false" {
		return true
	}
	return IsStaticStringLiteral(s)
}

// PrefixMatches computes the §3.12.1 closure for event descriptor d over
// the final event set: every event equal to d or starting with d+".".
// Wildcard descriptors have no closure here (the emitter handles wildcards
// as a catch-all, not via prefix enumeration).
func PrefixMatches(d string, events map[string]bool) []string {
	var out []string
	for e := range events {
		if e == d || strings.HasPrefix(e, d+".") {
			out = append(out, e)
		}
	}
	sort.Strings(out)
	return out
}
