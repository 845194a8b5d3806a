package classifier

import "testing"

func TestIsPureInPredicate(t *testing.T) {
	cases := []struct {
		name string
		expr string
		want bool
	}{
		{"single atom", "In('s1')", true},
		{"conjunction", "In('s1') && In('s2')", true},
		{"xml escaped conjunction", "In('s1') &amp;&amp; In('s2')", true},
		{"disjunction with parens", "(In('s1') || In('s2')) && In('s3')", true},
		{"double quoted rejected", `In("s1")`, false},
		{"variable rejected", "In(x)", false},
		{"ecma operator rejected", "In('s1') == true", false},
		{"empty rejected", "", false},
		{"plain identifier rejected", "x.y", false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := IsPureInPredicate(c.expr); got != c.want {
				t.Errorf("IsPureInPredicate(%q) = %v, want %v", c.expr, got, c.want)
			}
		})
	}
}

func TestIsStaticStringLiteral(t *testing.T) {
	cases := []struct {
		expr string
		want bool
	}{
		{"'test'", true},
		{`"test"`, true},
		{"'has \\' escape'", false},
		{"x + 'y'", false},
		{"", false},
	}
	for _, c := range cases {
		if got := IsStaticStringLiteral(c.expr); got != c.want {
			t.Errorf("IsStaticStringLiteral(%q) = %v, want %v", c.expr, got, c.want)
		}
	}
}

func TestRequiresScriptEngine(t *testing.T) {
	cases := []struct {
		expr string
		want bool
	}{
		{"_event.data", true},
		{"_sessionid", true},
		{"x == 1", true},
		{"'literal'", true}, // guards always evaluate through the engine
		{"In('s1')", false},
	}
	for _, c := range cases {
		if got := RequiresScriptEngine(c.expr); got != c.want {
			t.Errorf("RequiresScriptEngine(%q) = %v, want %v", c.expr, got, c.want)
		}
	}
}

// With events == {"error", "error.execution", "foo"}, a transition on
// "error" must match both "error" and "error.execution" via prefix closure.
func TestPrefixMatches(t *testing.T) {
	events := map[string]bool{"error": true, "error.execution": true, "foo": true}
	got := PrefixMatches("error", events)
	want := []string{"error", "error.execution"}
	if len(got) != len(want) {
		t.Fatalf("PrefixMatches = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("PrefixMatches = %v, want %v", got, want)
		}
	}
}
