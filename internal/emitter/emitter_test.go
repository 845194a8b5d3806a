package emitter

import "testing"

func TestCapitalize(t *testing.T) {
	cases := map[string]string{
		"":     "Empty",
		"pass": "Pass",
		"fail": "Fail",
		"idle": "Idle",
	}
	for in, want := range cases {
		if got := Capitalize(in); got != want {
			t.Errorf("Capitalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEscapeCPP(t *testing.T) {
	in := "a\\b\"c\nd\re\tf"
	want := `a\\b\"c\nd\re\tf`
	if got := EscapeCPP(in); got != want {
		t.Errorf("EscapeCPP(%q) = %q, want %q", in, got, want)
	}
}
