package ansi

import "testing"

func TestPaint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		s     string
		codes []string
		want  string
	}{
		{name: "no codes", s: "ok", want: "ok"},
		{name: "empty text", s: "", codes: []string{Red}, want: ""},
		{name: "single", s: "ok", codes: []string{Green}, want: Green + "ok" + Reset},
		{name: "combined", s: "fail", codes: []string{Red, Bold}, want: Red + Bold + "fail" + Reset},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Paint(tt.s, tt.codes...); got != tt.want {
				t.Errorf("Paint(%q) = %q, want %q", tt.s, got, tt.want)
			}
		})
	}
}
