package textnorm

import "testing"

func TestDigits(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "ascii unchanged", in: "0871234", want: "0871234"},
		{name: "persian digits", in: "۰۸۷۱۲۳۴", want: "0871234"},
		{name: "arabic-indic digits", in: "٠٨٧١٢٣٤", want: "0871234"},
		{name: "fullwidth digits", in: "０８７", want: "087"},
		{name: "mixed", in: "08۷1٢", want: "08712"},
		{name: "letters untouched", in: "ab۱", want: "ab1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Digits(tt.in); got != tt.want {
				t.Errorf("Digits(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestLabel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b string
	}{
		{name: "case and colon", a: "Expiry Date:", b: "expiry date"},
		{name: "whitespace runs", a: "  Available\t\n Balance ", b: "available balance"},
		{name: "arabic yeh vs farsi yeh", a: "وضع\u064aت", b: "وضع\u06ccت"},
		{name: "arabic kaf vs keheh", a: "\u0643اربر", b: "\u06a9اربر"},
		{name: "zero width non-joiner", a: "باقی\u200cمانده", b: "باقی مانده"},
		{name: "tatweel removed", a: "وض\u0640عیت", b: "وضعیت"},
		{name: "fullwidth colon", a: "Plan：", b: "plan"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if Label(tt.a) != Label(tt.b) {
				t.Errorf("Label(%q) = %q, Label(%q) = %q; want equal", tt.a, Label(tt.a), tt.b, Label(tt.b))
			}
		})
	}

	if Label("Status") == Label("Plan") {
		t.Error("distinct labels must not collapse")
	}
}

func TestIsDigits(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want bool
	}{
		{"", false},
		{"123456", true},
		{"12a456", false},
		{"۱۲۳", false},
		{"-123", false},
	}

	for _, tt := range tests {
		if got := IsDigits(tt.in); got != tt.want {
			t.Errorf("IsDigits(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
