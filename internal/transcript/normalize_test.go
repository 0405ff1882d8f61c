package transcript

import "testing"

func TestSplitSpan(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want span
	}{
		{"Zuma", span{core: "Zuma"}},
		{"Conor Wickham.", span{core: "Conor Wickham", trailing: "."}},
		{"Zuma's", span{core: "Zuma", possessive: "'s"}},
		{"Zuma’s", span{core: "Zuma", possessive: "’s"}},
		{"..Kane?!", span{leading: "..", core: "Kane", trailing: "?!"}},
		{" Kane, ", span{core: "Kane", trailing: ","}},
		{"!?", span{trailing: "!?"}},
	}
	for _, tt := range tests {
		if got := splitSpan(tt.in); got != tt.want {
			t.Errorf("splitSpan(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestSpanWrap(t *testing.T) {
	t.Parallel()

	s := span{leading: ",", core: "Zuma", trailing: "!", possessive: "'s"}
	if got := s.wrap("Zouma"); got != ",Zouma!'s" {
		t.Errorf("wrap = %q", got)
	}
}
