package transcript_test

import (
	"testing"

	"github.com/MrWong99/touchline/internal/gazetteer"
	"github.com/MrWong99/touchline/internal/transcript"
	"github.com/MrWong99/touchline/pkg/types"
)

type fakeLearned map[string]string

func (f fakeLearned) Canonicals() map[string]string { return f }

func (f fakeLearned) Lookup(name string) (string, bool) {
	for k, v := range f {
		if k == name || k == lower(name) {
			return v, true
		}
	}
	return "", false
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}

func roster() *gazetteer.Directory {
	return gazetteer.FromMap(map[string]string{
		"Zouma":          "Kurt Zouma",
		"Connor Wickham": "Connor Wickham",
	})
}

func TestRewrite_RightmostFirst(t *testing.T) {
	t.Parallel()

	text := "Zuma passes to Conor Wickham."
	spans := []types.Span{
		{Text: "Zuma", Start: 0, End: 4},
		{Text: "Conor Wickham.", Start: 15, End: 29},
	}
	out, corrs := transcript.New().Rewrite(text, spans, roster(), "7", nil)
	if out != "Zouma passes to Connor Wickham." {
		t.Errorf("Rewrite = %q", out)
	}
	if len(corrs) != 2 || corrs[0].Corrected != "Connor Wickham" || corrs[1].Corrected != "Zouma" {
		t.Errorf("corrections = %+v", corrs)
	}
}

func TestRewrite_KeepsDecorations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		span types.Span
		want string
	}{
		{"Zuma's header", types.Span{Text: "Zuma's", Start: 0, End: 6}, "Zouma's header"},
		{"and ,Zuma! wins it", types.Span{Text: ",Zuma!", Start: 4, End: 10}, "and ,Zouma! wins it"},
		{"what about Zuma’s run", types.Span{Text: "Zuma’s", Start: 11, End: 17}, "what about Zouma’s run"},
	}
	c := transcript.New()
	for _, tt := range tests {
		out, _ := c.Rewrite(tt.text, []types.Span{tt.span}, roster(), "1", nil)
		if out != tt.want {
			t.Errorf("Rewrite(%q) = %q, want %q", tt.text, out, tt.want)
		}
	}
}

func TestRewrite_SkipsBadSpans(t *testing.T) {
	t.Parallel()

	text := "Zuma runs"
	spans := []types.Span{
		{Text: "Zuma", Start: 5, End: 40},
		{Text: "Zuma", Start: -1, End: 4},
		{Text: "Zuma", Start: 3, End: 3},
	}
	out, corrs := transcript.New().Rewrite(text, spans, roster(), "1", nil)
	if out != text || len(corrs) != 0 {
		t.Errorf("Rewrite = (%q, %d corrections), want unchanged", out, len(corrs))
	}
}

func TestRewrite_NoSpans(t *testing.T) {
	t.Parallel()

	out, corrs := transcript.New().Rewrite("nothing here", nil, roster(), "1", nil)
	if out != "nothing here" || corrs != nil {
		t.Errorf("Rewrite = (%q, %v)", out, corrs)
	}
}

func TestRewrite_LearnedFastPath(t *testing.T) {
	t.Parallel()

	c := transcript.New(transcript.WithLearned(fakeLearned{"kohlerhoff": "Aleksandar Kolarov"}))
	empty := gazetteer.FromMap(nil)

	out, corrs := c.Rewrite("Kohlerhoff crosses", []types.Span{{Text: "Kohlerhoff", Start: 0, End: 10}}, empty, "3", nil)
	if out != "Kolarov crosses" {
		t.Errorf("Rewrite = %q, want surname only", out)
	}
	if len(corrs) != 1 || corrs[0].Method != transcript.MethodLearned || corrs[0].Score != 100 {
		t.Errorf("corrections = %+v", corrs)
	}
}

func TestRecall(t *testing.T) {
	t.Parallel()

	c := transcript.New(transcript.WithLearned(fakeLearned{
		"winston ritu": "Winston Reid",
		"target":       "Matt Targett",
		"zouma":        "Zouma",
	}))

	corr, ok := c.Recall("Winston Ritu.")
	if !ok || corr.Corrected != "Winston Reid" || corr.Original != "Winston Ritu" {
		t.Errorf("multi-token recall = (%+v, %v)", corr, ok)
	}
	if _, ok := c.Recall("target"); ok {
		t.Error("excluded word recalled")
	}
	if _, ok := c.Recall("Zouma"); ok {
		t.Error("recall that changes nothing should be skipped")
	}
	if _, ok := transcript.New().Recall("Winston Ritu"); ok {
		t.Error("recall without learned cache")
	}
}
