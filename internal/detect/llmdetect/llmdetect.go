// Package llmdetect implements a [detect.Detector] backed by a chat-completion
// language model.
//
// The model receives one segment at a time and is asked to list the named
// entities it sees, as JSON. Offsets are never taken from the model: each
// returned entity is located in the segment text and its rune offsets are
// computed locally. Entities that cannot be found are dropped.
//
// When the model output cannot be parsed the detector reports no spans and a
// nil error so that a run continues. Transport failures and context
// cancellation are returned as errors.
package llmdetect

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/MrWong99/touchline/internal/detect"
	"github.com/MrWong99/touchline/pkg/types"
)

// Source is the span source reported for model-detected entities.
const Source = "llm"

const defaultTemperature = 0.1

const systemPrompt = `You are a named entity recogniser for English soccer commentary transcribed by a speech recogniser.

Your task: list every person, club, place and stadium mentioned in the transcript line.

Rules:
- Names may be misspelled by the speech recogniser. Report them exactly as they appear in the line, including the misspelling.
- Copy each entity verbatim from the line. Do not add, correct or expand words.
- Use these labels only: PERSON (players, coaches, referees), ORG (clubs, national teams), GPE (cities, countries), FAC (stadiums).
- Ignore ordinary words, even when capitalised at the start of a sentence.

Respond with ONLY a JSON object in this exact format (no markdown, no prose):
{"entities": [{"text": "<entity as it appears>", "label": "<PERSON|ORG|GPE|FAC>"}]}

If the line contains no entities, return {"entities": []}.`

// Request is a single chat-completion call.
type Request struct {
	System      string
	User        string
	Temperature float64
}

// Completer sends one chat-completion request and returns the text of the
// first choice. Implementations must be safe for concurrent use.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// llmResponse is the expected JSON structure returned by the model.
type llmResponse struct {
	Entities []struct {
		Text  string `json:"text"`
		Label string `json:"label"`
	} `json:"entities"`
}

// Option is a functional option for configuring a [Detector].
type Option func(*Detector)

// WithTemperature sets the sampling temperature. Default: 0.1.
func WithTemperature(temp float64) Option {
	return func(d *Detector) {
		d.temperature = temp
	}
}

// WithLabels restricts the labels that are reported. Default: PERSON, ORG,
// GPE and FAC.
func WithLabels(labels ...string) Option {
	return func(d *Detector) {
		if len(labels) > 0 {
			d.labels = labels
		}
	}
}

// Detector asks a language model for entity spans. It is safe for concurrent
// use.
type Detector struct {
	llm         Completer
	temperature float64
	labels      []string
}

var _ detect.Detector = (*Detector)(nil)

// New returns a [Detector] backed by c.
func New(c Completer, opts ...Option) *Detector {
	d := &Detector{
		llm:         c,
		temperature: defaultTemperature,
		labels:      []string{detect.LabelPerson, detect.LabelOrg, detect.LabelGPE, detect.LabelFac},
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Detect implements [detect.Detector].
func (d *Detector) Detect(ctx context.Context, seg types.Segment) ([]types.Span, error) {
	if strings.TrimSpace(seg.Text) == "" {
		return nil, nil
	}

	content, err := d.llm.Complete(ctx, Request{
		System:      systemPrompt,
		User:        seg.Text,
		Temperature: d.temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("llm detector: complete segment %s: %w", seg.ID, err)
	}

	spans, err := d.parseResponse(content, seg.Text)
	if err != nil {
		return nil, nil //nolint:nilerr // unparseable output degrades to no spans
	}
	return spans, nil
}

// parseResponse decodes the model output and anchors every entity in text.
// Repeated entities are matched to successive occurrences.
func (d *Detector) parseResponse(content, text string) ([]types.Span, error) {
	var r llmResponse
	if err := json.Unmarshal([]byte(stripMarkdown(content)), &r); err != nil {
		return nil, fmt.Errorf("llm detector: parse response: %w", err)
	}

	hay := []rune(text)
	used := make(map[int]bool)
	var spans []types.Span
	for _, e := range r.Entities {
		label := strings.ToUpper(strings.TrimSpace(e.Label))
		name := strings.TrimSpace(e.Text)
		if name == "" || !slices.Contains(d.labels, label) {
			continue
		}
		needle := []rune(name)
		start := -1
		for from := 0; ; {
			i := runeIndex(hay, needle, from)
			if i < 0 {
				break
			}
			if !used[i] {
				start = i
				break
			}
			from = i + 1
		}
		if start < 0 {
			continue
		}
		used[start] = true
		spans = append(spans, types.Span{
			Text:   name,
			Label:  label,
			Start:  start,
			End:    start + len(needle),
			Source: Source,
		})
	}
	return spans, nil
}

// runeIndex returns the rune offset of the first occurrence of needle in hay
// at or after from, or -1.
func runeIndex(hay, needle []rune, from int) int {
	if len(needle) == 0 {
		return -1
	}
	for i := from; i+len(needle) <= len(hay); i++ {
		if slices.Equal(hay[i:i+len(needle)], needle) {
			return i
		}
	}
	return -1
}

// stripMarkdown removes optional markdown code fences (```json ... ```) that
// some models wrap around JSON output.
func stripMarkdown(s string) string {
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"```json", "```"} {
		if after, ok := strings.CutPrefix(s, prefix); ok {
			s = after
			break
		}
	}
	if before, ok := strings.CutSuffix(s, "```"); ok {
		s = before
	}
	return strings.TrimSpace(s)
}
