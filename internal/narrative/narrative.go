// Package narrative writes the one-line "vibe" shown under the headline
// score. With an OpenAI key it asks a chat model for a line grounded in the
// hour's conditions; otherwise, or on any failure, it uses canned copy.
package narrative

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/lox/coastscore/internal/forecast"
	"github.com/lox/coastscore/internal/metrics"
	"github.com/lox/coastscore/internal/models"
)

const (
	SourceAI       = "ai"
	SourceFallback = "fallback"

	DefaultModel = "gpt-4o-mini"
	maxLineLen   = 140
)

// Input is the hour to describe.
type Input struct {
	AreaID     string
	Mode       models.Mode
	Hour       models.HourRecord
	Conditions []forecast.ConditionItem
	Window     *forecast.WindowResult
	Location   *time.Location
}

// Line is a generated or canned vibe sentence.
type Line struct {
	Text   string       `json:"text"`
	Source string       `json:"source"`
	Label  models.Label `json:"label"`
	Score  int          `json:"score"`
}

type Narrator struct {
	client  *openai.Client
	model   string
	timeout time.Duration

	mu    sync.Mutex
	cache map[string]Line
}

// New returns a Narrator. An empty apiKey yields one that only uses canned
// lines.
func New(apiKey, model string, opts ...option.RequestOption) *Narrator {
	n := &Narrator{
		model:   model,
		timeout: 15 * time.Second,
		cache:   make(map[string]Line),
	}
	if n.model == "" {
		n.model = DefaultModel
	}
	if apiKey != "" {
		c := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
		n.client = &c
	}
	return n
}

// Enabled reports whether an API key was configured.
func (n *Narrator) Enabled() bool {
	return n != nil && n.client != nil
}

// Vibe returns a line for in. It never fails; model errors fall back to
// canned copy. Lines are cached per area, mode and hour.
func (n *Narrator) Vibe(ctx context.Context, in Input) Line {
	score := in.Hour.Score(in.Mode)
	label := forecast.LabelForScore(score)
	fallback := Line{Text: Fallback(label, in.Hour.HourUTC), Source: SourceFallback, Label: label, Score: score}

	if !n.Enabled() {
		return fallback
	}

	key := fmt.Sprintf("%s|%s|%d", in.AreaID, in.Mode, in.Hour.HourUTC.Unix())
	n.mu.Lock()
	cached, ok := n.cache[key]
	n.mu.Unlock()
	if ok {
		return cached
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	text, err := n.complete(ctx, in, label, score)
	if err != nil {
		metrics.NarrativeCalls.WithLabelValues("error").Inc()
		log.Printf("narrative: %v", err)
		return fallback
	}
	metrics.NarrativeCalls.WithLabelValues("ok").Inc()

	line := Line{Text: text, Source: SourceAI, Label: label, Score: score}
	n.mu.Lock()
	if len(n.cache) > 256 {
		n.cache = make(map[string]Line)
	}
	n.cache[key] = line
	n.mu.Unlock()
	return line
}

func (n *Narrator) complete(ctx context.Context, in Input, label models.Label, score int) (string, error) {
	resp, err := n.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(n.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(BuildPrompt(in, label, score)),
		},
		MaxCompletionTokens: openai.Int(60),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices returned")
	}
	return cleanLine(resp.Choices[0].Message.Content)
}

const systemPrompt = `You write one short, wry sentence about whether now is a good time to be outside at the beach.
Use the score and conditions given. No emoji, no hashtags, no quotes. At most 20 words.`

// BuildPrompt describes the hour for the model.
func BuildPrompt(in Input, label models.Label, score int) string {
	loc := in.Location
	if loc == nil {
		loc = time.UTC
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Activity: %s\n", models.ModeLabels[in.Mode])
	fmt.Fprintf(&b, "Time: %s\n", in.Hour.HourUTC.In(loc).Format("Mon 15:04"))
	fmt.Fprintf(&b, "Score: %d/100 (%s)\n", score, label)
	for _, c := range in.Conditions {
		if c.Value == "--" {
			continue
		}
		fmt.Fprintf(&b, "%s: %s", c.Label, c.Value)
		if c.Detail != "" {
			fmt.Fprintf(&b, " (%s)", c.Detail)
		}
		fmt.Fprintf(&b, " [%s]\n", c.Severity)
	}
	if ms := in.Hour.Scores.Get(in.Mode); ms != nil {
		for _, r := range ms.Reasons {
			fmt.Fprintf(&b, "Note: %s\n", r.Text)
		}
	}
	if in.Window != nil {
		fmt.Fprintf(&b, "Best window: %s to %s, average %d\n",
			in.Window.Start.In(loc).Format("15:04"), in.Window.End.In(loc).Add(time.Hour).Format("15:04"), in.Window.Rounded)
	} else {
		b.WriteString("Best window: none coming up\n")
	}
	return b.String()
}

func cleanLine(s string) (string, error) {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'`)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if s == "" {
		return "", errors.New("empty completion")
	}
	if r := []rune(s); len(r) > maxLineLen {
		s = strings.TrimSpace(string(r[:maxLineLen])) + "…"
	}
	return s, nil
}

// Fallback picks a canned line for label. The choice is stable for a given
// hour so the text does not flicker between requests.
func Fallback(label models.Label, hour time.Time) string {
	lines := forecast.VibeLines[label]
	if len(lines) == 0 {
		return ""
	}
	h := fnv.New32a()
	fmt.Fprintf(h, "%d", hour.Unix())
	return lines[h.Sum32()%uint32(len(lines))]
}
