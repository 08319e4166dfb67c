package forecast

import "github.com/lox/coastscore/internal/models"

// Palette defines the color scheme for a score tier.
type Palette struct {
	// Background is the card background color
	Background string
	// Text is the primary text color
	Text string
	// TextMuted is the secondary/muted text color
	TextMuted string
	// Accent is the tier color used for the score badge
	Accent string
	// AccentSoft is the tier color at low opacity for chips and fills
	AccentSoft string
}

// DefaultPalette is the fallback for unknown labels.
var DefaultPalette = Palette{
	Background: "#0f172a",
	Text:       "#f1f5f9",
	TextMuted:  "#94a3b8",
	Accent:     "#656D76",
	AccentSoft: "#656D761a",
}

// Tier colors, one per label.
var tierHex = map[models.Label]string{
	models.LabelPerfect: "#2DA44E",
	models.LabelGood:    "#57AB5A",
	models.LabelMeh:     "#D29922",
	models.LabelBad:     "#E16F24",
	models.LabelNope:    "#F85149",
}

// palettes keeps the dark card background and swaps the accent per tier.
var palettes = map[models.Label]Palette{
	models.LabelPerfect: {Background: "#0b1f17", Text: "#ecfdf5", TextMuted: "#86b59c", Accent: "#2DA44E", AccentSoft: "#2DA44E1a"},
	models.LabelGood:    {Background: "#0f1f16", Text: "#f0fdf4", TextMuted: "#8fb396", Accent: "#57AB5A", AccentSoft: "#57AB5A1a"},
	models.LabelMeh:     {Background: "#1f1a0b", Text: "#fefce8", TextMuted: "#b5a37a", Accent: "#D29922", AccentSoft: "#D299221a"},
	models.LabelBad:     {Background: "#21130a", Text: "#fff7ed", TextMuted: "#b58f74", Accent: "#E16F24", AccentSoft: "#E16F241a"},
	models.LabelNope:    {Background: "#220d0d", Text: "#fef2f2", TextMuted: "#b57f7f", Accent: "#F85149", AccentSoft: "#F851491a"},
}

// TierHex returns the tier color for label.
func TierHex(label models.Label) string {
	if c, ok := tierHex[label]; ok {
		return c
	}
	return DefaultPalette.Accent
}

// GetPalette returns the palette for label, or DefaultPalette.
func GetPalette(label models.Label) Palette {
	if p, ok := palettes[label]; ok {
		return p
	}
	return DefaultPalette
}

// VibeLines are the canned one-liners shown under the headline score.
var VibeLines = map[models.Label][]string{
	models.LabelPerfect: {
		"The coast is calling. Go now.",
		"Sea glass smooth. You know what to do.",
	},
	models.LabelGood: {
		"Pretty good out there. A few things to know.",
		"Not bad at all. Check the details.",
	},
	models.LabelMeh: {
		"Could go either way. Your call.",
		"Meh, but you've seen worse.",
	},
	models.LabelBad: {
		"Hard pass today. Netflix won't judge.",
		"The coast says not today. Trust it.",
	},
	models.LabelNope: {
		"Somewhere between 'no' and 'absolutely not.'",
	},
}
