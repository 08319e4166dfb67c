package api

import (
	"fmt"
	"html"
	"strings"

	"github.com/lox/coastscore/internal/forecast"
)

// RenderSVG draws a Series as a standalone SVG document. It only places
// what BuildSeries already computed.
func RenderSVG(s forecast.Series) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %g %g" width="%g" height="%g">`, s.Width, s.Height, s.Width, s.Height)
	b.WriteString("\n")

	for _, g := range s.GridLines {
		fmt.Fprintf(&b, `<line x1="%g" y1="%.1f" x2="%g" y2="%.1f" stroke="#334155" stroke-width="0.5" stroke-dasharray="2 3"/>`,
			s.Margins.Left, g.Y, s.Width-s.Margins.Right, g.Y)
		fmt.Fprintf(&b, `<text x="%g" y="%.1f" font-size="9" fill="#94a3b8">%s</text>`, s.Margins.Left+2, g.Y-2, html.EscapeString(g.Label))
		b.WriteString("\n")
	}

	for _, m := range s.SunMarkers {
		fmt.Fprintf(&b, `<line x1="%.1f" y1="%g" x2="%.1f" y2="%g" stroke="#f59e0b" stroke-width="1" class="sun-%s"/>`,
			m.X, s.Margins.Top, m.X, s.Height-s.Margins.Bottom, m.Type)
		fmt.Fprintf(&b, `<text x="%.1f" y="%g" font-size="9" fill="#f59e0b" text-anchor="middle">%s</text>`, m.X, s.Margins.Top-6, html.EscapeString(m.Label))
		b.WriteString("\n")
	}

	if s.AreaD != "" {
		fmt.Fprintf(&b, `<path d="%s" fill="%s" fill-opacity="0.15" stroke="none"/>`, s.AreaD, s.Metric.Color)
		b.WriteString("\n")
	}
	if s.PathD != "" {
		fmt.Fprintf(&b, `<path d="%s" fill="none" stroke="%s" stroke-width="2" stroke-linejoin="round"/>`, s.PathD, s.Metric.Color)
		b.WriteString("\n")
	}

	for _, p := range s.Points {
		if p.Value == nil {
			continue
		}
		fmt.Fprintf(&b, `<circle cx="%.1f" cy="%.1f" r="2" fill="%s"/>`, p.X, p.Y, p.Color)
	}
	b.WriteString("\n")

	for _, t := range s.Ticks {
		fmt.Fprintf(&b, `<text x="%.1f" y="%g" font-size="9" fill="#94a3b8" text-anchor="middle">%s</text>`, t.X, s.Height-8, html.EscapeString(t.Label))
	}
	b.WriteString("\n</svg>\n")
	return b.String()
}
