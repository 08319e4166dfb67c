package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/lox/coastscore/internal/forecast"
	"github.com/lox/coastscore/internal/imagegen"
	"github.com/lox/coastscore/internal/models"
)

// handleOGImage serves the PNG share card for the current hour. With an
// image generator configured the card sits on an AI backdrop; otherwise, or
// if generation fails, it is drawn on the tier palette.
func (s *Server) handleOGImage(w http.ResponseWriter, r *http.Request) {
	v, err := s.loadView(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	in, err := v.currentInput()
	if err != nil {
		writeError(w, r, err)
		return
	}

	// The card shows the current hour, so a new hour needs a new card even
	// when the snapshot is unchanged.
	key := ogCacheKey(v.settings.AreaID, v.mode, v.snap.ID, in.Hour.HourUTC)
	if data, ok := s.ogCache.Get(key); ok {
		writePNG(w, data)
		return
	}

	line := s.narrator.Vibe(r.Context(), in)
	card := imagegen.CardData{
		Title:    areaTitle(v.settings.AreaID),
		Mode:     models.ModeLabels[v.mode],
		Score:    line.Score,
		Label:    line.Label,
		Headline: line.Text,
		Window:   windowText(in.Window, v),
		Footer:   "Updated " + forecast.FreshnessLabel(v.ageMinutes()) + " · coastscore",
	}

	var data []byte
	if backdrop := s.backdrop(r.Context(), line.Label, v.mode); backdrop != nil {
		data, err = imagegen.GenerateOGImage(backdrop, card)
		if err != nil {
			log.Printf("api: composite OG image: %v", err)
		}
	}
	if data == nil {
		if data, err = imagegen.GenerateFallbackOGImage(card); err != nil {
			writeError(w, r, fmt.Errorf("render OG image: %w", err))
			return
		}
	}

	s.ogCache.Set(key, data)
	writePNG(w, data)
}

func ogCacheKey(areaID string, mode models.Mode, snapshotID int64, hour time.Time) string {
	return fmt.Sprintf("%s|%s|%d|%d", areaID, mode, snapshotID, hour.Unix())
}

func writePNG(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=900")
	if _, err := w.Write(data); err != nil {
		log.Printf("api: write png: %v", err)
	}
}

// backdrop returns a cached backdrop, generating one if allowed. Returns
// nil when backdrops are disabled or generation fails.
func (s *Server) backdrop(ctx context.Context, label models.Label, mode models.Mode) []byte {
	key := imagegen.BackdropKey(label, mode)
	if data, ok := s.imageCache.Get(key); ok {
		return data
	}
	if s.imageGen == nil {
		return nil
	}

	s.genMu.Lock()
	defer s.genMu.Unlock()

	// Another request may have generated it while we waited.
	if data, ok := s.imageCache.Get(key); ok {
		return data
	}

	ctx, cancel := context.WithTimeout(ctx, 90*time.Second)
	defer cancel()

	log.Printf("api: generating backdrop %s", key)
	data, err := s.imageGen.Generate(ctx, label, mode)
	if err != nil {
		log.Printf("api: generate backdrop %s: %v", key, err)
		return nil
	}
	if err := s.imageCache.Set(key, data); err != nil {
		log.Printf("api: cache backdrop %s: %v", key, err)
	}
	return data
}

func windowText(win *forecast.WindowResult, v *viewContext) string {
	if win == nil {
		return "No Good window coming up"
	}
	loc := v.settings.Location
	return fmt.Sprintf("Best window %s %s to %s, avg %d",
		forecast.DayLabel(win.Start, v.now, loc),
		forecast.ClockLabel(win.Start, loc),
		forecast.ClockLabel(win.End.Add(time.Hour), loc),
		win.Rounded)
}
