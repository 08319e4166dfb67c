package forecast

import (
	"testing"
	"time"

	"github.com/lox/coastscore/internal/models"
)

func TestFindBestWindow(t *testing.T) {
	before := testStart.Add(-time.Minute)

	tests := []struct {
		name      string
		scores    []int
		now       time.Time
		wantNil   bool
		wantStart int
		wantEnd   int
		wantRound int
		wantLabel models.Label
	}{
		{
			name:      "best run by average",
			scores:    []int{60, 72, 75, 90, 68, 71, 71},
			now:       before,
			wantStart: 1, wantEnd: 3, wantRound: 79, wantLabel: models.LabelGood,
		},
		{
			name:    "nothing comfortable",
			scores:  []int{10, 69, 45, 0},
			now:     before,
			wantNil: true,
		},
		{
			name:      "single perfect hour beats long good run",
			scores:    []int{70, 71, 72, 73, 10, 95},
			now:       before,
			wantStart: 5, wantEnd: 5, wantRound: 95, wantLabel: models.LabelPerfect,
		},
		{
			name:      "ties go to earliest",
			scores:    []int{80, 80, 10, 80, 80},
			now:       before,
			wantStart: 0, wantEnd: 1, wantRound: 80, wantLabel: models.LabelGood,
		},
		{
			name:      "threshold is inclusive",
			scores:    []int{69, 70, 69},
			now:       before,
			wantStart: 1, wantEnd: 1, wantRound: 70, wantLabel: models.LabelGood,
		},
		{
			name:      "past hours excluded",
			scores:    []int{99, 99, 50, 75, 76},
			now:       testStart.Add(time.Hour),
			wantStart: 3, wantEnd: 4, wantRound: 76, wantLabel: models.LabelGood,
		},
		{
			name:      "current hour counts as past",
			scores:    []int{99, 72},
			now:       testStart,
			wantStart: 1, wantEnd: 1, wantRound: 72, wantLabel: models.LabelGood,
		},
		{
			name:    "all past",
			scores:  []int{99, 99},
			now:     testStart.Add(5 * time.Hour),
			wantNil: true,
		},
		{
			name:      "average rounds half up to perfect",
			scores:    []int{84, 85},
			now:       before,
			wantStart: 0, wantEnd: 1, wantRound: 85, wantLabel: models.LabelPerfect,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hours := makeHours(testStart, tt.scores...)
			got := FindBestWindow(hours, models.ModeSwimSolo, tt.now)
			if tt.wantNil {
				if got != nil {
					t.Fatalf("FindBestWindow = %+v, want nil", got)
				}
				return
			}
			if got == nil {
				t.Fatal("FindBestWindow = nil")
			}
			if got.StartIndex != tt.wantStart || got.EndIndex != tt.wantEnd {
				t.Errorf("window = [%d, %d], want [%d, %d]", got.StartIndex, got.EndIndex, tt.wantStart, tt.wantEnd)
			}
			if got.Rounded != tt.wantRound {
				t.Errorf("Rounded = %d, want %d", got.Rounded, tt.wantRound)
			}
			if got.Label != tt.wantLabel {
				t.Errorf("Label = %s, want %s", got.Label, tt.wantLabel)
			}
			if got.Length != got.EndIndex-got.StartIndex+1 {
				t.Errorf("Length = %d", got.Length)
			}
			if !got.Start.Equal(hours[got.StartIndex].HourUTC) || !got.End.Equal(hours[got.EndIndex].HourUTC) {
				t.Errorf("Start/End do not match indices")
			}
		})
	}
}

func TestFindBestWindow_UsesMode(t *testing.T) {
	hours := makeHours(testStart, 50, 50)
	hours[1].Scores.RunDog = scored(88)

	if w := FindBestWindow(hours, models.ModeSwimSolo, testStart.Add(-time.Hour)); w != nil {
		t.Errorf("swim_solo window = %+v, want nil", w)
	}
	w := FindBestWindow(hours, models.ModeRunDog, testStart.Add(-time.Hour))
	if w == nil || w.StartIndex != 1 || w.Rounded != 88 {
		t.Errorf("run_dog window = %+v", w)
	}
}

func TestFindBestWindow_Empty(t *testing.T) {
	if w := FindBestWindow(nil, models.ModeSwimSolo, testStart); w != nil {
		t.Errorf("FindBestWindow(nil) = %+v", w)
	}
}
