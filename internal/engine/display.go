package engine

import (
	"time"

	"arbwatch-go/internal/spread"
)

// Label is the coarse presentation classification of a symbol's edge. It is
// layered on top of, and never authoritative for, the trading lifecycle:
// the two classifiers read the same net edge but keep separate thresholds
// and timing.
type Label string

const (
	LabelNeutral   Label = "NEUTRAL"
	LabelHot       Label = "HOT"
	LabelHotStrong Label = "HOT_STRONG"
	LabelClose     Label = "CLOSE"
)

// DisplayParams tunes the presentation classifier independently of the
// trading thresholds.
type DisplayParams struct {
	HotPct    float64
	StrongPct float64
	ClosePct  float64
	Debounce  time.Duration // minimum interval between label transitions
	Blink     time.Duration // highlight window after any transition
}

type displayState struct {
	label      Label
	lastChange time.Time
	blinkUntil time.Time
	seeded     bool
}

func classify(netPct float64, p DisplayParams) Label {
	switch {
	case netPct >= p.StrongPct && p.StrongPct > 0:
		return LabelHotStrong
	case netPct >= p.HotPct && p.HotPct > 0:
		return LabelHot
	case netPct <= p.ClosePct:
		return LabelClose
	default:
		return LabelNeutral
	}
}

// updateDisplay runs with the symbol's mutex held.
func (e *Engine) updateDisplay(st *symbolState, res spread.Result, now time.Time) {
	want := LabelNeutral
	if res.Valid {
		want = classify(res.NetPct, e.params.Display)
	}

	d := &st.display
	if !d.seeded {
		d.label = want
		d.lastChange = now
		d.seeded = true
		return
	}
	if want == d.label {
		return
	}
	if now.Sub(d.lastChange) < e.params.Display.Debounce {
		return
	}
	d.label = want
	d.lastChange = now
	d.blinkUntil = now.Add(e.params.Display.Blink)
}
