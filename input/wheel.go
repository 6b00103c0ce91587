package input

import (
	"math"
	"time"
)

// WheelConfig holds the empirically tuned constants of the wheel classifier.
type WheelConfig struct {
	// TouchRatio is the |deltaY / wheelDeltaY| ratio produced by touch
	// surfaces on engines that report both deltas.
	TouchRatio float64 `yaml:"touch_ratio"`
	// RatioEpsilon is the tolerance of the ratio check.
	RatioEpsilon float64 `yaml:"ratio_epsilon"`
	// GestureWindow is the gap below which events continue a touch gesture.
	GestureWindow time.Duration `yaml:"gesture_window"`
	// LineHeight converts line-mode deltas to pixels.
	LineHeight float64 `yaml:"line_height"`
	// LineModeIsWheel classifies purely by delta mode: line deltas are wheel
	// clicks, everything else is a touch surface.
	LineModeIsWheel bool `yaml:"line_mode_is_wheel"`
}

// DefaultWheelConfig returns the thresholds tuned against desktop browsers.
func DefaultWheelConfig() WheelConfig {
	return WheelConfig{
		TouchRatio:    1.0 / 3.0,
		RatioEpsilon:  1e-5,
		GestureWindow: 250 * time.Millisecond,
		LineHeight:    40,
	}
}

// WheelClassifier decides whether a wheel event came from a wheel or from a
// touch surface. It is stateful: a touch gesture continues while events keep
// arriving within GestureWindow of each other.
type WheelClassifier struct {
	cfg          WheelConfig
	lastTime     float64
	hasLast      bool
	lastWasWheel bool
}

// NewWheelClassifier creates a classifier.
func NewWheelClassifier(cfg WheelConfig) *WheelClassifier {
	return &WheelClassifier{cfg: cfg}
}

// Classify reports whether e belongs to a touch-surface scroll.
func (c *WheelClassifier) Classify(e WheelEvent) bool {
	gap := math.Inf(1)
	if c.hasLast {
		gap = (e.Time - c.lastTime) * 1000
	}
	c.lastTime = e.Time
	c.hasLast = true

	if c.cfg.LineModeIsWheel {
		c.lastWasWheel = e.DeltaMode == DeltaLine
		return !c.lastWasWheel
	}

	window := float64(c.cfg.GestureWindow) / float64(time.Millisecond)
	if c.touchRatio(e) || !c.lastWasWheel && gap < window {
		c.lastWasWheel = false
	} else {
		c.lastWasWheel = true
	}
	return !c.lastWasWheel
}

func (c *WheelClassifier) touchRatio(e WheelEvent) bool {
	if e.WheelDeltaY == 0 {
		return false
	}
	ratio := math.Abs(e.DeltaY / e.WheelDeltaY)
	return math.Abs(ratio-c.cfg.TouchRatio) < c.cfg.RatioEpsilon
}

// Scale returns the factor converting e's deltas to pixels.
func (c *WheelClassifier) Scale(e WheelEvent, pageHeight float64) float64 {
	switch e.DeltaMode {
	case DeltaLine:
		return c.cfg.LineHeight
	case DeltaPage:
		return pageHeight
	default:
		return 1
	}
}
