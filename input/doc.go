// Package input normalizes raw device events into the finger model.
//
// Mouse buttons, touch contacts and wheel or trackpad scrolling all become
// Finger events with a digit. Mouse digits are button indices. Touch digits
// come from a DigitAllocator that reuses the lowest free digit, so digits stay
// small no matter how many touches a session sees.
//
// Scroll events carry IsTouch to tell a touch surface from a wheel. Browsers
// do not expose that directly, so WheelClassifier applies a ratio check where
// the legacy wheel delta is available and otherwise treats rapid successive
// events as one touch gesture. Its thresholds live in WheelConfig and are
// covered by trace tests rather than derived.
//
// The package also carries the smaller host heuristics: the hidden text
// area's paste and IME handling, key chords and the cursor enumeration.
package input
