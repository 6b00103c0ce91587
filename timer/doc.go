// Package timer implements the registry of module-requested timers.
//
// Timers are keyed by the module's opaque id. Each firing is delivered on the
// loop through the registry's FireFunc, which the bridge turns into one pump
// cycle carrying a TimerFired notification. One-shot timers leave the
// registry before their FireFunc runs, so the module may reuse the id from
// inside the notification handler.
package timer
