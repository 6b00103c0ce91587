// Package loop provides the host's single-threaded cooperative scheduler.
//
// Every piece of host state (timers, sockets, digits, the outbound envelope)
// is only touched from tasks running on the loop. Other goroutines, such as
// socket readers, clock callbacks and worker threads raising signals, hand
// work over with Post. A task posted with Post runs at the next tick, which
// is the zero-delay scheduling boundary used for signal coalescing.
//
// ManualClock drives AfterFunc and Every deterministically in tests and in
// hosts that replay recorded sessions.
package loop
