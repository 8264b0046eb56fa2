// Package notify defines build events and the sinks that display them.
//
// A Sink is a side channel: it receives one Event per executed task and has
// no way to influence scheduling. Reporting is best effort; a panicking sink
// is recovered by SafeReport.
package notify
