// Package notify provides a channel-based implementation of srt.EventNotifier:
// the readiness-wakeup primitive an application polls (or selects on)
// instead of busy-looping over every group's Status.
package notify
