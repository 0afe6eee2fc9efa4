// Package registry provides the process-wide collaborator a group layer
// needs to resolve link and group ids and to decide when a group is safe to
// delete. It implements srt.Registry.
//
// Lock ordering is the one invariant that matters here: the registry's own
// lock is always acquired before any group's lock, never the reverse, so a
// lookup can never deadlock against a group operation in flight.
package registry
