// Package feed implements persistence for the appcast document.
//
// Document wraps the parsed XML tree and knows how to splice a new item into
// the channel. FileRepository loads and atomically replaces the feed file on
// disk and guards a run with a lock file next to it.
package feed
