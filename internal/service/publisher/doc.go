// Package publisher adds a release to a Sparkle appcast.
//
// It validates the release, extracts the enclosure signature from the
// sign_update output, builds the feed item and inserts it as the newest
// entry of the channel. The feed is locked for the run, replaced atomically
// and read back to confirm the new entry is there.
package publisher
