// Package appcast contains the domain types of a Sparkle update feed entry.
//
// It extracts the enclosure signature from sign_update output, computes the
// publish date, renders the download URL and builds the <item> fragment that
// the feed repository splices into the channel.
package appcast
