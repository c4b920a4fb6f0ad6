// Package inspector reads an appcast the way an update client would and
// summarises its items. It backs the list command and the check the
// publisher runs after writing the feed.
package inspector
