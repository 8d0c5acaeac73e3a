// Package audio provides jingle decoding, caching, and playback via the
// system speaker, plus a file watcher that invalidates cached decodes.
package audio
