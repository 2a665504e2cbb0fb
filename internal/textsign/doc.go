// Package textsign connects typed or dictated text to the conversion client
// and the playback engine.
package textsign
