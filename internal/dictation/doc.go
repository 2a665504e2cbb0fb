// Package dictation wraps a continuous speech recognizer as a two-state
// (Idle/Listening) toggle that hands finalized text to the text-to-sign
// pipeline.
//
// A final result stops the recognizer and submits the buffered text. If the
// recognizer ends on its own while the adapter is still listening, whatever
// is buffered is submitted once. Recognizer errors only update the status.
package dictation
