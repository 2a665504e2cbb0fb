// Package overlay publishes pipeline state (status line, transcript,
// playback progress, camera preview, dictation buffer) to websocket clients
// and accepts their control commands.
package overlay
