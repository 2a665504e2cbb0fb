// Package capture runs the sign-to-text sampling loop.
//
// A Controller owns one camera Session at a time. Each cycle checks that the
// session is live and the stream ready, snapshots a frame, encodes it as a
// JPEG data URI, and waits for the classifier before routing the detection
// through the transcript accumulator. The next cycle is scheduled only after
// the current one finishes: 450ms after a completed call, 500ms after a
// transport failure. Stopping releases the camera at once; a response that
// arrives for a stopped session is dropped.
//
// Cameras are pluggable. FFmpegCamera reads a V4L2 device through ffmpeg,
// DirCamera replays still frames, and HotplugMonitor ends the live session
// when udev reports the device removed.
package capture
