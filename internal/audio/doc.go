// Package audio handles the recordings submitted for assessment.
// It reads WAV headers to derive the recording length, flags recordings too short or too
// coarse for voice analysis, converts other formats to WAV through ffmpeg, and manages
// the upload directory.
package audio
