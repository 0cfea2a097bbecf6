// Package transcoder shrinks downloaded media until it fits a size target.
//
// It has two layers:
//   - [FFmpeg], the encoding collaborator: one ffmpeg process per call with a
//     fixed VP9/Opus constant-quality argument template in which only the
//     quality value (and, for the fallback call, a rescale filter) varies.
//   - [Ladder], the adaptive compression search: a short ordered sweep over
//     increasingly aggressive quality values that stops at the first output
//     within the intermediate target, followed by one reduced-resolution
//     fallback attempt.
//
// Encoder invocations run on a bounded [workers.Pool] so that the goroutine
// driving a pipeline run only waits for completion. FFmpeg must be installed
// and available in the system PATH (or configured with FFMPEG_PATH).
package transcoder
