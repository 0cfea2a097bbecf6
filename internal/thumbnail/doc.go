// Package thumbnail produces the poster image that accompanies a delivered
// video.
//
// The poster is taken from the source's remote thumbnail when one is
// advertised (yt-dlp usually reports webp or jpeg), and otherwise from a frame
// of the compressed video extracted with ffmpeg. The image is fitted within
// MaxDimension and written as JPEG to the request's FallbackThumbnail
// artifact, so it is removed with the rest of the run's files.
package thumbnail
