// Package retrieval resolves and downloads remote media.
//
// The [Client] interface is the retrieval collaborator: a metadata-only probe
// and a single-rendition download. [YtDlp] implements it by running the
// yt-dlp binary, which must be installed and available in PATH (or configured
// with YTDLP_PATH).
//
// [Prober] and [Fetcher] are the two pipeline stages built on a Client. The
// prober rejects sources whose declared size exceeds the pre-flight budget
// before any payload is transferred; the fetcher downloads exactly one
// rendition into a request-scoped artifact and never leaves a partial file
// behind when it fails.
package retrieval
