// Package delivery hands finished artifacts to their destination.
//
// A Sink receives the path of a compressed artifact and a display title.
// DirectorySink copies the file into an outbox directory; WebhookSink posts
// it to a chat webhook as a multipart upload. Sinks that can also show a
// poster image implement PreviewSink.
package delivery
