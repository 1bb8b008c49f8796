// Package storage publishes finished renders. The default sink leaves the
// file where the encoder wrote it; an S3 sink additionally uploads it.
package storage

import "context"

// Sink receives the finished video file and returns its published location.
type Sink interface {
	Publish(ctx context.Context, localPath string) (string, error)
}

// LocalSink keeps the render on local disk; the published location is the
// local path itself.
type LocalSink struct{}

// Publish implements Sink.
func (LocalSink) Publish(_ context.Context, localPath string) (string, error) {
	return localPath, nil
}
