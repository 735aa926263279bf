package port

import (
	"context"
	"image"
	"time"
)

// SourceFrame is one decoded frame with its presentation timestamp relative
// to the start of the stream.
type SourceFrame struct {
	Image     image.Image
	Timestamp time.Duration
	Index     int
}

// StreamMetadata is read from the container at open time and is read-only
// for the rest of the pipeline.
type StreamMetadata struct {
	Duration           time.Duration
	NativeFPS          float64
	FrameCountEstimate int
	Width              int
	Height             int
}

// DecodedStream holds every frame decoded for one conversion attempt.
type DecodedStream struct {
	Frames   []SourceFrame
	Metadata StreamMetadata
}

// FrameDecoder opens a video file and decodes up to maxFrames frames
// (plus a small internal slack used to estimate the trailing frame's
// duration). maxFrames <= 0 means no decode bound.
type FrameDecoder interface {
	Decode(ctx context.Context, path string, maxFrames int) (*DecodedStream, error)
}
