package entity

import "github.com/google/uuid"

// ConversionOptions carries the per-job conversion knobs supplied by the
// requester. Zero values fall back to the worker defaults.
type ConversionOptions struct {
	Width           int     `json:"width,omitempty"`
	Height          int     `json:"height,omitempty"`
	Quality         int     `json:"quality,omitempty"`
	FPS             float64 `json:"fps,omitempty"`
	PreserveTiming  *bool   `json:"preserve_timing,omitempty"`
	MaxFrames       int     `json:"max_frames,omitempty"`
	SizeTargetBytes int64   `json:"size_target_bytes,omitempty"`
}

// ConversionRequestMessage is the inbound message from the webp.convert queue.
type ConversionRequestMessage struct {
	JobID     uuid.UUID         `json:"job_id"`
	UserID    string            `json:"user_id"`
	VideoKey  string            `json:"video_key"`
	FileSize  int64             `json:"file_size"`
	UserEmail string            `json:"user_email"`
	Options   ConversionOptions `json:"options"`
}

// ConversionStatusMessage is the outbound message published to the
// webp.status queue.
type ConversionStatusMessage struct {
	JobID           uuid.UUID `json:"job_id"`
	UserID          string    `json:"user_id"`
	Status          JobStatus `json:"status"`
	VideoKey        string    `json:"video_key"`
	WebPKey         string    `json:"webp_key,omitempty"`
	FramesUsed      int       `json:"frames_used,omitempty"`
	AchievedQuality int       `json:"achieved_quality,omitempty"`
	SourceDuration  float64   `json:"source_duration_seconds,omitempty"`
	OutputBytes     int64     `json:"output_bytes,omitempty"`
	ErrorMessage    string    `json:"error_message,omitempty"`
	Attempt         int       `json:"attempt"`
	MaxAttempts     int       `json:"max_attempts"`
}
