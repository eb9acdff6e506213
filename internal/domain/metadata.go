package domain

import "time"

// Dimensions is a width/height pair plus the encoded byte size.
type Dimensions struct {
	Width  int   `json:"width"`
	Height int   `json:"height"`
	Bytes  int64 `json:"bytes"`
}

// ProcessingRecord is the JSON sidecar kept for one base image. Background
// removal fields stay empty until that stage runs.
type ProcessingRecord struct {
	ArtifactID        ArtifactID `json:"artifact_id"`
	OriginalFilename  string     `json:"original_filename"`
	ProcessedFilename string     `json:"processed_filename"`
	BatchID           string     `json:"batch_id"`
	Original          Dimensions `json:"original"`
	Processed         Dimensions `json:"processed"`
	OriginalFormat    string     `json:"original_format"`
	ContentHash       string     `json:"content_hash"`
	ProcessingMillis  int64      `json:"processing_ms"`
	ProcessedAt       time.Time  `json:"processed_at"`

	NoBgFilename string     `json:"no_bg_filename,omitempty"`
	NoBgMillis   int64      `json:"no_bg_ms,omitempty"`
	NoBgAt       *time.Time `json:"no_bg_at,omitempty"`
}
