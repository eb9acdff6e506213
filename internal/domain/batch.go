package domain

// ItemResult is the outcome for one filename in a batch call.
type ItemResult struct {
	Filename   string         `json:"filename"`
	Success    bool           `json:"success"`
	ArtifactID ArtifactID     `json:"artifact_id,omitempty"`
	Output     string         `json:"output,omitempty"`
	Hash       string         `json:"hash,omitempty"`
	Seed       *int64         `json:"seed,omitempty"`
	DurationMS int64          `json:"duration_ms,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	Error      string         `json:"error,omitempty"`
	Kind       string         `json:"kind,omitempty"`
	Warnings   []string       `json:"warnings,omitempty"`
}

// Fail records err on the item.
func (r *ItemResult) Fail(err error) {
	r.Success = false
	r.Error = err.Error()
	r.Kind = Kind(err)
}

// Warn records the failure of a best-effort side effect.
func (r *ItemResult) Warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// BatchResult aggregates item outcomes in input order. It is never persisted.
type BatchResult struct {
	BatchID        string       `json:"batch_id"`
	Total          int          `json:"total"`
	Processed      int          `json:"processed"`
	Failed         int          `json:"failed"`
	Duplicates     int          `json:"duplicates"`
	DuplicateFiles []string     `json:"duplicate_files"`
	Items          []ItemResult `json:"items"`
}

// NewBatchResult allocates an empty aggregate.
func NewBatchResult(batchID string, size int) *BatchResult {
	return &BatchResult{
		BatchID:        batchID,
		DuplicateFiles: []string{},
		Items:          make([]ItemResult, 0, size),
	}
}

// Add appends an item and updates the counters.
func (b *BatchResult) Add(item ItemResult) {
	b.Items = append(b.Items, item)
	b.Total++
	if item.Success {
		b.Processed++
		return
	}
	b.Failed++
	if item.Kind == KindDuplicate {
		b.Duplicates++
		b.DuplicateFiles = append(b.DuplicateFiles, item.Filename)
	}
}
