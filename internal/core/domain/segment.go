package domain

import "time"

// Segment is one bounded, overlapping piece of extracted text. Segments are
// created once per indexing run and discarded after their embeddings are
// persisted.
type Segment struct {
	Content  string          `json:"content"`
	Metadata SegmentMetadata `json:"metadata"`
}

// SegmentMetadata is a best-effort annotation of a segment. StartChar and
// EndChar locate the first occurrence of the segment text in the source, so
// for repeated substrings they can point at the wrong occurrence; callers
// must not rely on exact offsets.
type SegmentMetadata struct {
	ChunkIndex    int  `json:"chunk_index"`
	CharLength    int  `json:"char_length"`
	StartChar     int  `json:"start_char"`
	EndChar       int  `json:"end_char"`
	ContainsTable bool `json:"contains_table"`
	ContainsList  bool `json:"contains_list"`
	IsHeader      bool `json:"is_header"`
}

// RetrievedChunk is a stored chunk returned by the similarity ranking query,
// best match first.
type RetrievedChunk struct {
	FileID     FileID  `json:"file_id"`
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
}

// Answer is the composed response for one question. Degraded marks the fixed
// fallback text produced when the completion generator failed; it must stay
// distinguishable from a genuine answer all the way into the audit trail.
type Answer struct {
	Text     string `json:"text"`
	Degraded bool   `json:"degraded"`
}

// QueryRecord is the audit row written once per answered question.
type QueryRecord struct {
	FileID   FileID `json:"file_id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Degraded bool   `json:"degraded"`
	UserID   string `json:"user_id"`
}

// LogRecord is one structured log entry bound for the remote logs table.
type LogRecord struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Module    string    `json:"module"`
	UserID    string    `json:"user_id,omitempty"`
}
