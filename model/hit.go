package model

// Modality names the search shape that produced a hit.
type Modality string

const (
	ModalityKeyword  Modality = "keyword"
	ModalityVector   Modality = "vector"
	ModalitySemantic Modality = "semantic"
)

// SearchHit is a single retrieval result. Score is only comparable
// between hits of the same modality until the hits are fused.
type SearchHit struct {
	ChunkID    string    `json:"chunk_id"`
	PageID     string    `json:"page_id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Score      float64   `json:"score"`
	ChunkType  ChunkType `json:"chunk_type"`
	Breadcrumb []string  `json:"breadcrumb,omitempty"`
	Caption    string    `json:"caption,omitempty"`
	Modality   Modality  `json:"modality"`
	Metadata   Metadata  `json:"metadata,omitempty"`
}

// SearchFilter scopes a search. Empty fields do not filter.
type SearchFilter struct {
	SpaceKeys []string `json:"space_keys,omitempty"`
	PageIDs   []string `json:"page_ids,omitempty"`
}

// IsEmpty reports whether the filter restricts nothing.
func (f SearchFilter) IsEmpty() bool {
	return len(f.SpaceKeys) == 0 && len(f.PageIDs) == 0
}
