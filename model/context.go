package model

// EnrichedContext is the graph context of a single page for one query.
type EnrichedContext struct {
	PageID            string    `json:"page_id"`
	Title             string    `json:"title"`
	Ancestors         []PageRef `json:"ancestors"`
	Children          []PageRef `json:"children"`
	Siblings          []PageRef `json:"siblings"`
	RelatedPages      []PageRef `json:"related_pages"`
	HierarchyDepth    int       `json:"hierarchy_depth"`
	ParentID          string    `json:"parent_id,omitempty"`
	ParentTitle       string    `json:"parent_title,omitempty"`
	CentralityScore   float64   `json:"centrality_score"`
	Breadcrumb        string    `json:"breadcrumb"`
	BaseConfidence    float64   `json:"base_confidence"`
	BoostedConfidence float64   `json:"boosted_confidence"`
}

// PageContext groups the hits of one page with a page level confidence.
type PageContext struct {
	PageID     string           `json:"page_id"`
	Title      string           `json:"title"`
	Breadcrumb []string         `json:"breadcrumb"`
	Chunks     []*SearchHit     `json:"chunks"`
	Confidence float64          `json:"confidence"`
	Ancestors  []PageRef        `json:"ancestors,omitempty"`
	Children   []PageRef        `json:"children,omitempty"`
	Graph      *EnrichedContext `json:"graph,omitempty"`
}

// Ref returns the page reference of the context.
func (p *PageContext) Ref() PageRef {
	return PageRef{ID: p.PageID, Title: p.Title}
}
