package model

import "time"

// DocumentNode is a page in the document graph. The structural
// properties are written by the metrics engine.
type DocumentNode struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	SpaceKey        string    `json:"space_key"`
	URL             string    `json:"url,omitempty"`
	HierarchyDepth  int       `json:"hierarchy_depth"`
	ChildCount      int       `json:"child_count"`
	CentralityScore float64   `json:"centrality_score"`
	ParentID        *string   `json:"parent_id,omitempty"`
	ChildrenIDs     []string  `json:"children_ids,omitempty"`
	Metadata        Metadata  `json:"metadata,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Ref returns the traversal tuple of the node.
func (n *DocumentNode) Ref() PageRef {
	return PageRef{ID: n.ID, Title: n.Title, SpaceKey: n.SpaceKey}
}

// PageRef is the (id, title, spaceKey) tuple returned by graph traversals.
type PageRef struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	SpaceKey string `json:"space_key,omitempty"`
}

// NodeMetrics are the structural properties computed for one node.
type NodeMetrics struct {
	PageID          string   `json:"page_id"`
	HierarchyDepth  int      `json:"hierarchy_depth"`
	ChildCount      int      `json:"child_count"`
	CentralityScore float64  `json:"centrality_score"`
	ChildrenIDs     []string `json:"children_ids"`
}

// PopularPage is a page ranked by the number of inbound links.
type PopularPage struct {
	PageRef
	InLinks         int     `json:"in_links"`
	CentralityScore float64 `json:"centrality_score"`
}
