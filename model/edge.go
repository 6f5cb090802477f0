package model

import (
	"time"

	"github.com/google/uuid"
)

// EdgeType represents the type of relationship between two nodes.
type EdgeType string

const (
	// EdgeTypeParentOf points from a parent page to a direct child.
	// "child of" is the reverse traversal of this edge.
	EdgeTypeParentOf EdgeType = "parent_of"
	// EdgeTypeLinksTo is an associative link found in page content.
	EdgeTypeLinksTo EdgeType = "links_to"
	// EdgeTypeDependsOn connects an asked question to a cited page.
	EdgeTypeDependsOn EdgeType = "depends_on"
)

// Valid reports whether t is a known edge type.
func (t EdgeType) Valid() bool {
	switch t {
	case EdgeTypeParentOf, EdgeTypeLinksTo, EdgeTypeDependsOn:
		return true
	}
	return false
}

// Edge is a directed relation between two nodes.
type Edge struct {
	ID        uuid.UUID `json:"id"`
	SourceID  string    `json:"source_id"`
	TargetID  string    `json:"target_id"`
	EdgeType  EdgeType  `json:"edge_type"`
	Weight    float64   `json:"weight"`
	Metadata  Metadata  `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
