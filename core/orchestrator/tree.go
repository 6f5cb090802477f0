package orchestrator

import (
	"fmt"
	"strings"

	"github.com/siherrmann/pagegraph/model"
)

const maxTreeDepth = 20

// BuildPageTrees merges the ancestor paths and children of the answer
// pages into trees. Pages seen before are reused, which merges shared
// ancestors and stops cycles. Answer pages are marked.
func BuildPageTrees(contexts []*model.PageContext) []*model.PageTree {
	nodes := map[string]*model.TreeNode{}
	var roots []*model.TreeNode

	for _, pc := range contexts {
		path := append(append([]model.PageRef(nil), pc.Ancestors...), pc.Ref())

		var parent *model.TreeNode
		for _, ref := range path {
			node, ok := nodes[ref.ID]
			if !ok {
				node = &model.TreeNode{PageID: ref.ID, Title: ref.Title}
				nodes[ref.ID] = node
				if parent == nil {
					roots = append(roots, node)
				} else {
					parent.Children = append(parent.Children, node)
				}
			}
			parent = node
		}
		parent.ContainsAnswer = true

		for _, child := range pc.Children {
			if _, ok := nodes[child.ID]; ok {
				continue
			}
			node := &model.TreeNode{PageID: child.ID, Title: child.Title}
			nodes[child.ID] = node
			parent.Children = append(parent.Children, node)
		}
	}

	trees := make([]*model.PageTree, 0, len(roots))
	for _, root := range roots {
		trees = append(trees, &model.PageTree{Root: root, Markdown: RenderTree(root)})
	}
	return trees
}

// PartialTree returns a single node tree for a page found by the timeout fallback.
func PartialTree(pageID, title string) *model.PageTree {
	root := &model.TreeNode{PageID: pageID, Title: title, ContainsAnswer: true}
	return &model.PageTree{
		Root:     root,
		Markdown: fmt.Sprintf("- [%s](%s) *(partial result)*", title, pageLink(pageID)),
		Partial:  true,
	}
}

// RenderTree renders a tree as a nested markdown list.
func RenderTree(root *model.TreeNode) string {
	var b strings.Builder
	renderNode(&b, root, 0, map[string]bool{})
	return strings.TrimRight(b.String(), "\n")
}

func renderNode(b *strings.Builder, node *model.TreeNode, level int, seen map[string]bool) {
	if node == nil || seen[node.PageID] || level > maxTreeDepth {
		return
	}
	seen[node.PageID] = true

	indent := strings.Repeat("  ", level)
	if node.ContainsAnswer {
		fmt.Fprintf(b, "%s- **[%s](%s)** *(contains answer)*\n", indent, node.Title, pageLink(node.PageID))
	} else {
		fmt.Fprintf(b, "%s- [%s](%s)\n", indent, node.Title, pageLink(node.PageID))
	}
	for _, child := range node.Children {
		renderNode(b, child, level+1, seen)
	}
}

// TreeContainsAnswer reports whether any node of the tree is an answer page.
func TreeContainsAnswer(node *model.TreeNode) bool {
	return containsAnswer(node, map[string]bool{})
}

func containsAnswer(node *model.TreeNode, seen map[string]bool) bool {
	if node == nil || seen[node.PageID] {
		return false
	}
	seen[node.PageID] = true
	if node.ContainsAnswer {
		return true
	}
	for _, child := range node.Children {
		if containsAnswer(child, seen) {
			return true
		}
	}
	return false
}

func pageLink(pageID string) string {
	return "/pages/" + pageID
}
