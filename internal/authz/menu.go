package authz

import (
	"sort"

	"github.com/spec-kit/admission-core/internal/domain"
)

// BuildMenuTree materializes a forest from flat menu rows: nodes are indexed
// by id, attached to their parent's children when the parent reference
// resolves, and treated as roots otherwise. Every children list is sorted by
// sort_order ascending, recursively, at materialization time.
func BuildMenuTree(rows []*domain.MenuNode) []*domain.MenuNode {
	byID := make(map[int64]*domain.MenuNode, len(rows))
	for _, row := range rows {
		row.Children = nil
		byID[row.ID] = row
	}

	var roots []*domain.MenuNode
	for _, row := range rows {
		if row.ParentID != nil {
			if parent, ok := byID[*row.ParentID]; ok && parent != row {
				parent.Children = append(parent.Children, row)
				continue
			}
		}
		roots = append(roots, row)
	}

	sortMenuNodes(roots)
	return roots
}

func sortMenuNodes(nodes []*domain.MenuNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].SortOrder < nodes[j].SortOrder
	})
	for _, node := range nodes {
		sortMenuNodes(node.Children)
	}
}

// findMenuKey searches the forest depth-first for the given key.
func findMenuKey(nodes []*domain.MenuNode, key string) bool {
	for _, node := range nodes {
		if node.Key == key {
			return true
		}
		if findMenuKey(node.Children, key) {
			return true
		}
	}
	return false
}
