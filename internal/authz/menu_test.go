package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/admission-core/internal/domain"
)

func ref(id int64) *int64 { return &id }

func TestBuildMenuTree_NestsByParentID(t *testing.T) {
	rows := []*domain.MenuNode{
		{ID: 3, Key: "c", ParentID: ref(2)},
		{ID: 1, Key: "a"},
		{ID: 2, Key: "b", ParentID: ref(1)},
	}

	tree := BuildMenuTree(rows)

	require.Len(t, tree, 1)
	assert.Equal(t, "a", tree[0].Key)
	require.Len(t, tree[0].Children, 1)
	assert.Equal(t, "b", tree[0].Children[0].Key)
	require.Len(t, tree[0].Children[0].Children, 1)
	assert.Equal(t, "c", tree[0].Children[0].Children[0].Key)
}

func TestBuildMenuTree_SortsSiblingsRecursively(t *testing.T) {
	rows := []*domain.MenuNode{
		{ID: 1, Key: "root-b", SortOrder: 20},
		{ID: 2, Key: "root-a", SortOrder: 10},
		{ID: 3, Key: "child-z", ParentID: ref(2), SortOrder: 5},
		{ID: 4, Key: "child-y", ParentID: ref(2), SortOrder: 1},
		{ID: 5, Key: "child-x", ParentID: ref(2), SortOrder: 3},
	}

	tree := BuildMenuTree(rows)

	require.Len(t, tree, 2)
	assert.Equal(t, "root-a", tree[0].Key)
	assert.Equal(t, "root-b", tree[1].Key)

	children := tree[0].Children
	require.Len(t, children, 3)
	assert.Equal(t, "child-y", children[0].Key)
	assert.Equal(t, "child-x", children[1].Key)
	assert.Equal(t, "child-z", children[2].Key)
}

func TestBuildMenuTree_UnresolvableParentBecomesRoot(t *testing.T) {
	rows := []*domain.MenuNode{
		{ID: 1, Key: "orphan", ParentID: ref(99), SortOrder: 2},
		{ID: 2, Key: "root", SortOrder: 1},
	}

	tree := BuildMenuTree(rows)

	require.Len(t, tree, 2)
	assert.Equal(t, "root", tree[0].Key)
	assert.Equal(t, "orphan", tree[1].Key)
}

func TestFindMenuKey(t *testing.T) {
	rows := []*domain.MenuNode{
		{ID: 1, Key: "a"},
		{ID: 2, Key: "b", ParentID: ref(1)},
		{ID: 3, Key: "c", ParentID: ref(2)},
	}
	tree := BuildMenuTree(rows)

	assert.True(t, findMenuKey(tree, "a"))
	assert.True(t, findMenuKey(tree, "c"))
	assert.False(t, findMenuKey(tree, "missing"))
}
