package search

import (
	"slices"
	"strings"
)

type trieNode struct {
	children map[rune]*trieNode

	// positions of every title whose path passes through this node.
	positions map[int]struct{}

	// terminal holds the positions of titles ending at this node.
	terminal map[int]struct{}
}

func newTrieNode() *trieNode {
	return &trieNode{
		children:  make(map[rune]*trieNode),
		positions: make(map[int]struct{}),
	}
}

func (n *trieNode) empty() bool {
	return len(n.positions) == 0 && len(n.children) == 0 && len(n.terminal) == 0
}

// Trie maps lower-cased title prefixes to catalog positions.
// A Trie is not safe for concurrent mutation. An Index never mutates its
// trie after Build returns.
type Trie struct {
	root *trieNode
}

// NewTrie returns an empty trie.
func NewTrie() *Trie {
	return &Trie{root: newTrieNode()}
}

// Insert records title at catalog position pos.
func (t *Trie) Insert(title string, pos int) {
	node := t.root
	node.positions[pos] = struct{}{}
	for _, r := range strings.ToLower(title) {
		child, ok := node.children[r]
		if !ok {
			child = newTrieNode()
			node.children[r] = child
		}
		child.positions[pos] = struct{}{}
		node = child
	}
	if node.terminal == nil {
		node.terminal = make(map[int]struct{})
	}
	node.terminal[pos] = struct{}{}
}

// Delete removes title at pos, pruning nodes left without positions or
// children on the way back to the root. It reports whether title was
// present at pos.
func (t *Trie) Delete(title string, pos int) bool {
	key := []rune(strings.ToLower(title))
	path := make([]*trieNode, 0, len(key)+1)
	path = append(path, t.root)

	node := t.root
	for _, r := range key {
		child, ok := node.children[r]
		if !ok {
			return false
		}
		node = child
		path = append(path, node)
	}
	if _, ok := node.terminal[pos]; !ok {
		return false
	}
	delete(node.terminal, pos)

	// A position may only be dropped from a node when no other title at
	// the same position still passes through it.
	for i := len(path) - 1; i >= 0; i-- {
		if n := path[i]; !n.holds(pos) {
			delete(n.positions, pos)
		}
	}

	for i := len(path) - 1; i > 0; i-- {
		if !path[i].empty() {
			break
		}
		delete(path[i-1].children, key[i-1])
	}
	return true
}

// holds reports whether pos still ends at or below n.
func (n *trieNode) holds(pos int) bool {
	stack := []*trieNode{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := cur.terminal[pos]; ok {
			return true
		}
		for _, child := range cur.children {
			if _, ok := child.positions[pos]; ok {
				stack = append(stack, child)
			}
		}
	}
	return false
}

// PrefixLookup returns the sorted positions of titles starting with prefix.
func (t *Trie) PrefixLookup(prefix string) []int {
	node := t.find(prefix)
	if node == nil {
		return nil
	}
	return sortedKeys(node.positions)
}

// Words returns the sorted positions of titles ending at or below the node
// for prefix, collected with an explicit stack.
func (t *Trie) Words(prefix string) []int {
	node := t.find(prefix)
	if node == nil {
		return nil
	}

	found := make(map[int]struct{})
	stack := []*trieNode{node}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for pos := range cur.terminal {
			found[pos] = struct{}{}
		}
		for _, child := range cur.children {
			stack = append(stack, child)
		}
	}
	return sortedKeys(found)
}

func (t *Trie) find(prefix string) *trieNode {
	node := t.root
	for _, r := range strings.ToLower(prefix) {
		child, ok := node.children[r]
		if !ok {
			return nil
		}
		node = child
	}
	return node
}

func sortedKeys(set map[int]struct{}) []int {
	if len(set) == 0 {
		return nil
	}
	keys := make([]int, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
