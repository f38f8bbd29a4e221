package xpolicy

// trie 按字节的前缀树，每个节点最多挂一条策略
type trie[T any] struct {
	root *node[T]
}

type node[T any] struct {
	children map[byte]*node[T]
	value    T
	set      bool
}

func newTrie[T any]() *trie[T] {
	return &trie[T]{root: &node[T]{}}
}

// insert 返回 false 表示该前缀已存在，保留先插入的值
func (t *trie[T]) insert(prefix string, v T) bool {
	n := t.root
	for i := 0; i < len(prefix); i++ {
		c := prefix[i]
		child, ok := n.children[c]
		if !ok {
			if n.children == nil {
				n.children = make(map[byte]*node[T])
			}
			child = &node[T]{}
			n.children[c] = child
		}
		n = child
	}
	if n.set {
		return false
	}
	n.value, n.set = v, true
	return true
}

// longest 返回 path 的最长前缀匹配
func (t *trie[T]) longest(path string) (T, bool) {
	var (
		best  T
		found bool
	)
	n := t.root
	if n.set {
		best, found = n.value, true
	}
	for i := 0; i < len(path); i++ {
		next, ok := n.children[path[i]]
		if !ok {
			break
		}
		n = next
		if n.set {
			best, found = n.value, true
		}
	}
	return best, found
}
