package topic

import (
	"strings"
	"sync"
)

// node is one level of the subscription trie. children holds exact-literal
// children; plus holds the single-level-wildcard child; hash holds the
// multi-level-wildcard child, whose own subs are the subscriptions
// terminating in a trailing `#`.
type node struct {
	children map[string]*node
	plus     *node
	hash     *node
	subs     map[string]byte // client-id -> granted qos, terminal at this node
}

func newNode() *node {
	return &node{}
}

func (n *node) empty() bool {
	return len(n.subs) == 0 && len(n.children) == 0 && n.plus == nil && n.hash == nil
}

// Index is a concurrency-safe topic trie mapping subscription filters to
// the clients subscribed to them, supporting O(levels) insert, remove and
// match.
type Index struct {
	mu   sync.RWMutex
	root *node
}

// New returns an empty Index.
func New() *Index {
	return &Index{root: newNode()}
}

// Subscribe inserts or updates the (filter, client) subscription with the
// given granted qos. A repeat call for the same pair replaces the qos.
func (idx *Index) Subscribe(filter, client string, qos byte) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	n := idx.walkCreate(filter)
	if n.subs == nil {
		n.subs = make(map[string]byte)
	}
	n.subs[client] = qos
}

// walkCreate walks filter's levels from the root, creating nodes as
// needed, and returns the terminal node.
func (idx *Index) walkCreate(filter string) *node {
	n := idx.root
	levels := strings.Split(filter, "/")
	for _, lvl := range levels {
		switch lvl {
		case "#":
			if n.hash == nil {
				n.hash = newNode()
			}
			n = n.hash
		case "+":
			if n.plus == nil {
				n.plus = newNode()
			}
			n = n.plus
		default:
			if n.children == nil {
				n.children = make(map[string]*node)
			}
			child, ok := n.children[lvl]
			if !ok {
				child = newNode()
				n.children[lvl] = child
			}
			n = child
		}
	}
	return n
}

// Unsubscribe removes the (filter, client) subscription, pruning any node
// left with no subscriptions and no children. It reports whether a
// subscription was removed.
func (idx *Index) Unsubscribe(filter, client string) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	levels := strings.Split(filter, "/")
	path := make([]*node, 0, len(levels)+1)
	path = append(path, idx.root)

	n := idx.root
	for _, lvl := range levels {
		switch lvl {
		case "#":
			if n.hash == nil {
				return false
			}
			n = n.hash
		case "+":
			if n.plus == nil {
				return false
			}
			n = n.plus
		default:
			child, ok := n.children[lvl]
			if !ok {
				return false
			}
			n = child
		}
		path = append(path, n)
	}

	if _, ok := n.subs[client]; !ok {
		return false
	}
	delete(n.subs, client)

	// Prune from the terminal node back up to (not including) the root.
	for i := len(path) - 1; i > 0; i-- {
		child := path[i]
		if !child.empty() {
			break
		}
		parent := path[i-1]
		lvl := levels[i-1]
		switch lvl {
		case "#":
			parent.hash = nil
		case "+":
			parent.plus = nil
		default:
			delete(parent.children, lvl)
		}
	}
	return true
}

// UnsubscribeClient removes every subscription belonging to client,
// across all filters. Used when a session is destroyed.
func (idx *Index) UnsubscribeClient(client string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	purgeClient(idx.root, client)
}

func purgeClient(n *node, client string) bool {
	delete(n.subs, client)
	if n.hash != nil {
		if purgeClient(n.hash, client) {
			n.hash = nil
		}
	}
	if n.plus != nil {
		if purgeClient(n.plus, client) {
			n.plus = nil
		}
	}
	for k, child := range n.children {
		if purgeClient(child, client) {
			delete(n.children, k)
		}
	}
	return n.empty()
}

// Subscribers returns, for the concrete topic, the set of subscribed
// clients mapped to the highest granted qos among their matching
// filters.
func (idx *Index) Subscribers(topic string) map[string]byte {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	result := make(map[string]byte)
	levels := strings.Split(topic, "/")
	collect(idx.root, levels, 0, result)
	return result
}

func collect(n *node, levels []string, i int, result map[string]byte) {
	if n.hash != nil {
		mergeMax(result, n.hash.subs)
	}

	if i == len(levels) {
		mergeMax(result, n.subs)
		return
	}

	lvl := levels[i]
	if child, ok := n.children[lvl]; ok {
		collect(child, levels, i+1, result)
	}
	if n.plus != nil {
		collect(n.plus, levels, i+1, result)
	}
}

func mergeMax(result map[string]byte, subs map[string]byte) {
	for client, qos := range subs {
		if cur, ok := result[client]; !ok || qos > cur {
			result[client] = qos
		}
	}
}
