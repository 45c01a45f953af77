package shadercache

// node is an entry in a shard's recency list. It holds the key so the
// oldest entry can be deleted from the shard map.
type node struct {
	key        uint64
	prev, next *node
}

// lru orders a shard's keys by recency, most recent at head. Not
// synchronized.
type lru struct {
	head, tail *node
	len        int
}

func (l *lru) pushFront(key uint64) *node {
	n := &node{key: key}
	l.linkFront(n)
	return n
}

func (l *lru) moveToFront(n *node) {
	if n == l.head {
		return
	}
	l.unlink(n)
	l.linkFront(n)
}

// removeOldest unlinks the tail and returns its key.
func (l *lru) removeOldest() (uint64, bool) {
	if l.tail == nil {
		return 0, false
	}
	n := l.tail
	l.unlink(n)
	return n.key, true
}

func (l *lru) clear() {
	l.head, l.tail, l.len = nil, nil, 0
}

func (l *lru) linkFront(n *node) {
	n.prev = nil
	n.next = l.head
	if l.head != nil {
		l.head.prev = n
	}
	l.head = n
	if l.tail == nil {
		l.tail = n
	}
	l.len++
}

func (l *lru) unlink(n *node) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.tail = n.prev
	}
	n.prev, n.next = nil, nil
	l.len--
}
