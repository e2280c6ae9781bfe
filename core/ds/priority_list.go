// File: core/ds/priority_list.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Singly-linked list ordered by a byte priority.

package ds

// node is one link of a PriorityList.
type node[T any] struct {
	priority byte
	item     T
	next     *node[T]
}

// PriorityList keeps items in transmission order. Insertion rule:
//
//   - a new item is placed in front of the first queued item whose priority is
//     strictly lower than its own, otherwise at the tail;
//   - equal priorities keep FIFO order;
//   - the head is never displaced while pinned(head) reports true, i.e. once it
//     has started transmitting.
//
// It is not safe for concurrent use.
type PriorityList[T any] struct {
	head   *node[T]
	size   int
	pinned func(T) bool
}

// NewPriorityList returns an empty list. pinned may be nil, in which case the
// head is always pinned.
func NewPriorityList[T any](pinned func(T) bool) *PriorityList[T] {
	return &PriorityList[T]{pinned: pinned}
}

// Len returns the number of queued items.
func (l *PriorityList[T]) Len() int {
	return l.size
}

// Push inserts item according to the list ordering rule.
func (l *PriorityList[T]) Push(item T, priority byte) {
	n := &node[T]{priority: priority, item: item}
	l.size++

	if l.head == nil {
		l.head = n
		return
	}
	if !l.headPinned() && l.head.priority < priority {
		n.next = l.head
		l.head = n
		return
	}
	prev := l.head
	for prev.next != nil && prev.next.priority >= priority {
		prev = prev.next
	}
	n.next = prev.next
	prev.next = n
}

func (l *PriorityList[T]) headPinned() bool {
	if l.pinned == nil {
		return true
	}
	return l.pinned(l.head.item)
}

// Front returns the head item.
func (l *PriorityList[T]) Front() (T, bool) {
	if l.head == nil {
		var zero T
		return zero, false
	}
	return l.head.item, true
}

// PopFront removes and returns the head item.
func (l *PriorityList[T]) PopFront() (T, bool) {
	if l.head == nil {
		var zero T
		return zero, false
	}
	n := l.head
	l.head = n.next
	l.size--
	return n.item, true
}

// Remove unlinks the first item matching fn.
func (l *PriorityList[T]) Remove(fn func(T) bool) (T, bool) {
	var prev *node[T]
	for cur := l.head; cur != nil; prev, cur = cur, cur.next {
		if !fn(cur.item) {
			continue
		}
		if prev == nil {
			l.head = cur.next
		} else {
			prev.next = cur.next
		}
		l.size--
		return cur.item, true
	}
	var zero T
	return zero, false
}

// Each visits items in order until fn returns false.
func (l *PriorityList[T]) Each(fn func(T) bool) {
	for cur := l.head; cur != nil; cur = cur.next {
		if !fn(cur.item) {
			return
		}
	}
}

// Clear empties the list and returns the removed items in order.
func (l *PriorityList[T]) Clear() []T {
	items := make([]T, 0, l.size)
	for cur := l.head; cur != nil; cur = cur.next {
		items = append(items, cur.item)
	}
	l.head = nil
	l.size = 0
	return items
}
