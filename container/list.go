package container

// Elem is the intrusive hook a value embeds to become linkable into a List.
// An Elem belongs to at most one list at a time.
type Elem[T any] struct {
	next, prev *Elem[T]
	list       *List[T]

	// Value points back at the embedding object. Set once by the owner
	// before the element is linked.
	Value T
}

// Linked reports whether e is currently on a list.
func (e *Elem[T]) Linked() bool { return e.list != nil }

// List is an intrusive doubly-linked list. The zero value is ready to use.
//
// List performs no locking. Mutation concurrent with an unguarded walk is
// undefined; callers wanting a consistent enumeration must exclude
// concurrent mutation externally.
type List[T any] struct {
	root Elem[T] // sentinel; root.next is front, root.prev is back
	len  int
}

func (l *List[T]) lazyInit() {
	if l.root.next == nil {
		l.root.next = &l.root
		l.root.prev = &l.root
	}
}

// Len returns the number of linked elements.
func (l *List[T]) Len() int { return l.len }

// PushBack links e at the back of the list. Linking an element that is
// already on a list is a caller bug; PushBack unlinks it first to keep the
// lists consistent.
func (l *List[T]) PushBack(e *Elem[T]) {
	l.lazyInit()
	if e.list != nil {
		e.list.Remove(e)
	}
	at := l.root.prev
	e.prev = at
	e.next = &l.root
	at.next = e
	l.root.prev = e
	e.list = l
	l.len++
}

// Remove unlinks e. Removing an element that is not on this list is a no-op.
func (l *List[T]) Remove(e *Elem[T]) {
	if e.list != l || l.len == 0 {
		return
	}
	e.prev.next = e.next
	e.next.prev = e.prev
	e.next = nil
	e.prev = nil
	e.list = nil
	l.len--
}

// Each walks the list from front to back, calling fn for each value until
// fn returns false. The walked element must not be unlinked by fn.
func (l *List[T]) Each(fn func(T) bool) {
	if l.root.next == nil {
		return
	}
	for e := l.root.next; e != &l.root; e = e.next {
		if !fn(e.Value) {
			return
		}
	}
}
