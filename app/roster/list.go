package roster

// List is a cached list of records reconciled with server responses
type List[T any] struct {
	items []T
	id    func(T) int64
}

// NewList makes a list with the given items, id extracts the record key
func NewList[T any](items []T, id func(T) int64) *List[T] {
	return &List[T]{items: append([]T{}, items...), id: id}
}

// Prepend puts a created record first
func (l *List[T]) Prepend(v T) {
	l.items = append([]T{v}, l.items...)
}

// Replace swaps the record with the same id, returns false if it is not in the list
func (l *List[T]) Replace(v T) bool {
	key := l.id(v)
	for i := range l.items {
		if l.id(l.items[i]) == key {
			l.items[i] = v
			return true
		}
	}
	return false
}

// Remove drops all records with the id
func (l *List[T]) Remove(id int64) {
	res := l.items[:0]
	for _, v := range l.items {
		if l.id(v) != id {
			res = append(res, v)
		}
	}
	l.items = res
}

// Items returns a copy of the list
func (l *List[T]) Items() []T {
	return append([]T{}, l.items...)
}

// Len returns number of records
func (l *List[T]) Len() int { return len(l.items) }
