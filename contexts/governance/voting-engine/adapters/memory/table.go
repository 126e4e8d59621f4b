package memory

// table is a map with a pending write layer. Writes made inside Atomic land
// in the overlay and are folded into base on commit or dropped on rollback.
type table[K comparable, V any] struct {
	base   map[K]V
	writes map[K]V
}

func newTable[K comparable, V any]() table[K, V] {
	return table[K, V]{base: make(map[K]V)}
}

func (t *table[K, V]) get(key K) (V, bool) {
	if value, ok := t.writes[key]; ok {
		return value, true
	}
	value, ok := t.base[key]
	return value, ok
}

func (t *table[K, V]) put(key K, value V) {
	if t.writes == nil {
		t.writes = make(map[K]V)
	}
	t.writes[key] = value
}

func (t *table[K, V]) commit() {
	for key, value := range t.writes {
		t.base[key] = value
	}
	t.writes = nil
}

func (t *table[K, V]) rollback() {
	t.writes = nil
}

// each visits the merged view, overlay entries shadowing base ones.
func (t *table[K, V]) each(fn func(K, V)) {
	for key, value := range t.base {
		if _, shadowed := t.writes[key]; shadowed {
			continue
		}
		fn(key, value)
	}
	for key, value := range t.writes {
		fn(key, value)
	}
}
