package model

// TextKey holds the accumulated free-text body of an element.
const TextKey = "text"

// Attributes is a string map that remembers insertion order for rendering.
type Attributes struct {
	keys   []string
	values map[string]string
}

func NewAttributes() *Attributes {
	return &Attributes{values: make(map[string]string)}
}

// Set stores v under k. A key that already exists keeps its original position.
func (a *Attributes) Set(k, v string) {
	if _, ok := a.values[k]; !ok {
		a.keys = append(a.keys, k)
	}
	a.values[k] = v
}

func (a *Attributes) Get(k string) (string, bool) {
	if a == nil {
		return "", false
	}
	v, ok := a.values[k]
	return v, ok
}

// Append concatenates v onto the current value of k, creating it if absent.
func (a *Attributes) Append(k, v string) {
	a.Set(k, a.values[k]+v)
}

func (a *Attributes) Delete(k string) {
	if _, ok := a.values[k]; !ok {
		return
	}
	delete(a.values, k)
	for i, key := range a.keys {
		if key == k {
			a.keys = append(a.keys[:i], a.keys[i+1:]...)
			break
		}
	}
}

func (a *Attributes) Len() int {
	if a == nil {
		return 0
	}
	return len(a.keys)
}

// Keys returns the attribute names in insertion order.
func (a *Attributes) Keys() []string {
	if a == nil {
		return nil
	}
	keys := make([]string, len(a.keys))
	copy(keys, a.keys)
	return keys
}

// Range calls fn for every attribute in insertion order.
func (a *Attributes) Range(fn func(k, v string)) {
	if a == nil {
		return
	}
	for _, k := range a.keys {
		fn(k, a.values[k])
	}
}

// Map returns a copy of the attributes as a plain map.
func (a *Attributes) Map() map[string]string {
	if a == nil {
		return nil
	}
	m := make(map[string]string, len(a.keys))
	for k, v := range a.values {
		m[k] = v
	}
	return m
}
