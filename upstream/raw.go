package upstream

// AsRaw converts a decoded JSON value into a Raw object, or nil when the
// value is not an object.
func AsRaw(v any) Raw {
	switch m := v.(type) {
	case Raw:
		return m
	case map[string]any:
		return Raw(m)
	}
	return nil
}

// Child returns the object stored under key, or nil.
func (r Raw) Child(key string) Raw {
	if r == nil {
		return nil
	}
	return AsRaw(r[key])
}

// List returns the array of objects stored under key. Non-object elements
// are skipped.
func (r Raw) List(key string) []Raw {
	if r == nil {
		return nil
	}
	items, ok := r[key].([]any)
	if !ok {
		return nil
	}
	out := make([]Raw, 0, len(items))
	for _, item := range items {
		if obj := AsRaw(item); obj != nil {
			out = append(out, obj)
		}
	}
	return out
}

// FirstList returns the first key holding a non-empty array of objects.
func (r Raw) FirstList(keys ...string) []Raw {
	for _, key := range keys {
		if list := r.List(key); len(list) > 0 {
			return list
		}
	}
	return nil
}
