package models

// Metadata is an open bag of platform-supplied extras (preview URL, artwork, genres).
//
// Values are strings, numbers, lists or nested maps. The core carries them opaquely;
// only the adapter that wrote a key interprets it.
type Metadata map[string]any

// Clone returns a deep copy.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return Metadata{}
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

// String returns the string stored under key, or "".
func (m Metadata) String(key string) string {
	s, _ := m[key].(string)
	return s
}

// Strings returns the list of strings stored under key. Lists decoded from JSON arrive as []any.
func (m Metadata) Strings(key string) []string {
	switch v := m[key].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// Section returns the nested map stored under key, typically a platform name.
func (m Metadata) Section(key string) Metadata {
	switch v := m[key].(type) {
	case Metadata:
		return v
	case map[string]any:
		return Metadata(v)
	default:
		return nil
	}
}

// Merge copies every key of other into m, overwriting existing keys.
func (m Metadata) Merge(other Metadata) {
	for k, v := range other {
		m[k] = cloneValue(v)
	}
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Metadata:
		return t.Clone()
	case map[string]any:
		return map[string]any(Metadata(t).Clone())
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}
