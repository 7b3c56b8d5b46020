package index

// Inverted maps tokens to the set of keys whose current value contains
// that token. It is not safe for concurrent use on its own; callers (the
// Store) must serialize access with their own lock.
type Inverted struct {
	buckets map[string]map[string]struct{}
}

// NewInverted returns an empty inverted index.
func NewInverted() *Inverted {
	return &Inverted{buckets: make(map[string]map[string]struct{})}
}

// Add indexes value's tokens under key. Call Remove first when overwriting
// an existing key's value, or stale tokens will continue to resolve to key.
func (idx *Inverted) Add(key, value string) {
	for _, tok := range Tokenize(value) {
		bucket, ok := idx.buckets[tok]
		if !ok {
			bucket = make(map[string]struct{})
			idx.buckets[tok] = bucket
		}

		bucket[key] = struct{}{}
	}
}

// Remove un-indexes key from every token of oldValue. When a bucket becomes
// empty as a result, the token entry itself is deleted.
func (idx *Inverted) Remove(key, oldValue string) {
	for _, tok := range Tokenize(oldValue) {
		bucket, ok := idx.buckets[tok]
		if !ok {
			continue
		}

		delete(bucket, key)

		if len(bucket) == 0 {
			delete(idx.buckets, tok)
		}
	}
}

// SearchFullText tokenizes query and returns the union of keys matching any
// query token, with no duplicates. Order is unspecified.
func (idx *Inverted) SearchFullText(query string) []string {
	seen := make(map[string]struct{})

	for _, tok := range Tokenize(query) {
		for key := range idx.buckets[tok] {
			seen[key] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for key := range seen {
		out = append(out, key)
	}

	return out
}
