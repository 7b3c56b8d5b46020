package index

// Pair bundles the inverted full-text index and the embedding index that
// the Store keeps coherent with its primary map. Mutating methods
// (Add/Remove) are only ever called by the Store under its own lock; Pair
// itself holds no lock.
type Pair struct {
	Inverted  *Inverted
	Embedding *Embedding
}

// NewPair returns an empty Index Pair.
func NewPair() *Pair {
	return &Pair{Inverted: NewInverted(), Embedding: NewEmbedding()}
}

// Add indexes value under key in both indexes.
func (p *Pair) Add(key, value string) {
	p.Inverted.Add(key, value)
	p.Embedding.Add(key, value)
}

// Remove un-indexes key (whose prior value was oldValue) from both
// indexes. Callers must invoke Remove before Add when overwriting an
// existing key, or stale tokens from the old value will remain indexed.
func (p *Pair) Remove(key, oldValue string) {
	p.Inverted.Remove(key, oldValue)
	p.Embedding.Remove(key)
}
