// Package bloom provides a probabilistic prefilter for dedup keys.
package bloom

import (
	"github.com/bits-and-blooms/bloom/v3"
	"github.com/fwojciec/refinery"
)

// KeyFilter remembers the dedup keys of stored records. A negative answer
// is definite, so stores can skip an exact lookup for keys never seen.
// A positive answer still needs that lookup.
type KeyFilter struct {
	f *bloom.BloomFilter
}

// NewKeyFilter creates a KeyFilter sized for n keys with the given false
// positive rate. Exceeding n raises the false positive rate but never
// produces a false negative.
func NewKeyFilter(n uint, fpRate float64) *KeyFilter {
	if n == 0 {
		n = 1
	}
	return &KeyFilter{f: bloom.NewWithEstimates(n, fpRate)}
}

// Add records both match paths of key.
func (k *KeyFilter) Add(key refinery.DedupKey) {
	if key.HasTitleDate() {
		k.f.AddString(titleDateEntry(key))
	}
	if key.URL != "" {
		k.f.AddString(urlEntry(key))
	}
}

// MayContain reports whether a key matching key might have been added.
// It follows refinery.DedupKey.Matches: title and date together, or the
// canonical URL.
func (k *KeyFilter) MayContain(key refinery.DedupKey) bool {
	if key.HasTitleDate() && k.f.TestString(titleDateEntry(key)) {
		return true
	}
	return key.URL != "" && k.f.TestString(urlEntry(key))
}

func titleDateEntry(key refinery.DedupKey) string {
	return "t\x00" + key.Title + "\x00" + key.Date
}

func urlEntry(key refinery.DedupKey) string {
	return "u\x00" + key.URL
}
