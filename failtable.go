package failtable

import (
	"errors"
	"unicode/utf8"

	"github.com/viniciusth/rmq"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var (
	ErrInvalidUTF8 = errors.New("failtable: invalid UTF-8 encoding in pattern")
	ErrShortBuffer = errors.New("failtable: destination shorter than len(pattern)+1")
	ErrRange       = errors.New("failtable: invalid range")
)

type Builder struct {
	pattern       string
	compress      bool
	runes         bool
	foldCase      bool
	normalize     bool
	useRangeIndex bool
}

func NewBuilder(pattern string) *Builder {
	return &Builder{
		pattern:       pattern,
		useRangeIndex: true,
	}
}

// Builds the optimized table: when pattern[i] == pattern[table[i]] a mismatch at i
// would also mismatch at table[i], so i inherits table[table[i]] directly.
// The entry for the full pattern is unaffected.
func (b *Builder) Compress() *Builder {
	b.compress = true
	return b
}

// Indexes the table by rune instead of by byte. Requires valid UTF-8.
func (b *Builder) Runes() *Builder {
	b.runes = true
	return b
}

// Case folds the pattern before building. Requires valid UTF-8.
func (b *Builder) FoldCase() *Builder {
	b.foldCase = true
	return b
}

// Normalizes the pattern with NFC before building. Requires valid UTF-8.
func (b *Builder) Normalize() *Builder {
	b.normalize = true
	return b
}

// Skips the range minimum index, MinFallback becomes a linear scan.
// Saves O(n) memory.
func (b *Builder) SkipRangeIndex() *Builder {
	b.useRangeIndex = false
	return b
}

func (b *Builder) Build() (*Table, error) {
	pattern := b.pattern
	if (b.runes || b.foldCase || b.normalize) && !utf8.ValidString(pattern) {
		return nil, ErrInvalidUTF8
	}
	pattern = applyTransforms(pattern, b.foldCase, b.normalize)

	var values []int
	var n int
	if b.runes {
		r := []rune(pattern)
		n = len(r)
		values = BuildNext(r, b.compress)
	} else {
		n = len(pattern)
		values = BuildNext([]byte(pattern), b.compress)
	}

	var index *rmq.RMQHybridNaive[int]
	if b.useRangeIndex {
		index = rmq.NewRMQHybridNaive(values)
	}
	return &Table{
		values:     values,
		pattern:    pattern,
		n:          n,
		compressed: b.compress,
		runes:      b.runes,
		index:      index,
	}, nil
}

func applyTransforms(pattern string, foldCase, normalize bool) string {
	if foldCase {
		pattern = cases.Fold().String(pattern)
	}
	if normalize {
		pattern = norm.NFC.String(pattern)
	}
	return pattern
}

// Table is a failure table for a fixed pattern. It is never modified after
// Build and is safe for concurrent reads.
type Table struct {
	values     []int
	pattern    string
	n          int
	compressed bool
	runes      bool
	index      *rmq.RMQHybridNaive[int]
}

// Number of entries, PatternLen()+1.
func (t *Table) Len() int { return len(t.values) }

// Pattern length in bytes, or in runes for a rune table.
func (t *Table) PatternLen() int { return t.n }

// The pattern after case folding and normalization.
func (t *Table) Pattern() string { return t.pattern }

func (t *Table) Compressed() bool { return t.compressed }
func (t *Table) Runes() bool      { return t.runes }

// Fallback returns the position to resume comparison from after a mismatch
// at pattern position i, or -1 to restart past the current text character.
// For i == PatternLen() it is the resume position after a full match.
func (t *Table) Fallback(i int) int {
	return t.values[i]
}

func (t *Table) Values() []int {
	values := make([]int, len(t.values))
	copy(values, t.values)
	return values
}

// Length of the longest proper border of the whole pattern.
func (t *Table) Border() int {
	if t.n == 0 {
		return 0
	}
	return t.values[t.n]
}

// Smallest p > 0 with pattern[i] == pattern[i+p] for all valid i, 0 for the
// empty pattern.
func (t *Table) Period() int {
	return t.n - t.Border()
}

// MinFallback returns an index in [l, r] whose fallback is minimal.
func (t *Table) MinFallback(l, r int) (int, error) {
	if l < 0 || r >= len(t.values) || l > r {
		return -1, ErrRange
	}
	if t.index != nil {
		return t.index.Query(l, r), nil
	}
	best := l
	for i := l + 1; i <= r; i++ {
		if t.values[i] < t.values[best] {
			best = i
		}
	}
	return best, nil
}
