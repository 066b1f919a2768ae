package failtable

// Knuth-Morris-Pratt failure function in O(n) time.
// The returned table has len(pattern)+1 entries and table[0] is -1.
// With compress set, a position whose character equals the character at its
// fallback inherits the fallback's own entry.
func BuildNext[T comparable](pattern []T, compress bool) []int {
	table := make([]int, len(pattern)+1)
	buildNext(table, pattern, compress)
	return table
}

// Same as BuildNext but writes into dst, which must hold len(pattern)+1 ints.
// On ErrShortBuffer dst is left untouched.
func BuildNextInto[T comparable](dst []int, pattern []T, compress bool) error {
	if len(dst) < len(pattern)+1 {
		return ErrShortBuffer
	}
	buildNext(dst[:len(pattern)+1], pattern, compress)
	return nil
}

func buildNext[T comparable](table []int, pattern []T, compress bool) {
	n := len(pattern)
	i, j := 0, -1
	table[0] = -1
	for i < n {
		// j only grows by one per step, so the total fallback work is O(n).
		for j > -1 && pattern[i] != pattern[j] {
			j = table[j]
		}
		i++
		j++
		if i == n {
			table[n] = j
		} else if compress && pattern[i] == pattern[j] {
			table[i] = table[j]
		} else {
			table[i] = j
		}
	}
}
