package query

// Window returns the items whose index i satisfies limit < i <= offset.
// The caller guarantees offset > limit >= 0; the result is never nil.
func Window[T any](items []T, limit, offset int) []T {
	start := limit + 1
	if start < 0 {
		start = 0
	}
	end := offset + 1
	if end > len(items) {
		end = len(items)
	}
	if start >= end {
		return []T{}
	}
	out := make([]T, end-start)
	copy(out, items[start:end])
	return out
}
