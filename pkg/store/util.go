package store

// ChunkRange calls fn with half-open [start, end) windows of at most
// chunkSize elements until total is covered, stopping at the first error.
// A non-positive chunkSize yields a single window over the whole range.
func ChunkRange(total, chunkSize int, fn func(start, end int) error) error {
	if total <= 0 {
		return nil
	}
	if chunkSize <= 0 || chunkSize > total {
		chunkSize = total
	}
	for start := 0; start < total; {
		end := start + chunkSize
		if end > total {
			end = total
		}
		if err := fn(start, end); err != nil {
			return err
		}
		start = end
	}
	return nil
}

// DedupeStrings drops empty strings and duplicates, keeping first-seen order.
func DedupeStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
