package llm

import "strings"

// DefaultChunkSize is the rune length of a re-chunked slice.
const DefaultChunkSize = 30

// Rechunk splits s into consecutive slices of at most size runes.
// A non-positive size uses DefaultChunkSize.
func Rechunk(s string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if s == "" {
		return nil
	}
	rs := []rune(s)
	out := make([]string, 0, (len(rs)+size-1)/size)
	for i := 0; i < len(rs); i += size {
		end := min(i+size, len(rs))
		out = append(out, string(rs[i:end]))
	}
	return out
}

// reassemble is the inverse of Rechunk.
func reassemble(chunks []string) string {
	return strings.Join(chunks, "")
}
