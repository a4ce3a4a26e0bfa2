package enrichment

const (
	chunkSize    = 800
	chunkOverlap = 150
)

// Chunk is one retrievable slice of a source document.
type Chunk struct {
	Source string
	Text   string
}

// SplitDocuments cuts each document into fixed-size overlapping chunks
// tagged with their source.
func SplitDocuments(docs []Document) []Chunk {
	var out []Chunk
	for _, d := range docs {
		for _, piece := range split(d.Text, chunkSize, chunkOverlap) {
			out = append(out, Chunk{Source: d.Source, Text: piece})
		}
	}
	return out
}

func split(text string, size, overlap int) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= size {
		return []string{text}
	}

	step := size - overlap
	var out []string
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return out
}
