package transcript

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Utterance is one line of a call transcript artifact. The wire field names
// are fixed by the transcription provider; round-tripping through ParseJSONL
// and MarshalJSONL preserves them exactly.
type Utterance struct {
	SpeakerID string  `json:"speaker_id"`
	Type      string  `json:"type,omitempty"`
	Text      string  `json:"text"`
	StartTs   float64 `json:"start_ts"`
	StopTs    float64 `json:"stop_ts"`
	User      *Member `json:"user,omitempty"`
}

// Member is the resolved display identity attached to an utterance. It is
// never persisted.
type Member struct {
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

// ParseError reports the first malformed transcript line.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("transcript line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseJSONL decodes a JSONL transcript strictly: every non-empty line must
// be a valid utterance object. An empty artifact yields an empty slice.
func ParseJSONL(r io.Reader) ([]Utterance, error) {
	var out []Utterance

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		var u Utterance
		if err := json.Unmarshal([]byte(raw), &u); err != nil {
			return nil, &ParseError{Line: line, Err: err}
		}
		out = append(out, u)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	if out == nil {
		out = []Utterance{}
	}
	return out, nil
}

// MarshalJSONL re-serializes utterances one JSON object per line.
func MarshalJSONL(items []Utterance) ([]byte, error) {
	var buf bytes.Buffer
	for i := range items {
		raw, err := json.Marshal(items[i])
		if err != nil {
			return nil, err
		}
		buf.Write(raw)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// Fetcher downloads transcript artifacts.
type Fetcher struct {
	httpClient *http.Client
}

func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{httpClient: &http.Client{Timeout: timeout}}
}

// Fetch downloads and parses the JSONL transcript at url.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]Utterance, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("transcript url required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch transcript: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch transcript: unexpected status %d", resp.StatusCode)
	}
	return ParseJSONL(resp.Body)
}

// PlainText flattens a resolved transcript into "Name: text" lines for model
// prompts. Unresolved speakers fall back to their raw speaker id.
func PlainText(items []Utterance) string {
	var b strings.Builder
	for i := range items {
		name := items[i].SpeakerID
		if items[i].User != nil && items[i].User.Name != "" {
			name = items[i].User.Name
		}
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(items[i].Text)
		b.WriteByte('\n')
	}
	return b.String()
}
