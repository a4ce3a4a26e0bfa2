package transcript

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestParseJSONLEmpty(t *testing.T) {
	items, err := ParseJSONL(strings.NewReader(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected 0 utterances, got %d", len(items))
	}
}

func TestParseJSONLSkipsBlankLines(t *testing.T) {
	in := `{"speaker_id":"a","type":"speech","text":"hello","start_ts":0,"stop_ts":1}

{"speaker_id":"b","type":"speech","text":"hi","start_ts":1,"stop_ts":2}
`
	items, err := ParseJSONL(strings.NewReader(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 utterances, got %d", len(items))
	}
	if items[0].SpeakerID != "a" || items[1].Text != "hi" {
		t.Fatalf("unexpected utterances: %+v", items)
	}
}

func TestParseJSONLReportsLineNumber(t *testing.T) {
	in := `{"speaker_id":"a","text":"ok","start_ts":0,"stop_ts":1}
not json
`
	_, err := ParseJSONL(strings.NewReader(in))
	if err == nil {
		t.Fatal("expected error")
	}
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if pe.Line != 2 {
		t.Fatalf("expected line 2, got %d", pe.Line)
	}
}

func TestParseJSONLNumericTimestamps(t *testing.T) {
	in := `{"speaker_id":"a","text":"hello","start_ts":120,"stop_ts":980}` + "\n"

	items, err := ParseJSONL(strings.NewReader(in))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 utterance, got %d", len(items))
	}
	if items[0].StartTs != 120 || items[0].StopTs != 980 {
		t.Fatalf("timestamps not preserved: %+v", items[0])
	}
}

func TestRoundTripPreservesFields(t *testing.T) {
	in := `{"speaker_id":"spk-1","type":"speech","text":"So, tell me about yourself.","start_ts":12.5,"stop_ts":15.75}` + "\n"

	items, err := ParseJSONL(strings.NewReader(in))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	out, err := MarshalJSONL(items)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	items2, err := ParseJSONL(strings.NewReader(string(out)))
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if len(items2) != 1 {
		t.Fatalf("expected 1 utterance, got %d", len(items2))
	}
	got := items2[0]
	if got.SpeakerID != "spk-1" || got.Type != "speech" ||
		got.Text != "So, tell me about yourself." ||
		got.StartTs != 12.5 || got.StopTs != 15.75 {
		t.Fatalf("round trip mutated fields: %+v", got)
	}
}

func TestFetcherFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"speaker_id":"a","text":"one","start_ts":0,"stop_ts":1}` + "\n"))
	}))
	defer srv.Close()

	f := NewFetcher(5 * time.Second)
	items, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(items) != 1 || items[0].Text != "one" {
		t.Fatalf("unexpected result: %+v", items)
	}
}

func TestFetcherFetchBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewFetcher(5 * time.Second)
	if _, err := f.Fetch(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error for 404")
	}
}

func TestPlainTextFallsBackToSpeakerID(t *testing.T) {
	items := []Utterance{
		{SpeakerID: "spk-1", Text: "hello", User: &Member{Name: "Ada"}},
		{SpeakerID: "spk-2", Text: "hi"},
	}
	got := PlainText(items)
	want := "Ada: hello\nspk-2: hi\n"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
