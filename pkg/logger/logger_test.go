package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, "json", zerolog.InfoLevel)
	l.Info().Str("store_id", "1339").Msg("Store analyzed")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected a JSON line, got %q: %v", buf.String(), err)
	}
	if entry["store_id"] != "1339" || entry["message"] != "Store analyzed" {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, "json", zerolog.WarnLevel)
	l.Info().Msg("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info must be filtered at warn level, got %q", buf.String())
	}
}
