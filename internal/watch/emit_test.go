package watch

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"priceScope/internal/model"
)

func TestEmitterWritesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	emitter := NewEmitter(&buf)

	first := model.PricePoint{Pool: "0xaaa", BlockNumber: 100, SqrtPriceX96: "1"}
	second := model.PricePoint{Pool: "0xaaa", BlockNumber: 101, SqrtPriceX96: "2"}

	if err := emitter.Emit(first); err != nil {
		t.Fatalf("emit first: %v", err)
	}
	if err := emitter.Emit(second); err != nil {
		t.Fatalf("emit second: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}

	var decoded model.PricePoint
	if err := json.Unmarshal([]byte(lines[0]), &decoded); err != nil {
		t.Fatalf("unmarshal first line: %v", err)
	}
	if decoded.BlockNumber != 100 || decoded.SqrtPriceX96 != "1" {
		t.Fatalf("unexpected first point: %+v", decoded)
	}

	if err := json.Unmarshal([]byte(lines[1]), &decoded); err != nil {
		t.Fatalf("unmarshal second line: %v", err)
	}
	if decoded.BlockNumber != 101 || decoded.SqrtPriceX96 != "2" {
		t.Fatalf("unexpected second point: %+v", decoded)
	}
}
