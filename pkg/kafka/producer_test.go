package kafka

import (
	"testing"

	"github.com/segmentio/kafka-go"
)

func TestEncodeValue(t *testing.T) {
	b, err := encodeValue(map[string]int{"n": 1})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(b) != `{"n":1}` {
		t.Fatalf("unexpected json %s", b)
	}
	raw, _ := encodeValue([]byte("x"))
	if string(raw) != "x" {
		t.Fatalf("bytes should pass through")
	}
	if _, err := encodeValue(func() {}); err == nil {
		t.Fatalf("expected marshal error")
	}
}

func TestNewProducerRequiresBrokers(t *testing.T) {
	if _, err := NewProducer(); err == nil {
		t.Fatalf("expected error without brokers")
	}
}

func TestParseCompressionDefaultsToGzip(t *testing.T) {
	if parseCompression("bogus") != kafka.Gzip {
		t.Fatalf("expected gzip fallback")
	}
	if parseCompression("zstd") != kafka.Zstd {
		t.Fatalf("expected zstd")
	}
}
