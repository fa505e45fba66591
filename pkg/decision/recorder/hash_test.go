package recorder

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"keystone-mrm/arbiter/pkg/usecase"
)

func computeSHA256(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

func TestHashContent(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
		want    string
	}{
		{"empty", []byte{}, ""},
		{"nil", nil, ""},
		{"text", []byte("hello world"), computeSHA256("hello world")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := hashContent(tt.content); got != tt.want {
				t.Errorf("hashContent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHashJSON(t *testing.T) {
	got, err := HashJSON(map[string]int{"b": 2, "a": 1})
	if err != nil {
		t.Fatalf("HashJSON() error = %v", err)
	}
	if want := computeSHA256(`{"a":1,"b":2}`); got != want {
		t.Errorf("HashJSON() = %v, want %v", got, want)
	}

	var nilRecord *usecase.Record
	if got, _ := HashJSON(nilRecord); got != "" {
		t.Errorf("HashJSON(nil record) = %q, want empty", got)
	}
	if got, _ := HashJSON(nil); got != "" {
		t.Errorf("HashJSON(nil) = %q, want empty", got)
	}

	if _, err := HashJSON(make(chan int)); err == nil {
		t.Error("HashJSON(chan) expected error")
	}
}
