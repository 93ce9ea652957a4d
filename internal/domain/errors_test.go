package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorIsMatchesKind(t *testing.T) {
	err := Storage("save", Connection("upsert", errors.New("connection reset")))

	if !errors.Is(err, ErrStorage) {
		t.Error("expected storage kind to match")
	}
	if !errors.Is(err, ErrConnection) {
		t.Error("expected wrapped connection kind to match")
	}
	if errors.Is(err, ErrEmbedding) {
		t.Error("did not expect embedding kind to match")
	}
	if KindOf(err) != KindStorage {
		t.Errorf("expected outer kind storage, got %s", KindOf(err))
	}
}

func TestErrorMessage(t *testing.T) {
	err := Configurationf("save", "vector has %d dimensions", 2)
	want := "save: configuration error: vector has 2 dimensions"
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
}

func TestKindOfPlainError(t *testing.T) {
	if k := KindOf(fmt.Errorf("plain")); k != "" {
		t.Errorf("expected no kind, got %s", k)
	}
	wrapped := fmt.Errorf("cli: %w", Embedding("embed", errors.New("down")))
	if KindOf(wrapped) != KindEmbedding {
		t.Errorf("expected embedding kind through fmt wrapping, got %s", KindOf(wrapped))
	}
}

func TestParseDistance(t *testing.T) {
	tests := []struct {
		in      string
		want    Distance
		wantErr bool
	}{
		{"cosine", Cosine, false},
		{"Cosine", Cosine, false},
		{"DOT", Dot, false},
		{"euclid", Euclid, false},
		{"manhattan", "", true},
	}
	for _, tt := range tests {
		got, err := ParseDistance(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrConfiguration) {
				t.Errorf("%s: expected configuration error, got %v", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("%s: expected %s, got %s (%v)", tt.in, tt.want, got, err)
		}
	}
}
