package domain

import (
	"fmt"
	"strings"
)

// EmbeddedRecord is a piece of text together with its pre-computed embedding.
type EmbeddedRecord struct {
	Vector       []float32 `json:"vector"`
	OriginalText string    `json:"original_text"`
	Ref          string    `json:"ref"`
}

// Payload is the part of a stored point returned to callers.
type Payload struct {
	OriginalText string `json:"original_text"`
	Ref          string `json:"ref"`
}

type Point struct {
	ID      string
	Vector  []float32
	Payload Payload
}

// QueryHit is a single search result. Higher Score means more similar.
type QueryHit struct {
	ID      string
	Score   float64
	Payload Payload
}

type Collection struct {
	Name      string
	Dimension int
	Distance  Distance
}

// Distance is the similarity metric of a collection, spelled as Qdrant spells it.
type Distance string

const (
	Cosine Distance = "Cosine"
	Dot    Distance = "Dot"
	Euclid Distance = "Euclid"
)

// ParseDistance matches a metric name case-insensitively.
func ParseDistance(s string) (Distance, error) {
	for _, d := range []Distance{Cosine, Dot, Euclid} {
		if strings.EqualFold(s, string(d)) {
			return d, nil
		}
	}
	return "", Configuration("parse distance", fmt.Errorf("unknown distance metric %q", s))
}

// Policy controls how a collection is provisioned on startup.
type Policy int

const (
	// CreateIfMissing creates the collection only when it does not exist yet.
	CreateIfMissing Policy = iota
	// AlwaysRecreate drops the collection and every point in it, then creates it again.
	AlwaysRecreate
)

func (p Policy) String() string {
	switch p {
	case CreateIfMissing:
		return "create-if-missing"
	case AlwaysRecreate:
		return "always-recreate"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}
