package usecase

import (
	"github.com/google/uuid"
	"semstore/internal/domain"
	"semstore/internal/port"
)

// RandomIDs gives every record a fresh UUIDv4, so saving the same text twice
// yields two points.
type RandomIDs struct{}

func (RandomIDs) NewID(domain.EmbeddedRecord) string {
	return uuid.New().String()
}

// ContentIDs derives a UUIDv5 from text and ref. Re-saving identical content
// overwrites the existing point instead of adding one.
type ContentIDs struct {
	Namespace uuid.UUID
}

func (g ContentIDs) NewID(r domain.EmbeddedRecord) string {
	ns := g.Namespace
	if ns == uuid.Nil {
		ns = uuid.NameSpaceURL
	}
	return uuid.NewSHA1(ns, []byte(r.OriginalText+"\x00"+r.Ref)).String()
}

// PointCodec converts records into storage points.
type PointCodec struct {
	ids port.IDGenerator
}

func NewPointCodec(ids port.IDGenerator) *PointCodec {
	if ids == nil {
		ids = RandomIDs{}
	}
	return &PointCodec{ids: ids}
}

func (c *PointCodec) ToPoint(r domain.EmbeddedRecord) domain.Point {
	vector := make([]float32, len(r.Vector))
	copy(vector, r.Vector)
	return domain.Point{
		ID:     c.ids.NewID(r),
		Vector: vector,
		Payload: domain.Payload{
			OriginalText: r.OriginalText,
			Ref:          r.Ref,
		},
	}
}

// ToPoints keeps input order. Empty input gives an empty, non-nil slice.
func (c *PointCodec) ToPoints(records []domain.EmbeddedRecord) []domain.Point {
	points := make([]domain.Point, 0, len(records))
	for _, r := range records {
		points = append(points, c.ToPoint(r))
	}
	return points
}
