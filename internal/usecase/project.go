package usecase

import "semstore/internal/domain"

// Project returns the payload of each hit in order, dropping ID and score.
func Project(hits []domain.QueryHit) []domain.Payload {
	payloads := make([]domain.Payload, len(hits))
	for i, h := range hits {
		payloads[i] = h.Payload
	}
	return payloads
}
