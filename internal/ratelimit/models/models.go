package models

import (
	s "github.com/mrlts-del/cigar-accessories-v5-sub001/pkg/string"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/pkg/validation"
)

// ResetRateLimitRequest clears every recorded request for one identifier.
type ResetRateLimitRequest struct {
	Identifier string `json:"identifier" validate:"required,notblank,max=64"`
}

func (r *ResetRateLimitRequest) Normalize() {
	s.TrimStrings(&r.Identifier)
}

func (r *ResetRateLimitRequest) Validate() error {
	return validation.Validate(r)
}

type ResetRateLimitResponse struct {
	Identifier string `json:"identifier"`
	Reset      bool   `json:"reset"`
}

type StatusResponse struct {
	TrackedIdentifiers int `json:"tracked_identifiers"`
}
