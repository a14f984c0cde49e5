package service

import (
	"errors"

	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/sentinel"
	dErrors "github.com/mrlts-del/cigar-accessories-v5-sub001/pkg/domain-errors"
)

// wrapStoreError is the single place store sentinels become domain errors.
func (s *Service) wrapStoreError(err error, msg string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, msg)
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.Wrap(err, dErrors.CodeConflict, msg)
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, msg)
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}

var errInvalidCredentials = dErrors.New(dErrors.CodeUnauthorized, "invalid email or password")
