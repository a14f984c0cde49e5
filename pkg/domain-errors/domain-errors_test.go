package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

type DomainErrorsSuite struct {
	suite.Suite
}

func TestDomainErrorsSuite(t *testing.T) {
	suite.Run(t, new(DomainErrorsSuite))
}

func (s *DomainErrorsSuite) TestErrorMessage() {
	s.Run("message wins over code", func() {
		err := &Error{Code: CodeConflict, Message: "email already registered"}
		s.Equal("email already registered", err.Error())
	})

	s.Run("code used when message empty", func() {
		err := &Error{Code: CodeRateLimited}
		s.Equal("rate_limited", err.Error())
	})
}

func (s *DomainErrorsSuite) TestIsMatchesByCode() {
	err := fmt.Errorf("register: %w", New(CodeConflict, "email already registered"))
	s.True(errors.Is(err, &Error{Code: CodeConflict}))
	s.False(errors.Is(err, &Error{Code: CodeNotFound}))
}

func (s *DomainErrorsSuite) TestWrap() {
	s.Run("keeps original domain code", func() {
		inner := New(CodeNotFound, "user not found")
		wrapped := Wrap(inner, CodeInternal, "lookup failed")
		s.True(HasCode(wrapped, CodeNotFound))
		s.Equal("lookup failed", wrapped.Error())
	})

	s.Run("applies code to plain errors", func() {
		root := errors.New("connection refused")
		wrapped := Wrap(root, CodeInternal, "save user")
		s.True(HasCode(wrapped, CodeInternal))
		s.ErrorIs(wrapped, root)
	})
}

func (s *DomainErrorsSuite) TestHasCodeOnPlainError() {
	s.False(HasCode(errors.New("boom"), CodeInternal))
	s.False(HasCode(nil, CodeInternal))
}
