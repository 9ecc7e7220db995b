package errors_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/suite"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/KirkDiggler/rpg-builder/internal/errors"
)

type ErrorsTestSuite struct {
	suite.Suite
}

func TestErrorsSuite(t *testing.T) {
	suite.Run(t, new(ErrorsTestSuite))
}

func (s *ErrorsTestSuite) TestNewError() {
	testCases := []struct {
		name     string
		code     errors.Code
		message  string
		expected string
	}{
		{
			name:     "not found error",
			code:     errors.CodeNotFound,
			message:  "draft not found",
			expected: "NOT_FOUND: draft not found",
		},
		{
			name:     "invalid argument error",
			code:     errors.CodeInvalidArgument,
			message:  "invalid input",
			expected: "INVALID_ARGUMENT: invalid input",
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			err := errors.New(tc.code, tc.message)
			s.Equal(tc.expected, err.Error())
			s.Equal(tc.code, err.Code)
			s.Equal(tc.message, err.Message)
		})
	}
}

func (s *ErrorsTestSuite) TestWrapPreservesCode() {
	s.Run("plain error becomes internal", func() {
		base := fmt.Errorf("connection reset")
		wrapped := errors.Wrap(base, "failed to load draft")

		s.Equal(errors.CodeInternal, wrapped.Code)
		s.Equal(base, wrapped.Unwrap())
	})

	s.Run("structured error keeps code and meta", func() {
		base := errors.UnknownStep("backstory")
		wrapped := errors.Wrapf(base, "failed to apply step %s", "backstory")

		s.True(errors.IsNotFound(wrapped))
		s.True(errors.IsUnknownStep(wrapped))
		s.Equal("failed to apply step backstory", errors.GetMessage(wrapped))
	})

	s.Run("wrap with code replaces code", func() {
		wrapped := errors.WrapWithCode(errors.NotFound("gone"), errors.CodeInternal, "bad state")
		s.True(errors.IsInternal(wrapped))
	})

	s.Run("nil stays nil", func() {
		s.Nil(errors.Wrap(nil, "nothing"))
	})
}

func (s *ErrorsTestSuite) TestBuilderKinds() {
	s.Run("forbidden", func() {
		err := errors.Forbidden("draft", "d1")
		s.True(errors.IsPermissionDenied(err))
		s.Equal(http.StatusForbidden, err.Code.HTTPStatus())
		s.Equal(errors.ReasonOwnerMismatch, errors.GetReason(err))
	})

	s.Run("catalog unavailable", func() {
		err := errors.CatalogUnavailable()
		s.True(errors.IsCatalogUnavailable(err))
		s.Equal(http.StatusServiceUnavailable, err.Code.HTTPStatus())
	})

	s.Run("plain unavailable is not a catalog error", func() {
		s.False(errors.IsCatalogUnavailable(errors.Unavailable("redis down")))
	})

	s.Run("errors.Is compares codes", func() {
		s.True(errors.Is(errors.NotFound("a"), errors.NotFound("b")))
		s.False(errors.Is(errors.NotFound("a"), errors.Internal("b")))
	})
}

func (s *ErrorsTestSuite) TestToGRPCError() {
	s.Run("validation violations become bad request details", func() {
		err := errors.NewValidationBuilder().
			Violation("skills", errors.ReasonTooMany, "at most 2 skills").
			Build()

		grpcErr := errors.ToGRPCError(err)
		st, ok := status.FromError(grpcErr)
		s.Require().True(ok)
		s.Equal(codes.InvalidArgument, st.Code())

		var found bool
		for _, detail := range st.Details() {
			if br, ok := detail.(*errdetails.BadRequest); ok {
				found = true
				s.Require().Len(br.GetFieldViolations(), 1)
				s.Equal("skills", br.GetFieldViolations()[0].GetField())
			}
		}
		s.True(found)
	})

	s.Run("reason becomes error info", func() {
		st, ok := status.FromError(errors.ToGRPCError(errors.UnknownStep("backstory")))
		s.Require().True(ok)
		s.Equal(codes.NotFound, st.Code())

		var info *errdetails.ErrorInfo
		for _, detail := range st.Details() {
			if i, ok := detail.(*errdetails.ErrorInfo); ok {
				info = i
			}
		}
		s.Require().NotNil(info)
		s.Equal(errors.ReasonUnknownStep, info.GetReason())
		s.Equal("backstory", info.GetMetadata()["step"])
	})

	s.Run("unknown error is internal", func() {
		st, _ := status.FromError(errors.ToGRPCError(fmt.Errorf("boom")))
		s.Equal(codes.Internal, st.Code())
	})

	s.Run("nil passes through", func() {
		s.NoError(errors.ToGRPCError(nil))
	})
}
