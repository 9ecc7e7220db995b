package errors

import (
	"context"
	"fmt"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/protoadapt"
)

const errorDomain = "rpg-builder"

// ToGRPCError converts an error to a gRPC status error.
// Validation failures carry a BadRequest detail and reasons an ErrorInfo.
func ToGRPCError(err error) error {
	if err == nil {
		return nil
	}

	if _, ok := status.FromError(err); ok {
		return err
	}

	var customErr *Error
	if !As(err, &customErr) {
		return status.Error(codes.Internal, err.Error())
	}

	st := status.New(customErr.Code.GRPCCode(), customErr.Message)

	var details []protoadapt.MessageV1
	if violations := GetViolations(customErr); len(violations) > 0 {
		badRequest := &errdetails.BadRequest{}
		for _, v := range violations {
			badRequest.FieldViolations = append(badRequest.FieldViolations, &errdetails.BadRequest_FieldViolation{
				Field:       v.Field,
				Description: fmt.Sprintf("%s: %s", v.Reason, v.Message),
			})
		}
		details = append(details, badRequest)
	}
	if reason := GetReason(customErr); reason != "" {
		info := &errdetails.ErrorInfo{
			Reason:   reason,
			Domain:   errorDomain,
			Metadata: map[string]string{},
		}
		for k, v := range customErr.Meta {
			if s, ok := v.(string); ok && k != MetaReason {
				info.Metadata[k] = s
			}
		}
		details = append(details, info)
	}

	if len(details) > 0 {
		if withDetails, detailErr := st.WithDetails(details...); detailErr == nil {
			st = withDetails
		}
	}

	return st.Err()
}

// UnaryServerInterceptor translates domain errors returned by handlers into gRPC statuses
func UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		if err != nil {
			return resp, ToGRPCError(err)
		}
		return resp, nil
	}
}
