package provider

import (
	"errors"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"golang.org/x/oauth2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/apresai/podcraft/internal/retry"
)

// ClassifyAWS marks AWS SDK errors with a 4xx response other than 429 as
// permanent. Errors without an HTTP response pass through unchanged.
func ClassifyAWS(err error) error {
	var re *awshttp.ResponseError
	if errors.As(err, &re) {
		return ClassifyStatus(err, re.HTTPStatusCode())
	}
	return err
}

// ClassifyGRPC marks gRPC errors that repeat on every attempt as permanent:
// bad requests and rejected credentials.
func ClassifyGRPC(err error) error {
	if err == nil {
		return nil
	}
	s, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch s.Code() {
	case codes.InvalidArgument, codes.PermissionDenied, codes.Unauthenticated:
		return retry.Permanent(err)
	}
	return err
}

// ClassifyToken marks a failed OAuth token fetch permanent when the token
// endpoint rejected the request with a client error.
func ClassifyToken(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		return ClassifyStatus(err, re.Response.StatusCode)
	}
	return err
}
