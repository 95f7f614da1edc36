package provider

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"golang.org/x/oauth2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/apresai/podcraft/internal/retry"
)

func TestClassifyStatus(t *testing.T) {
	base := errors.New("boom")
	tests := []struct {
		status    int
		permanent bool
	}{
		{0, false},
		{400, true},
		{401, true},
		{404, true},
		{429, false},
		{500, false},
		{503, false},
	}
	for _, tt := range tests {
		err := ClassifyStatus(base, tt.status)
		if got := retry.IsPermanent(err); got != tt.permanent {
			t.Errorf("status %d: permanent = %v, want %v", tt.status, got, tt.permanent)
		}
		if !errors.Is(err, base) {
			t.Errorf("status %d: original error lost", tt.status)
		}
	}
}

func awsError(code int) error {
	return fmt.Errorf("polly synthesize: %w", &awshttp.ResponseError{
		ResponseError: &smithyhttp.ResponseError{
			Response: &smithyhttp.Response{Response: &http.Response{StatusCode: code}},
			Err:      errors.New("denied"),
		},
	})
}

func TestClassifyAWS(t *testing.T) {
	if err := ClassifyAWS(awsError(403)); !retry.IsPermanent(err) {
		t.Errorf("403 not permanent: %v", err)
	}
	if err := ClassifyAWS(awsError(429)); retry.IsPermanent(err) {
		t.Errorf("429 marked permanent")
	}
	if err := ClassifyAWS(awsError(500)); retry.IsPermanent(err) {
		t.Errorf("500 marked permanent")
	}
	if err := ClassifyAWS(errors.New("dial tcp: timeout")); retry.IsPermanent(err) {
		t.Errorf("network error marked permanent")
	}
}

func TestClassifyGRPC(t *testing.T) {
	tests := []struct {
		code      codes.Code
		permanent bool
	}{
		{codes.Unauthenticated, true},
		{codes.PermissionDenied, true},
		{codes.InvalidArgument, true},
		{codes.Unavailable, false},
		{codes.ResourceExhausted, false},
	}
	for _, tt := range tests {
		err := ClassifyGRPC(fmt.Errorf("synthesize: %w", status.Error(tt.code, "x")))
		if got := retry.IsPermanent(err); got != tt.permanent {
			t.Errorf("%v: permanent = %v, want %v", tt.code, got, tt.permanent)
		}
	}
	if ClassifyGRPC(nil) != nil {
		t.Error("nil error changed")
	}
}

func TestClassifyToken(t *testing.T) {
	rejected := fmt.Errorf("fetch access token: %w", &oauth2.RetrieveError{Response: &http.Response{StatusCode: 401}})
	if !retry.IsPermanent(ClassifyToken(rejected)) {
		t.Error("401 from token endpoint not permanent")
	}
	outage := fmt.Errorf("fetch access token: %w", &oauth2.RetrieveError{Response: &http.Response{StatusCode: 502}})
	if retry.IsPermanent(ClassifyToken(outage)) {
		t.Error("502 from token endpoint marked permanent")
	}
}
