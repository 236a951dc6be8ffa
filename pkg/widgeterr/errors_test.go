package widgeterr

import (
	"errors"
	"fmt"
	"testing"
)

func TestConfigurationErrorMatchesThroughWrapping(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("grid: new: %w", Configuration("grid", "endpoint is required"))
	if !IsConfiguration(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if IsNetwork(err) {
		t.Fatalf("configuration error must not match network")
	}
	if got, want := err.Error(), "grid: new: grid: configuration: endpoint is required"; got != want {
		t.Fatalf("message mismatch\nwant: %q\n got: %q", want, got)
	}
}

func TestNetworkErrorUnwraps(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection refused")
	err := &NetworkError{Op: "POST", URL: "/api/users", Status: 502, Err: cause}
	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to reach cause")
	}
	want := "network: POST /api/users: status 502 Bad Gateway: connection refused"
	if err.Error() != want {
		t.Fatalf("message mismatch\nwant: %q\n got: %q", want, err.Error())
	}
}

func TestFieldErrorsSortedMessage(t *testing.T) {
	t.Parallel()

	err := FieldErrors{"name": "Name is required", "age": "Age must be at least 18"}
	want := "validation: age: Age must be at least 18; name: Name is required"
	if err.Error() != want {
		t.Fatalf("message mismatch\nwant: %q\n got: %q", want, err.Error())
	}
}

func TestUploadConstraintError(t *testing.T) {
	t.Parallel()

	var err error = &UploadConstraintError{Field: "avatar", Message: "Maximum 2 files allowed"}
	if !IsUploadConstraint(err) {
		t.Fatalf("expected upload constraint error")
	}
	if err.Error() != "upload: avatar: Maximum 2 files allowed" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
