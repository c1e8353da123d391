package sqsoffline

import (
	"errors"
	"strings"
	"testing"

	"github.com/civocr/serverless-offline-localstack-sqs/internal/invoker"
)

func TestErrorMessages(t *testing.T) {
	for _, err := range []error{ErrClientClosed, ErrRedisConnectionFailed, ErrJournalNotConfigured} {
		if !strings.HasPrefix(err.Error(), "sqsoffline: ") {
			t.Errorf("expected package prefix on %q", err.Error())
		}
	}
}

func TestHandlerErrorReexports(t *testing.T) {
	// The re-exported vars must be the same sentinels the invoker returns,
	// so errors.Is works across the package boundary.
	if !errors.Is(ErrHandlerNotFound, invoker.ErrHandlerNotFound) {
		t.Error("ErrHandlerNotFound does not match invoker sentinel")
	}
	if !errors.Is(ErrHandlerNotCallable, invoker.ErrHandlerNotCallable) {
		t.Error("ErrHandlerNotCallable does not match invoker sentinel")
	}
	if !errors.Is(ErrHandlerTimeout, invoker.ErrHandlerTimeout) {
		t.Error("ErrHandlerTimeout does not match invoker sentinel")
	}
}

func TestPollerStatusConstants(t *testing.T) {
	statuses := map[PollerStatus]string{
		PollerStopped:  "stopped",
		PollerStarting: "starting",
		PollerPolling:  "polling",
		PollerStopping: "stopping",
	}
	for status, expected := range statuses {
		if string(status) != expected {
			t.Errorf("expected %q, got %q", expected, string(status))
		}
	}
}
