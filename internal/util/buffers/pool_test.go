package buffers

import (
	"testing"

	"github.com/notanas/notanas-cli/internal/constants"
)

func TestCopyBufferSize(t *testing.T) {
	buf := GetCopyBuffer()
	defer PutCopyBuffer(buf)
	if len(*buf) != constants.CopyBufferSize {
		t.Errorf("got %d bytes, want %d", len(*buf), constants.CopyBufferSize)
	}
}

func TestPutClearsAndIgnoresWrongSize(t *testing.T) {
	buf := GetCopyBuffer()
	(*buf)[0] = 0xFF
	PutCopyBuffer(buf)
	if (*buf)[0] != 0 {
		t.Error("buffer should be cleared on put")
	}

	small := make([]byte, 10)
	PutCopyBuffer(&small)
	PutCopyBuffer(nil)
	if Allocations() < 1 {
		t.Error("expected at least one allocation")
	}
}
