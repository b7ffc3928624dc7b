// Package buffers pools the copy buffers used when streaming downloads.
package buffers

import (
	"sync"
	"sync/atomic"

	"github.com/notanas/notanas-cli/internal/constants"
)

var allocations int64

var copyPool = &sync.Pool{
	New: func() interface{} {
		atomic.AddInt64(&allocations, 1)
		buf := make([]byte, constants.CopyBufferSize)
		return &buf
	},
}

// GetCopyBuffer retrieves a buffer from the pool. Return it with PutCopyBuffer.
//
//	buf := buffers.GetCopyBuffer()
//	defer buffers.PutCopyBuffer(buf)
//	io.CopyBuffer(dst, src, *buf)
func GetCopyBuffer() *[]byte {
	return copyPool.Get().(*[]byte)
}

// PutCopyBuffer returns a buffer to the pool. Buffers of the wrong size are
// dropped. The contents are cleared first.
func PutCopyBuffer(buf *[]byte) {
	if buf != nil && len(*buf) == constants.CopyBufferSize {
		clear(*buf)
		copyPool.Put(buf)
	}
}

// Allocations returns how many buffers the pool has allocated.
func Allocations() int64 {
	return atomic.LoadInt64(&allocations)
}
