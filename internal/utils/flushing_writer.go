package utils

import (
	"io"
	"sync"
)

type flusher interface {
	Flush() error
}

type syncer interface {
	Sync() error
}

// FlushingWriter serializes writes and pushes each one through buffered
// writers (Flush) or file-backed writers (Sync) so report lines appear as they
// are produced.
type FlushingWriter struct {
	writer io.Writer
	mutex  sync.Mutex
}

// NewFlushingWriter wraps writer. Nil stays nil and wrapping is idempotent.
func NewFlushingWriter(writer io.Writer) io.Writer {
	if writer == nil {
		return nil
	}
	if _, alreadyWrapped := writer.(*FlushingWriter); alreadyWrapped {
		return writer
	}
	return &FlushingWriter{writer: writer}
}

// Write delegates to the underlying writer and flushes it.
func (flushingWriter *FlushingWriter) Write(data []byte) (int, error) {
	flushingWriter.mutex.Lock()
	defer flushingWriter.mutex.Unlock()

	bytesWritten, writeError := flushingWriter.writer.Write(data)
	if writeError != nil {
		return bytesWritten, writeError
	}

	switch destination := flushingWriter.writer.(type) {
	case flusher:
		return bytesWritten, destination.Flush()
	case syncer:
		// Sync on terminals and pipes reports EINVAL; the bytes are already written.
		_ = destination.Sync()
	}
	return bytesWritten, nil
}
