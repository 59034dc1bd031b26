package pipeline

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrEmptyBatch means zero files survived extraction and validation. The
// run terminates with an empty result rather than an output artifact.
var ErrEmptyBatch = errors.New("no valid manifest files in batch")

// BatchSizeExceededError rejects the whole batch before any processing.
type BatchSizeExceededError struct {
	Limit int
	Got   int
}

func (e *BatchSizeExceededError) Error() string {
	return fmt.Sprintf("batch of %d files exceeds the limit of %d", e.Got, e.Limit)
}
