package embeddings

import "errors"

// ErrUnavailable is returned when the embedding model cannot be loaded or
// inference fails. Callers decide retry policy; the embedder never retries
// internally.
var ErrUnavailable = errors.New("embedding unavailable")
