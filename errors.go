package retriever

import "errors"

// Panic payloads for API misuse. Regular operation never fails: absent
// keys produce empty results and duplicate identities upsert.
var ErrForeignIndex = errors.New("retriever: secondary index derived from a different storage")
var ErrEntryMismatch = errors.New("retriever: record keys do not derive the entry identity")
