/*
Package ingest turns long-form content into embedded, stored chunks by
composing the task-execution substrate: the batch processor fans chunks out
with bounded concurrency and retry, the cache de-duplicates repeated
expensive lookups, and the worker pool isolates long-running transcription
behind a hard timeout.

The expensive collaborators (embedding generation, the vector index,
transcription) are consumed through the Embedder, VectorStore, and
Transcriber interfaces. Production implementations live in subpackages
(openai); deterministic in-memory fakes live in the mock subpackage.
*/
package ingest
