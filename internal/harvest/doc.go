// Package harvest implements the crawl orchestration engine: pagination
// control, the two-phase discover/enrich protocol, per-item retry under
// suspected soft-blocking, record merging, and incremental checkpointed
// persistence that survives interruption. Rendering, field extraction, and
// durable storage live behind the Browser, DocumentReader, and Sink
// capability interfaces defined here.
package harvest
