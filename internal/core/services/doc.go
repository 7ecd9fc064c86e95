// Package services implements the driving port interfaces.
// Services contain the core business logic: the embedding
// orchestrator, the vector store writer and the ingest pipeline that
// composes them with the driven ports (adapters).
//
// Services are pure Go with no CGO or external I/O of their own.
package services
