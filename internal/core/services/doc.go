// Package services contains the core application logic: ingestion,
// vector storage, retrieval, and chat orchestration. Services depend
// only on the driven ports; adapters are wired in at startup.
package services
