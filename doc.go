// Package jsonstorage provides a namespaced JSON document store with a
// secondary search index.
//
// jsonstorage accepts arbitrary JSON documents (or large byte streams)
// under a caller-chosen namespace, persists them durably, and indexes
// them asynchronously into Elasticsearch according to a per-namespace
// search schema. Reads of document metadata are immediately consistent;
// reads of indexed document bodies and search queries become available
// once the background indexing worker has processed the document.
//
// # Quick Start
//
// Run the server:
//
//	go run ./cmd/jsonstorage
//
// Create a document:
//
//	curl -X POST localhost:8080/ns/orders/objects -d '{"id": "o-1", "total": 42}'
//
// Define a search schema and query it once documents are indexed:
//
//	curl -X PUT localhost:8080/ns/orders/search-schema -d '{"total": "$.total"}'
//	curl -X POST localhost:8080/ns/orders/search -d '$.total > 10'
//
// # Architecture
//
//	Client -> HTTP API -> Coordinator -> DocStore (Postgres/MySQL/SQLite)
//	                                   -> Job Queue (Postgres-backed)
//	                                   -> Indexing Worker -> SearchStore (Elasticsearch)
//
// The Coordinator is the single entry point the HTTP layer calls into;
// it never exposes DocStore or SearchStore directly to callers.
//
// # Configuration
//
// Configuration is loaded from the environment using a `__` nested-key
// convention (POSTGRES__DSN, ELASTIC_SEARCH__DSN), matching the
// original service's env_nested_delimiter. See internal/config.
package jsonstorage
