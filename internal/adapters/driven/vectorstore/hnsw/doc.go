// Package hnsw is a pure-Go vector store backed by a hierarchical navigable
// small world graph.
//
// The store keeps three parallel row arrays (graph nodes, chunk texts and
// chunk metadata) plus a document registry. Rows are never reordered while
// the store is open; removed documents are tombstoned and physically dropped
// by the next compaction. State is persisted as four artifacts in the store
// directory: index.gob, chunks.gob, metadata.gob and documents.json.
package hnsw
