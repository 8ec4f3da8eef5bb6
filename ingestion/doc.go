// Package ingestion turns source documents into session chunks and tables.
//
// The Pipeline type manages the ingestion workflow for a document:
//   - Extracting page text (PDF, plain text) or tables (XLSX workbooks)
//   - Splitting pages into overlapping chunks
//   - Embedding chunks in batches on a worker pool, re-chunking any batch the
//     model rejects as too long
//   - Adding the chunks to the session and recording the document
//
// Chunk IDs are derived from content, so the same document always produces
// the same chunks.
package ingestion
