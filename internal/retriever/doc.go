// Package retriever turns a natural-language query into ranked search
// results. The query is embedded exactly once per search; the store handles
// ranking and language/path filters, while extension filtering happens here
// over an over-fetched result set so the final limit is still met.
package retriever
