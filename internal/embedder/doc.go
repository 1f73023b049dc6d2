// Package embedder generates vector embeddings for chunks and queries via
// external providers.
//
// Client is the provider boundary: Embed for single texts, EmbedBatch for
// order-preserving batches. Batches larger than the provider cap are silently
// sub-batched and the results concatenated in input order.
//
//	client, err := embedder.NewFromEnv()
//	vectors, err := client.EmbedBatch(ctx, texts)
//	// vectors[i] corresponds to texts[i]
//
// A whole-batch provider failure is surfaced as ErrProviderFailed with the
// provider's message attached; the caller decides whether to fail the
// enclosing file or abort the run. The client performs no retries — retry
// policy belongs to the indexing and retrieval callers.
//
// Supported providers: OpenAI, Jina AI (same wire format), and a
// deterministic local provider for development. Embeddings are cached in an
// LRU by content hash.
package embedder
