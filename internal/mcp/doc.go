// Package mcp exposes the index over the Model Context Protocol on stdio.
// Tools cover the full lifecycle: index_project and update_index write,
// search_code, search_memories, recall_context, and get_status read, and
// save_memory / delete_memory manage notes. Indexing tools are guarded by a
// per-collection try-lock; a second run against a busy project is refused.
package mcp
