// Package memory stores free-text notes alongside the code index so they
// participate in the same semantic search. Each note is embedded from its
// title and content and written to the store as a single memory-kind source
// unit keyed by the note's ID.
package memory
