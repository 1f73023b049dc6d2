// Package recall assembles working context for a kanban work item: similar
// code chunks, relevant memory notes, and related work items, fetched
// concurrently. Branches fail independently; the caller always receives a
// complete Result with empty sections where a source was unavailable.
package recall
