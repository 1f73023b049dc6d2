// Package workitems reads the kanban application's work item table. It is
// strictly read-only from this module's side and exists to feed the recall
// aggregator's related-item ranking.
package workitems
