// Package draft defines the core data model for content operations:
// the ContentDraft lifecycle entity, per-gate results, quality reports,
// and the append-only audit and recovery records that reference drafts.
package draft
