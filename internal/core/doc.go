// Package core provides the business logic for restoring tenant backups.
//
// A backup is one clinic's relational dataset exported as JSON. The importer
// re-inserts it into a destination tenant, assigning new identifiers and
// rewriting every foreign key along the way. It is used by the HTTP server,
// the restore CLI and tests without modification.
//
// # Pipeline
//
//  1. [Validate] checks the envelope (version, data shape). Problems here are
//     errors and stop the run. Missing metadata, missing required fields and
//     references that no record in the backup carries are warnings.
//     Only the first [DefaultFKCheckLimit] records of each table are checked
//     for references, so large backups can under-report them.
//  2. A dry run stops after validation and writes nothing.
//  3. Otherwise tables are imported one at a time in [Catalog] order. Each
//     record is passed through [Sanitize] and [ResolveReferences], then sent
//     in batches of [Options.BatchSize] to [Store.InsertMany]. A rejected
//     batch is retried row by row with [Store.InsertOne] so that one bad row
//     costs only itself.
//  4. The [SuccessPolicy] turns the totals into the final success flag.
//
// # Identifiers
//
// The [IDMapper] remembers, per table, which new id each source id and
// legacy_id received. A reference is looked up by source id first, then by
// legacy id. References that cannot be resolved are set to null instead of
// failing the row.
//
// # Failure Accounting
//
// Every element of every table ends up counted exactly once as imported,
// skipped (not a JSON object) or errors. A failure that is not tied to a
// row (see [IsInfrastructure]) aborts the rest of the current table and the
// run moves on to the next one.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - DB001-DB011: Database errors (duplicates, constraints, connections)
//   - VAL001-VAL006: Payload and value errors
//   - IMP001-IMP008: Import session errors (busy, bad tenant, timeouts)
package core
