// Package records is the persistence layer of the record collections
// (vaccination records, medical history, shared records).
//
// All three collections share one table keyed by (collection, id) with
// secondary indexes on owner id and share code. The repository runs on a
// dbx.DBTX so callers can combine a record write with an outbox enqueue in
// one transaction.
//
//	repo := records.NewSQLiteRepository(db)
//	_ = repo.Put(ctx, doc)
//	doc, _ := repo.Get(ctx, models.CollectionVaccinations, id)
//	list, _ := repo.QueryByIndex(ctx, models.CollectionVaccinations, models.IndexOwnerID, patientID)
package records
