// Package journal keeps an audit trail of charger state changes and
// protocol traffic in SQLite.
//
//	repo := journal.NewSQLiteRepository(db.DB)
//	rec := journal.NewRecorder(repo, chargerID, logger)
//	rec.Attach(dispatcher)
//	go rec.Run(ctx)
//	go journal.RunPruner(ctx, repo, cfg.JournalRetention(), 0, logger)
package journal
