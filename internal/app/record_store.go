package app

import (
	"github.com/yungbote/dossier-backend/internal/platform/logger"
	"github.com/yungbote/dossier-backend/internal/store"
	"github.com/yungbote/dossier-backend/internal/store/sqlstore"
)

var (
	openSQLiteStore   = sqlstore.OpenSQLite
	openPostgresStore = sqlstore.OpenPostgres
)

// resolveRecordStore picks the RECORD_STORE backend. The vector backend
// shares index with the knowledge base. closeFn is never nil.
func resolveRecordStore(log *logger.Logger, cfg Config, index store.VectorIndex) (rs store.RecordStore, closeFn func() error, err error) {
	noop := func() error { return nil }
	log.Info("Selecting record store", "record_store", cfg.RecordStore)
	switch cfg.RecordStore {
	case RecordStoreSQLite:
		s, err := openSQLiteStore(log, cfg.SQLitePath)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	case RecordStorePostgres:
		s, err := openPostgresStore(log, cfg.PostgresDSN)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	default:
		s, err := store.NewVectorRecordStore(log, index)
		return s, noop, err
	}
}
