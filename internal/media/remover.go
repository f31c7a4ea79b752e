package media

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/erazemk/vitrina/internal/metrics"
)

// Remover deletes stored images on a best-effort basis. Failures are
// logged and counted, never returned to the caller.
type Remover interface {
	Remove(ref string)
}

// SyncRemover removes images on the calling goroutine.
type SyncRemover struct {
	store *DiskStore
	log   zerolog.Logger
}

func NewSyncRemover(store *DiskStore, log zerolog.Logger) *SyncRemover {
	return &SyncRemover{store: store, log: log}
}

func (r *SyncRemover) Remove(ref string) {
	remove(r.store, r.log, ref)
}

// BackgroundRemover removes images on their own goroutine so a request
// never waits on the filesystem. Wait blocks until pending removals finish.
type BackgroundRemover struct {
	store *DiskStore
	log   zerolog.Logger
	wg    sync.WaitGroup
}

func NewBackgroundRemover(store *DiskStore, log zerolog.Logger) *BackgroundRemover {
	return &BackgroundRemover{store: store, log: log}
}

func (r *BackgroundRemover) Remove(ref string) {
	if ref == "" {
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		remove(r.store, r.log, ref)
	}()
}

func (r *BackgroundRemover) Wait() {
	r.wg.Wait()
}

func remove(store *DiskStore, log zerolog.Logger, ref string) {
	if ref == "" {
		return
	}
	err := store.Delete(ref)
	switch {
	case err == nil:
		metrics.ImageCleanupTotal.WithLabelValues("removed").Inc()
		log.Debug().Str("image", ref).Msg("image removed")
	case errors.Is(err, ErrNotStored):
		metrics.ImageCleanupTotal.WithLabelValues("skipped").Inc()
	default:
		metrics.ImageCleanupTotal.WithLabelValues("failed").Inc()
		log.Warn().Err(err).Str("image", ref).Msg("image cleanup failed")
	}
}
