// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package reading

import (
	"context"
	"log/slog"
)

/*
Stats returns the public reading statistics.

The raw snapshot is served from the cache when one is configured; cache
failures are logged and the store is read instead. A snapshot loaded after a
cache read error is not written back, since its generation is unknown.
*/
func (service *Service) Stats(context context.Context) (Stats, error) {
	today := service.today(service.now())

	writeBack := false
	var generation int64
	if service.cache != nil {
		snapshot, current, err := service.cache.Get(context)
		if err != nil {
			service.log(context).WarnContext(context, "stats_cache_read_failed", slog.Any("error", err))
		}
		if snapshot != nil {
			return snapshot.Stats(today), nil
		}
		writeBack, generation = err == nil, current
	}

	snapshot, err := service.repository.StatsSnapshot(context)
	if err != nil {
		return Stats{}, err
	}

	if writeBack {
		if err := service.cache.Set(context, generation, snapshot); err != nil {
			service.log(context).WarnContext(context, "stats_cache_write_failed", slog.Any("error", err))
		}
	}

	return snapshot.Stats(today), nil
}

// Ping checks the backing store.
func (service *Service) Ping(context context.Context) error {
	return service.repository.Ping(context)
}
