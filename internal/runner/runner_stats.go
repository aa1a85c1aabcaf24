package runner

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"parity/internal/util"
)

func (r *Runner) startStatsLogger() func() {
	interval := time.Duration(r.cfg.Logging.ReportIntervalSeconds) * time.Second
	if interval <= 0 {
		return func() {}
	}
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		var lastCompleted int64
		var lastDiscards int
		lastReasons := make(map[string]int64)
		for {
			select {
			case <-ticker.C:
				completed := r.completed.Load()
				r.statsMu.Lock()
				failures := len(r.failIdx)
				discards := r.discards
				reasons := make(map[string]int64, len(r.reasons))
				for k, v := range r.reasons {
					reasons[k] = v
				}
				r.statsMu.Unlock()

				deltaCompleted := completed - lastCompleted
				deltaDiscards := discards - lastDiscards
				util.Infof(
					"trials last %s: completed=%d discarded=%d total=%d failures=%d",
					interval,
					deltaCompleted,
					deltaDiscards,
					completed,
					failures,
				)
				if delta := reasonDelta(reasons, lastReasons); delta != "" {
					util.Infof("failure reasons last interval: %s", delta)
				}
				lastCompleted = completed
				lastDiscards = discards
				lastReasons = reasons
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()
	return func() { close(done) }
}

func reasonDelta(cur, last map[string]int64) string {
	keys := make([]string, 0, len(cur))
	for k := range cur {
		if cur[k] != last[k] {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+strconv.FormatInt(cur[k]-last[k], 10))
	}
	return strings.Join(parts, " ")
}
