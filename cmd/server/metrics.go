package main

import (
	"fmt"
	"io"

	persistlog "decraft.ai/internal/persistence/log"
	"decraft.ai/internal/transport/ws"
	"decraft.ai/internal/uncraft/service"
)

type metricsSource struct {
	ws     *ws.Server
	unc    *service.Uncrafter
	idx    runtimeIndex
	resLog *persistlog.ResolutionLogger
}

func writeMetrics(w io.Writer, m metricsSource) {
	if m.ws != nil {
		gauge(w, "decraft_ws_sessions", "Connected websocket sessions.", int64(m.ws.Sessions()))
	}
	if m.unc != nil {
		gauge(w, "decraft_uncraft_cached_grids", "Grids held in the uncraft cache.", int64(m.unc.CachedCount()))
	}
	if m.resLog != nil {
		counter(w, "decraft_resolution_log_lines_total", "Resolutions written to the JSONL log.", uint64(m.resLog.Lines()))
	}
	if m.idx == nil {
		return
	}
	s := m.idx.Stats()
	gauge(w, "decraft_index_queue_depth", "Current index writer queue depth.", int64(s.QueueDepth))
	gauge(w, "decraft_index_queue_capacity", "Index writer queue capacity.", int64(s.QueueCapacity))
	counter(w, "decraft_index_written_total", "Resolutions written to the index.", s.Written)
	counter(w, "decraft_index_dropped_total", "Resolutions dropped because the queue was full.", s.Dropped)
	counter(w, "decraft_index_skipped_total", "Input-specific resolutions not indexed.", s.Skipped)
	counter(w, "decraft_index_failures_total", "Failed index transactions.", s.Failures)
}

func gauge(w io.Writer, name, help string, v int64) {
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s gauge\n", name)
	fmt.Fprintf(w, "%s %d\n", name, v)
}

func counter(w io.Writer, name, help string, v uint64) {
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s counter\n", name)
	fmt.Fprintf(w, "%s %d\n", name, v)
}
