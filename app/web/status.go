package web

import (
	"context"
	"net/http"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
)

// StatusResponse is the JSON response for /api/v1/status
type StatusResponse struct {
	Version              string     `json:"version"`
	Uptime               string     `json:"uptime"`
	Database             string     `json:"database"`
	DatabaseOK           bool       `json:"databaseOk"`
	Users                int        `json:"users"`
	Events               int        `json:"events"`
	PendingNotifications int        `json:"pendingNotifications"`
	Host                 HostStatus `json:"host"`
	Timestamp            time.Time  `json:"timestamp"`
}

// HostStatus is a snapshot of host load, unavailable values are zero
type HostStatus struct {
	Load1         float64 `json:"load1"`
	Load5         float64 `json:"load5"`
	MemoryUsedPct float64 `json:"memoryUsedPercent"`
}

// handleStatus returns counters and host load - designed for monitoring and jq
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := StatusResponse{
		Version:   s.version,
		Uptime:    time.Since(s.startedAt).Truncate(time.Second).String(),
		Database:  s.stats.Type(),
		Host:      hostStatus(ctx),
		Timestamp: time.Now().UTC(),
	}

	if err := s.stats.Ping(ctx); err != nil {
		log.Printf("[WARN] database ping failed, %v", err)
		s.writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	resp.DatabaseOK = true

	var err error
	if resp.Users, err = s.stats.CountUsers(ctx); err != nil {
		s.writeError(w, r, err)
		return
	}
	if resp.Events, err = s.stats.CountEvents(ctx); err != nil {
		s.writeError(w, r, err)
		return
	}
	if resp.PendingNotifications, err = s.stats.CountPendingNotifications(ctx); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// hostStatus collects load average and memory usage, failures are logged and skipped
func hostStatus(ctx context.Context) HostStatus {
	var res HostStatus
	if loads, err := load.AvgWithContext(ctx); err != nil {
		log.Printf("[DEBUG] failed to get load average: %v", err)
	} else {
		res.Load1, res.Load5 = loads.Load1, loads.Load5
	}
	if v, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		log.Printf("[DEBUG] failed to get memory: %v", err)
	} else {
		res.MemoryUsedPct = v.UsedPercent
	}
	return res
}
