// AngelaMos | 2026
// handler.go

package admin

import (
	"context"
	"database/sql"
	"net/http"
	"runtime"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/bloodlink/internal/core"
	"github.com/carterperez-dev/bloodlink/internal/donation"
	"github.com/carterperez-dev/bloodlink/internal/model"
	"github.com/carterperez-dev/bloodlink/internal/store"
)

// SessionPurger is implemented by the SQL store. Redis expires sessions
// on its own.
type SessionPurger interface {
	PurgeExpiredSessions(ctx context.Context) (int64, error)
}

type Handler struct {
	store      store.Store
	donations  *donation.Service
	dbStats    func() sql.DBStats
	redisStats func() *redis.PoolStats
	redisPing  func(ctx context.Context) error
	dbPing     func(ctx context.Context) error
	purger     SessionPurger
}

type HandlerConfig struct {
	Store      store.Store
	Donations  *donation.Service
	DBStats    func() sql.DBStats
	RedisStats func() *redis.PoolStats
	RedisPing  func(ctx context.Context) error
	DBPing     func(ctx context.Context) error
	Purger     SessionPurger
}

func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		store:      cfg.Store,
		donations:  cfg.Donations,
		dbStats:    cfg.DBStats,
		redisStats: cfg.RedisStats,
		redisPing:  cfg.RedisPing,
		dbPing:     cfg.DBPing,
		purger:     cfg.Purger,
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	adminOnly func(http.Handler) http.Handler,
) {
	r.Group(func(r chi.Router) {
		r.Use(adminOnly)

		r.Get("/admin/stats", h.GetSystemStats)
		r.Get("/admin/stats/runtime", h.GetRuntimeStats)
		r.Post("/admin/sessions/purge", h.PurgeSessions)
	})
}

func (h *Handler) GetSystemStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	domain, err := h.domainStats(ctx)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	response := SystemStatsResponse{
		Domain:  domain,
		Runtime: readRuntimeStats(),
	}

	if h.dbStats != nil || h.dbPing != nil {
		response.Database = &DatabaseStatus{
			Healthy: pingOK(ctx, h.dbPing),
			Stats:   h.getDBStats(),
		}
	}

	if h.redisStats != nil || h.redisPing != nil {
		response.Redis = &RedisStatus{
			Healthy: pingOK(ctx, h.redisPing),
			Stats:   h.getRedisStats(),
		}
	}

	core.OK(w, response)
}

func (h *Handler) GetRuntimeStats(w http.ResponseWriter, r *http.Request) {
	core.OK(w, readRuntimeStats())
}

func (h *Handler) PurgeSessions(w http.ResponseWriter, r *http.Request) {
	if h.purger == nil {
		core.OK(w, PurgeResponse{Purged: 0})
		return
	}

	n, err := h.purger.PurgeExpiredSessions(r.Context())
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, PurgeResponse{Purged: n})
}

func (h *Handler) domainStats(ctx context.Context) (DomainStats, error) {
	var out DomainStats

	users, err := h.store.ListUsers(ctx)
	if err != nil {
		return out, err
	}
	for _, u := range users {
		switch v := u.(type) {
		case *model.Donor:
			out.Donors++
			if v.Available {
				out.AvailableDonors++
			}
		case *model.Hospital:
			out.Hospitals++
		}
	}

	out.Donations, err = h.donations.Stats(ctx)
	if err != nil {
		return out, err
	}

	return out, nil
}

func pingOK(ctx context.Context, ping func(context.Context) error) bool {
	if ping == nil {
		return true
	}
	return ping(ctx) == nil
}

func readRuntimeStats() RuntimeStats {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return RuntimeStats{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAlloc:     memStats.Alloc,
		MemSys:       memStats.Sys,
		NumGC:        memStats.NumGC,
	}
}

func (h *Handler) getDBStats() *DBPoolStats {
	if h.dbStats == nil {
		return nil
	}

	stats := h.dbStats()
	return &DBPoolStats{
		MaxOpenConnections: stats.MaxOpenConnections,
		OpenConnections:    stats.OpenConnections,
		InUse:              stats.InUse,
		Idle:               stats.Idle,
		WaitCount:          stats.WaitCount,
		WaitDuration:       stats.WaitDuration.String(),
	}
}

func (h *Handler) getRedisStats() *RedisPoolStats {
	if h.redisStats == nil {
		return nil
	}

	stats := h.redisStats()
	return &RedisPoolStats{
		Hits:       stats.Hits,
		Misses:     stats.Misses,
		Timeouts:   stats.Timeouts,
		TotalConns: stats.TotalConns,
		IdleConns:  stats.IdleConns,
		StaleConns: stats.StaleConns,
	}
}

type SystemStatsResponse struct {
	Domain   DomainStats     `json:"domain"`
	Database *DatabaseStatus `json:"database,omitempty"`
	Redis    *RedisStatus    `json:"redis,omitempty"`
	Runtime  RuntimeStats    `json:"runtime"`
}

type DomainStats struct {
	Donors          int            `json:"donors"`
	AvailableDonors int            `json:"available_donors"`
	Hospitals       int            `json:"hospitals"`
	Donations       donation.Stats `json:"donations"`
}

type PurgeResponse struct {
	Purged int64 `json:"purged"`
}

type DatabaseStatus struct {
	Healthy bool         `json:"healthy"`
	Stats   *DBPoolStats `json:"stats,omitempty"`
}

type RedisStatus struct {
	Healthy bool            `json:"healthy"`
	Stats   *RedisPoolStats `json:"stats,omitempty"`
}

type DBPoolStats struct {
	MaxOpenConnections int    `json:"max_open_connections"`
	OpenConnections    int    `json:"open_connections"`
	InUse              int    `json:"in_use"`
	Idle               int    `json:"idle"`
	WaitCount          int64  `json:"wait_count"`
	WaitDuration       string `json:"wait_duration"`
}

type RedisPoolStats struct {
	Hits       uint32 `json:"hits"`
	Misses     uint32 `json:"misses"`
	Timeouts   uint32 `json:"timeouts"`
	TotalConns uint32 `json:"total_conns"`
	IdleConns  uint32 `json:"idle_conns"`
	StaleConns uint32 `json:"stale_conns"`
}

type RuntimeStats struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	NumCPU       int    `json:"num_cpu"`
	MemAlloc     uint64 `json:"mem_alloc_bytes"`
	MemSys       uint64 `json:"mem_sys_bytes"`
	NumGC        uint32 `json:"num_gc"`
}
