package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/upsideon/orquestra-quantum/internal/database"
	"github.com/upsideon/orquestra-quantum/internal/modules/simulation"
)

// SystemHandlers serves health and system monitoring endpoints.
type SystemHandlers struct {
	databases map[string]*database.DB
	simulator *simulation.Simulator
	dataDir   string
	startTime time.Time
	log       zerolog.Logger
}

// NewSystemHandlers creates system monitoring handlers.
func NewSystemHandlers(databases map[string]*database.DB, simulator *simulation.Simulator, dataDir string, log zerolog.Logger) *SystemHandlers {
	return &SystemHandlers{
		databases: databases,
		simulator: simulator,
		dataDir:   dataDir,
		startTime: time.Now(),
		log:       log.With().Str("component", "system_handlers").Logger(),
	}
}

// HandleHealth handles GET /health requests.
// Pings every database and reports overall status.
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := "ok"
	databases := make(map[string]string, len(h.databases))
	for name, db := range h.databases {
		if err := db.HealthCheck(ctx); err != nil {
			h.log.Warn().Err(err).Str("database", name).Msg("Database health check failed")
			databases[name] = err.Error()
			status = "degraded"
			continue
		}
		databases[name] = "ok"
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}

	h.writeJSON(w, code, map[string]interface{}{
		"status":    status,
		"databases": databases,
		"uptime":    time.Since(h.startTime).String(),
	})
}

// HandleSystemStatus handles GET /api/system/status requests.
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, ramPercent := h.getSystemStats()
	stats := h.simulator.Stats()

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "running",
		"uptime_seconds": int64(time.Since(h.startTime).Seconds()),
		"cpu_percent":    cpuPercent,
		"ram_percent":    ramPercent,
		"simulator": map[string]interface{}{
			"circuits_run": stats.CircuitsRun,
			"jobs_run":     stats.JobsRun,
		},
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleDatabaseStats handles GET /api/system/database/stats requests.
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	databases := make(map[string]interface{}, len(h.databases))
	for name, db := range h.databases {
		stats, err := db.GetStats()
		if err != nil {
			h.log.Warn().Err(err).Str("database", name).Msg("Failed to read database stats")
			databases[name] = map[string]string{"error": err.Error()}
			continue
		}
		databases[name] = stats
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"databases": databases,
	})
}

// HandleDiskUsage handles GET /api/system/disk requests.
func (h *SystemHandlers) HandleDiskUsage(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data_dir":     h.dataDir,
		"data_size_mb": h.getDirSize(h.dataDir),
	})
}

// getDirSize calculates total size of a directory in MB
func (h *SystemHandlers) getDirSize(dirPath string) float64 {
	var totalSize int64

	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})

	if err != nil {
		h.log.Warn().Err(err).Str("dir", dirPath).Msg("Failed to calculate directory size")
		return 0
	}

	return float64(totalSize) / 1024 / 1024
}

// getSystemStats calculates CPU and RAM usage percentages.
// Uses a 100ms sampling interval so status requests stay fast.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}
