// Package tuning derives engine settings from the runtime environment:
// container memory limits, known cloud platforms and the engine binary
// location.
package tuning

import (
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Settings is the resolved engine configuration for this host.
type Settings struct {
	HashMB       int  `json:"hash_mb"`
	Threads      int  `json:"threads"`
	MaxDepth     int  `json:"max_depth"`
	DefaultDepth int  `json:"default_depth"`
	MemoryMB     int  `json:"memory_mb"`
	CloudMode    bool `json:"cloud_mode"`
}

var cloudIndicators = []string{
	"RENDER",
	"RAILWAY_ENVIRONMENT",
	"HEROKU",
	"DYNO",
	"FLY_APP_NAME",
	"VERCEL",
	"AWS_LAMBDA_FUNCTION_NAME",
	"GOOGLE_CLOUD_PROJECT",
}

var cgroupLimitPaths = []string{
	"/sys/fs/cgroup/memory.max",                   // cgroups v2
	"/sys/fs/cgroup/memory/memory.limit_in_bytes", // cgroups v1
}

const (
	memorySanityCapMB = 64000
	fallbackMemoryMB  = 512
)

// IsCloudEnvironment reports whether a known PaaS/serverless platform
// variable is set.
func IsCloudEnvironment() bool {
	for _, name := range cloudIndicators {
		if os.Getenv(name) != "" {
			return true
		}
	}
	return false
}

// MemoryMB returns the container memory limit in megabytes, falling back to a
// conservative default when no usable cgroup limit is present. Limits at or
// above 64GB are treated as "unlimited" and ignored.
func MemoryMB() int {
	for _, path := range cgroupLimitPaths {
		raw, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		limit := strings.TrimSpace(string(raw))
		if limit == "max" {
			continue
		}
		bytes, err := strconv.ParseInt(limit, 10, 64)
		if err != nil {
			continue
		}
		mb := int(bytes / (1024 * 1024))
		if mb > 0 && mb < memorySanityCapMB {
			return mb
		}
	}
	return fallbackMemoryMB
}

// Optimal picks hash size, thread count and depth limits for the detected
// environment. Cloud platforms always get the conservative tier.
func Optimal() Settings {
	if IsCloudEnvironment() {
		return Settings{HashMB: 16, Threads: 1, MaxDepth: 20, DefaultDepth: 16, MemoryMB: fallbackMemoryMB, CloudMode: true}
	}
	return settingsForMemory(MemoryMB())
}

func settingsForMemory(mb int) Settings {
	switch {
	case mb >= 8000:
		return Settings{HashMB: 256, Threads: 4, MaxDepth: 30, DefaultDepth: 22, MemoryMB: mb}
	case mb >= 4000:
		return Settings{HashMB: 128, Threads: 2, MaxDepth: 25, DefaultDepth: 20, MemoryMB: mb}
	case mb >= 1000:
		return Settings{HashMB: 64, Threads: 1, MaxDepth: 22, DefaultDepth: 18, MemoryMB: mb}
	default:
		return Settings{HashMB: 16, Threads: 1, MaxDepth: 20, DefaultDepth: 16, MemoryMB: mb}
	}
}

// FindEngine locates a UCI engine binary: STOCKFISH_PATH first, then common
// install locations, then $PATH. Empty string means no engine, which callers
// treat as degraded rather than fatal.
func FindEngine() string {
	var candidates []string
	if env := strings.TrimSpace(os.Getenv("STOCKFISH_PATH")); env != "" {
		candidates = append(candidates, env)
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, "bin", "stockfish"))
	}
	candidates = append(candidates,
		"./bin/stockfish",
		"/usr/local/bin/stockfish",
		"/usr/bin/stockfish",
		"/usr/games/stockfish",
		"/opt/homebrew/bin/stockfish",
	)
	for _, path := range candidates {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	if path, err := exec.LookPath("stockfish"); err == nil {
		return path
	}
	return ""
}
