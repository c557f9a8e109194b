// Package config loads process configuration from the environment and
// assembles the AppContext threaded through the engine. Caches that the
// original kept as module-level singletons (LLM bootstrap, tool settings,
// daily-credit settings) live here instead, constructed once at startup.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds process-wide settings resolved from the environment.
type Config struct {
	// DatabaseURL is the Postgres connection string for the relational store.
	DatabaseURL string
	// MongoURL is the connection string for the prompt-archive and eval blob store.
	MongoURL string
	// RedisAddr is the host:port of the Redis instance backing advisory locks,
	// the proactive-activation gate, and tool rate-limit counters.
	RedisAddr string
	// RoutingProfilePath points at the YAML file describing the active LLM
	// configuration graph (Provider/Endpoint/Tier/TierEndpoint/TokenRange).
	RoutingProfilePath string

	// MaxStepsPerInvocation bounds one event-loop invocation (spec §4.1).
	MaxStepsPerInvocation int
	// AgentLockTTL is the advisory lock TTL; must exceed the maximum single
	// step budget so a crashed holder cannot wedge the agent indefinitely.
	AgentLockTTL time.Duration
	// MinVariableBytes is the size threshold at or above which a tool result is
	// auto-variableized as a single "full result" variable (spec §4.3).
	MinVariableBytes int
	// DuplicateSimilarityThreshold is the default outbound-duplicate
	// rejection threshold (spec §4.3.1), overridable per plan.
	DuplicateSimilarityThreshold float64
	// SandboxIdleTTL is the default idle sweep window for compute sessions
	// (spec §5, SANDBOX_IDLE_TTL_SECONDS).
	SandboxIdleTTL time.Duration
	// ProactiveWeeklyFloor is the global minimum interval between proactive
	// triggers for any single agent, applied as a floor over the agent's
	// configured minimum (spec §4.7).
	ProactiveWeeklyFloor time.Duration
	// ProactiveScanCap bounds candidates considered per proactive tick
	// (spec §4.7, §9 open question: intentional under heavy opt-in).
	ProactiveScanCap int

	// VertexProjectDefault and VertexLocationDefault are process-wide
	// fallbacks injected when a provider's key contains "google" and the
	// provider record itself has no project/location set (spec §4.2).
	VertexProjectDefault  string
	VertexLocationDefault string

	// PromptArchiveRetentionDays is the default retention window for the
	// PromptArchive pruning job (spec §4.4 "Archival").
	PromptArchiveRetentionDays int
	// PromptTokenReservedReply is subtracted from an endpoint's context
	// window to derive the prompt token budget (spec §4.4 "Token budget").
	PromptTokenReservedReply int

	// MCPNexusBaseURL is the remote tool server's Nexus endpoint (spec
	// §4.3 "internal + remote MCP"). Empty disables remote MCP tool
	// registration entirely.
	MCPNexusBaseURL string
	// MCPNexusService names the Nexus service the remote tool server
	// registers its tool operations under.
	MCPNexusService string
	// MCPTools is the comma-separated list of tool names the remote Nexus
	// service exposes. This module has no MCP tools/list discovery call
	// wired (spec §4.3 registers tools at startup from a known list, not
	// a runtime catalog fetch), so the operator names them explicitly.
	MCPTools []string
}

// Load reads .env.local and then .env (each if present; a variable already
// set is never overridden, so the process environment wins over .env.local,
// which wins over .env) and then builds a Config from environment
// variables, applying defaults for anything unset.
func Load() (*Config, error) {
	for _, f := range []string{".env.local", ".env"} {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: loading %s: %w", f, err)
		}
	}

	cfg := &Config{
		DatabaseURL:                  getEnv("AGENTCORE_DATABASE_URL", "postgres://localhost:5432/agentcore?sslmode=disable"),
		MongoURL:                     getEnv("AGENTCORE_MONGO_URL", "mongodb://localhost:27017"),
		RedisAddr:                    getEnv("AGENTCORE_REDIS_ADDR", "localhost:6379"),
		RoutingProfilePath:           getEnv("AGENTCORE_ROUTING_PROFILE", "config/routing_profile.yaml"),
		MaxStepsPerInvocation:        getEnvInt("AGENTCORE_MAX_STEPS_PER_INVOCATION", 30),
		AgentLockTTL:                 getEnvDuration("AGENTCORE_AGENT_LOCK_TTL", 2*time.Minute),
		MinVariableBytes:             getEnvInt("AGENTCORE_MIN_VARIABLE_BYTES", 1024),
		DuplicateSimilarityThreshold: getEnvFloat("AGENTCORE_DUPLICATE_SIMILARITY_THRESHOLD", 0.97),
		SandboxIdleTTL:               getEnvDuration("AGENTCORE_SANDBOX_IDLE_TTL", time.Hour),
		ProactiveWeeklyFloor:         getEnvDuration("AGENTCORE_PROACTIVE_WEEKLY_FLOOR", 7*24*time.Hour),
		ProactiveScanCap:             getEnvInt("AGENTCORE_PROACTIVE_SCAN_CAP", 50),
		VertexProjectDefault:         os.Getenv("AGENTCORE_VERTEX_PROJECT"),
		VertexLocationDefault:        getEnv("AGENTCORE_VERTEX_LOCATION", "us-central1"),
		PromptArchiveRetentionDays:   getEnvInt("AGENTCORE_PROMPT_ARCHIVE_RETENTION_DAYS", 30),
		PromptTokenReservedReply:     getEnvInt("AGENTCORE_PROMPT_TOKEN_RESERVED_REPLY", 4096),
		MCPNexusBaseURL:              os.Getenv("AGENTCORE_MCP_NEXUS_BASE_URL"),
		MCPNexusService:              getEnv("AGENTCORE_MCP_NEXUS_SERVICE", "agentcore-tools"),
		MCPTools:                     getEnvList("AGENTCORE_MCP_TOOLS"),
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
