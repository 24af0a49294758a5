package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all service configuration
type Config struct {
	Service   ServiceConfig
	Database  DatabaseConfig
	Telemetry TelemetryConfig
	Workflow  WorkflowConfig
}

// ServiceConfig holds service-specific settings
type ServiceConfig struct {
	Name        string
	Port        int
	Environment string
	LogLevel    string
	LogFormat   string
}

// DatabaseConfig holds Postgres connection settings. Empty Host means the
// service runs without a database: internal/history falls back to its
// filesystem-backed history.Store. The trigger scheduler's state store is
// in-memory either way.
type DatabaseConfig struct {
	Host        string
	Port        int
	Database    string
	User        string
	Password    string
	MaxConns    int
	MinConns    int
	MaxIdleTime time.Duration
	MaxLifetime time.Duration
}

// TelemetryConfig holds observability settings
type TelemetryConfig struct {
	EnablePprof    bool
	PprofPort      int
	EnableTracing  bool
	EnableMetrics  bool
	MetricsPort    int
	TracingBackend string
}

// WorkflowConfig holds the engine's own operational settings: where run
// history lives, how the event stream is buffered, how often the trigger
// scheduler ticks, and which agent CLI backs `agent` nodes by default.
type WorkflowConfig struct {
	HomeDir            string        // <home>: runs/, history.json, workspaces.json live here
	HistoryCap         int           // max run records retained per (workspace, workflowPath)
	EventBufferSize    int           // capacity of the per-run event channel
	TriggerTickInterval time.Duration // Trigger Scheduler's polling ticker
	DefaultAgentRunner string        // binary invoked by agent nodes with no `runner` field
	AgentTimeout       time.Duration
	RedisAddr          string // optional: Redis server for the run rate limiter (used with RateLimitEnabled)
	RateLimitEnabled   bool
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	home := getEnv("WORKFLOW_HOME", defaultHomeDir())

	cfg := &Config{
		Service: ServiceConfig{
			Name:        serviceName,
			Port:        getEnvInt("PORT", 8080),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			LogFormat:   getEnv("LOG_FORMAT", "text"),
		},
		Database: DatabaseConfig{
			Host:        getEnv("POSTGRES_HOST", ""),
			Port:        getEnvInt("POSTGRES_PORT", 5432),
			Database:    getEnv("POSTGRES_DB", "workfloweng"),
			User:        getEnv("POSTGRES_USER", "workfloweng"),
			Password:    getEnv("POSTGRES_PASSWORD", ""),
			MaxConns:    getEnvInt("POSTGRES_MAX_CONNS", 20),
			MinConns:    getEnvInt("POSTGRES_MIN_CONNS", 2),
			MaxIdleTime: getEnvDuration("POSTGRES_MAX_IDLE_TIME", 30*time.Minute),
			MaxLifetime: getEnvDuration("POSTGRES_MAX_LIFETIME", 1*time.Hour),
		},
		Telemetry: TelemetryConfig{
			EnablePprof:    getEnvBool("ENABLE_PPROF", false),
			PprofPort:      getEnvInt("PPROF_PORT", 6060),
			EnableTracing:  getEnvBool("ENABLE_TRACING", false),
			EnableMetrics:  getEnvBool("ENABLE_METRICS", true),
			MetricsPort:    getEnvInt("METRICS_PORT", 9090),
			TracingBackend: getEnv("TRACING_BACKEND", "stdout"),
		},
		Workflow: WorkflowConfig{
			HomeDir:             home,
			HistoryCap:          getEnvInt("WORKFLOW_HISTORY_CAP", 10),
			EventBufferSize:     getEnvInt("WORKFLOW_EVENT_BUFFER", 256),
			TriggerTickInterval: getEnvDuration("WORKFLOW_TRIGGER_TICK", 10*time.Second),
			DefaultAgentRunner:  getEnv("WORKFLOW_AGENT_RUNNER", ""),
			AgentTimeout:        getEnvDuration("WORKFLOW_AGENT_TIMEOUT", 30*time.Second),
			RedisAddr:           getEnv("REDIS_ADDR", ""),
			RateLimitEnabled:    getEnvBool("WORKFLOW_RATE_LIMIT", false),
		},
	}

	return cfg, cfg.Validate()
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.Service.Port < 1 || c.Service.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Service.Port)
	}
	if c.Database.Host != "" && c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("max_conns must be >= min_conns")
	}
	if c.Workflow.HistoryCap < 1 {
		return fmt.Errorf("history cap must be >= 1")
	}
	return nil
}

// UsesDatabase reports whether a database connection (and with it the
// Postgres-backed history store) should be constructed.
func (c *Config) UsesDatabase() bool {
	return c.Database.Host != ""
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
	)
}

func defaultHomeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home + "/.workflow-engine"
	}
	return ".workflow-engine"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
