package startup

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"video-fetcher/internal/logging"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// DefaultPort is used when PORT is unset, empty, or not a valid port number.
const DefaultPort = 8000

// DefaultMaxFileSize is the size cap before compression kicks in (50 MB).
const DefaultMaxFileSize = 50 * 1024 * 1024

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// Config holds all application configuration. It is resolved once at process
// start and never mutated afterwards; nothing outside this package reads the
// environment after LoadConfig returns.
type Config struct {
	Port            int
	DataDir         string
	MaxFileSize     int64
	FetchTimeout    time.Duration
	JanitorInterval time.Duration
	LogHealthChecks bool
	MetricsEnabled  bool

	// Derived paths
	DatabasePath string
	StoreDir     string
	TmpDir       string

	// Feature flag based on directory availability
	FetchEnabled bool
}

// LoadConfig loads and validates configuration from environment variables.
// A .env file in the working directory is honored first.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		logging.Debug("Loaded environment from .env file")
	}

	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	port := resolvePort(os.Getenv("PORT"))
	dataDir := getEnv("DATA_DIR", "/data")
	maxFileSize := getEnvInt64("MAX_FILE_SIZE", DefaultMaxFileSize)
	fetchTimeout := getEnvDuration("FETCH_TIMEOUT", 10*time.Minute)
	janitorInterval := getEnvDuration("JANITOR_INTERVAL", 1*time.Hour)
	logHealthChecks := getEnvBool("LOG_HEALTH_CHECKS", true)
	metricsEnabled := getEnvBool("METRICS_ENABLED", true)

	logging.Info("  PORT:              %d", port)
	logging.Info("  DATA_DIR:          %s", dataDir)
	logging.Info("  MAX_FILE_SIZE:     %d", maxFileSize)
	logging.Info("  FETCH_TIMEOUT:     %s", fetchTimeout)
	logging.Info("  JANITOR_INTERVAL:  %s", janitorInterval)
	logging.Info("  LOG_HEALTH_CHECKS: %v", logHealthChecks)
	logging.Info("  METRICS_ENABLED:   %v", metricsEnabled)
	logging.Info("  LOG_LEVEL:         %s", logging.GetLevel())

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	dataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	logging.Info("  Data directory (absolute): %s", dataDir)

	config := &Config{
		Port:            port,
		DataDir:         dataDir,
		MaxFileSize:     maxFileSize,
		FetchTimeout:    fetchTimeout,
		JanitorInterval: janitorInterval,
		LogHealthChecks: logHealthChecks,
		MetricsEnabled:  metricsEnabled,
		DatabasePath:    filepath.Join(dataDir, "fetch.db"),
		StoreDir:        filepath.Join(dataDir, "store"),
		TmpDir:          filepath.Join(dataDir, "tmp"),
	}

	// The data directory holds the database and is required
	if err := ensureDirectory(dataDir, "data"); err != nil {
		return nil, fmt.Errorf("data directory error: %w", err)
	}

	logging.Debug("  Testing data directory write access...")
	if err := testWriteAccess(dataDir); err != nil {
		return nil, fmt.Errorf("data directory is not writable (required for database): %w", err)
	}
	logging.Info("  [OK] Data directory is writable")

	// Store and temp directories gate the fetch feature
	storeOK := setupOptionalDir(config.StoreDir, "store")
	tmpOK := setupOptionalDir(config.TmpDir, "temp")
	config.FetchEnabled = storeOK && tmpOK

	logging.Info("")
	logging.Info("  Feature availability:")
	logging.Info("    Database: ENABLED (required)")
	logging.Info("    Fetching: %s", enabledString(config.FetchEnabled))
	logging.Info("    Metrics:  %s", enabledString(config.MetricsEnabled))

	return config, nil
}

// resolvePort parses a PORT value, falling back to DefaultPort when the
// value is unset, empty, non-numeric, or outside 1-65535.
func resolvePort(raw string) int {
	if raw == "" {
		return DefaultPort
	}

	port, err := strconv.Atoi(raw)
	if err != nil || port < 1 || port > 65535 {
		logging.Warn("  Invalid PORT %q, using default: %d", raw, DefaultPort)
		return DefaultPort
	}
	return port
}

func setupOptionalDir(path, name string) bool {
	logging.Debug("  Setting up %s directory: %s", name, path)

	if err := os.MkdirAll(path, 0o755); err != nil {
		logging.Warn("    Failed to create %s directory: %v", name, err)
		logging.Warn("    Fetching will be disabled")
		return false
	}

	if err := testWriteAccess(path); err != nil {
		logging.Warn("    %s directory is not writable: %v", name, err)
		logging.Warn("    Fetching will be disabled")
		return false
	}

	logging.Debug("    [OK] %s directory ready", name)
	return true
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			// Route might not have methods specified
			methods = []string{"*"}
		}

		for _, method := range methods {
			routes = append(routes, RouteInfo{Method: method, Path: pathTemplate})
		}

		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes dynamically
func LogHTTPRoutes(router *mux.Router) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if !logging.IsDebugEnabled() {
		return
	}

	routes, err := GetRoutes(router)
	if err != nil {
		logging.Warn("error walking routes: %v", err)
	}

	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path != routes[j].Path {
			return routes[i].Path < routes[j].Path
		}
		return routes[i].Method < routes[j].Method
	})

	logging.Debug("  Registered routes (%d total):", len(routes))
	for _, route := range routes {
		logging.Debug("    %-6s %s", route.Method, route.Path)
	}
	logging.Debug("")
}

// LogToolCheck probes the external tools the fetch pipeline shells out to.
// A missing tool is a warning, not a startup failure: the error surfaces on
// the first invocation instead.
func LogToolCheck() {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("EXTERNAL TOOLS")
	logging.Info("------------------------------------------------------------")

	for _, tool := range []struct {
		name       string
		versionArg string
	}{
		{"ffmpeg", "-version"},
		{"ffprobe", "-version"},
		{"yt-dlp", "--version"},
	} {
		if err := checkTool(tool.name, tool.versionArg); err != nil {
			logging.Warn("  %s check failed: %v", tool.name, err)
			logging.Warn("  Fetches needing %s will fail", tool.name)
		} else {
			logging.Info("  [OK] %s is available", tool.name)
		}
	}
}

func checkTool(name, versionArg string) error {
	path, err := exec.LookPath(name)
	if err != nil {
		return fmt.Errorf("%s not found in PATH", name)
	}
	logging.Debug("  %s path: %s", name, path)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	output, err := exec.CommandContext(ctx, name, versionArg).Output()
	if err != nil {
		return fmt.Errorf("failed to get %s version: %w", name, err)
	}

	if line, _, _ := strings.Cut(string(output), "\n"); line != "" {
		logging.Debug("  %s version: %s", name, strings.TrimSpace(line))
	}

	return nil
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            int
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with endpoint information
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:  %v", config.StartupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    Application: http://0.0.0.0:%d", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:     http://0.0.0.0:%d/metrics", config.Port)
	} else {
		logging.Info("    Metrics:     DISABLED")
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

// Helper functions

func printBanner() {
	banner := `
------------------------------------------------------------
 _   ___     __     ______    __       __
| | / (_)___/ /__  / __/ /__ / /_____ / /  ___ ____
| |/ / / __  / -_)/ _// -_) __/ __/ _ \ -_) __/
|___/_/\__,_/\__//_/  \__/\__/\__/_//_\__/_/

------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if logging.IsDebugEnabled() {
		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
		// Write access was confirmed regardless
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt64(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil || parsed <= 0 {
		logging.Warn("Invalid value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		logging.Warn("Invalid duration for %s: %q, using default: %s", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
