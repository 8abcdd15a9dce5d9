package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/dmmcquay/othello-dataset/internal/logging"
)

// Status represents the health status of a component.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
)

// checkTimeout bounds a single check.
const checkTimeout = 5 * time.Second

// Check reports a component problem as an error.
type Check func(ctx context.Context) error

// Component is the result of one check.
type Component struct {
	Name        string    `json:"name"`
	Status      Status    `json:"status"`
	Message     string    `json:"message,omitempty"`
	LastChecked time.Time `json:"last_checked"`
}

// Response represents the health check response.
type Response struct {
	Status     Status      `json:"status"`
	Timestamp  time.Time   `json:"timestamp"`
	Uptime     string      `json:"uptime"`
	Components []Component `json:"components,omitempty"`
	Version    string      `json:"version,omitempty"`
	GitCommit  string      `json:"git_commit,omitempty"`
}

// Checker runs registered checks and serves liveness and readiness.
type Checker struct {
	logger    logging.ContextLogger
	checks    map[string]Check
	mu        sync.RWMutex
	version   string
	gitCommit string
	started   time.Time
}

// NewChecker creates a new health checker.
func NewChecker(logger logging.ContextLogger, version, gitCommit string) *Checker {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Checker{
		logger:    logger,
		checks:    make(map[string]Check),
		version:   version,
		gitCommit: gitCommit,
		started:   time.Now(),
	}
}

// RegisterCheck registers a health check for a component.
func (c *Checker) RegisterCheck(name string, check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// CheckHealth runs all registered checks in parallel. Components are sorted by
// name.
func (c *Checker) CheckHealth(ctx context.Context) Response {
	c.mu.RLock()
	checks := make(map[string]Check, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	c.mu.RUnlock()

	response := c.baseResponse()
	response.Components = make([]Component, 0, len(checks))

	var wg sync.WaitGroup
	var mu sync.Mutex
	for name, check := range checks {
		wg.Add(1)
		go func(name string, check Check) {
			defer wg.Done()

			component := Component{
				Name:        name,
				Status:      StatusHealthy,
				LastChecked: time.Now().UTC(),
			}

			checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
			defer cancel()

			if err := check(checkCtx); err != nil {
				component.Status = StatusUnhealthy
				component.Message = err.Error()
				c.logger.WithField("component", name).Warn("Health check failed", "error", err)
			}

			mu.Lock()
			response.Components = append(response.Components, component)
			mu.Unlock()
		}(name, check)
	}
	wg.Wait()

	sort.Slice(response.Components, func(i, j int) bool {
		return response.Components[i].Name < response.Components[j].Name
	})
	for _, component := range response.Components {
		if component.Status == StatusUnhealthy {
			response.Status = StatusUnhealthy
		}
	}

	return response
}

func (c *Checker) baseResponse() Response {
	return Response{
		Status:    StatusHealthy,
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(c.started).Round(time.Second).String(),
		Version:   c.version,
		GitCommit: c.gitCommit,
	}
}

// LivenessHandler returns an HTTP handler for liveness checks.
func (c *Checker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c.writeJSON(w, http.StatusOK, c.baseResponse())
	}
}

// ReadinessHandler returns an HTTP handler that runs every check.
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.ContextWithRequestID(r.Context(), logging.GenerateRequestID())
		c.logger.WithContext(ctx).Debug("Performing readiness check")

		response := c.CheckHealth(ctx)

		statusCode := http.StatusOK
		if response.Status != StatusHealthy {
			statusCode = http.StatusServiceUnavailable
		}
		c.writeJSON(w, statusCode, response)
	}
}

func (c *Checker) writeJSON(w http.ResponseWriter, status int, response Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		c.logger.Error("Failed to encode health response", "error", err)
	}
}

// FileReadable checks that path exists and is a regular file.
func FileReadable(path string) Check {
	return func(ctx context.Context) error {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return fmt.Errorf("%s is not a regular file", path)
		}
		return nil
	}
}

// DirExists checks that the directory that would hold path exists.
func DirExists(path string) Check {
	return func(ctx context.Context) error {
		dir := filepath.Dir(path)
		info, err := os.Stat(dir)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("%s is not a directory", dir)
		}
		return nil
	}
}
