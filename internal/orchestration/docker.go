// Package orchestration manages the dockerized layout-analysis service:
// starting the container when it is not already up, waiting for it to
// answer HTTP, and stopping it after a run.
package orchestration

import (
	"context"
	"fmt"
	"net/http"
	"os/exec"
	"strings"
	"time"

	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/logger"
	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/types"
)

const (
	// ContainerName is the fixed name for the managed container, so
	// repeated runs reuse it instead of piling up anonymous ones.
	ContainerName = "fx-translator-layout"

	servicePort = 5060

	defaultStartTimeout = 120 * time.Second
	healthPollInterval  = 2 * time.Second
)

// runCommand executes one CLI invocation and returns its combined
// output. Swapped out in tests.
type runCommand func(ctx context.Context, name string, args ...string) (string, error)

func execRun(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("%s %s failed: %s: %w", name, strings.Join(args, " "), strings.TrimSpace(string(output)), err)
	}
	return string(output), nil
}

// Manager drives the layout-analysis container through the docker CLI.
type Manager struct {
	image        string
	serviceURL   string
	startTimeout time.Duration
	pollInterval time.Duration
	run          runCommand
	httpClient   *http.Client
	startedByUs  bool
}

// NewManager returns a Manager for the given image, answering at
// serviceURL once up.
func NewManager(image, serviceURL string) *Manager {
	return &Manager{
		image:        image,
		serviceURL:   strings.TrimRight(serviceURL, "/"),
		startTimeout: defaultStartTimeout,
		pollInterval: healthPollInterval,
		run:          execRun,
		httpClient:   &http.Client{Timeout: 5 * time.Second},
	}
}

// EnsureRunning makes the layout service reachable: if it already
// answers HTTP nothing is touched, otherwise the container is started
// and polled until healthy.
func (m *Manager) EnsureRunning(ctx context.Context) error {
	if m.isHealthy(ctx) {
		logger.Debug("layout service already reachable",
			logger.String("url", m.serviceURL))
		return nil
	}

	if _, err := m.run(ctx, "docker", "version", "--format", "{{.Server.Version}}"); err != nil {
		return types.NewAppError(types.ErrDetect, "docker is not available", err)
	}

	running, err := m.containerState(ctx)
	if err != nil {
		return err
	}
	switch running {
	case stateRunning:
		// Container is up but not answering yet; fall through to the
		// health wait.
	case stateStopped:
		if _, err := m.run(ctx, "docker", "start", ContainerName); err != nil {
			return types.NewAppError(types.ErrDetect, "failed to start layout container", err)
		}
		m.startedByUs = true
	case stateMissing:
		if _, err := m.run(ctx, "docker", "run", "-d",
			"--name", ContainerName,
			"-p", fmt.Sprintf("%d:%d", servicePort, servicePort),
			m.image); err != nil {
			return types.NewAppError(types.ErrDetect, "failed to run layout container", err)
		}
		m.startedByUs = true
	}

	logger.Info("waiting for layout service",
		logger.String("image", m.image),
		logger.String("url", m.serviceURL))
	return m.waitHealthy(ctx)
}

// Stop stops the container, but only if this Manager started it.
func (m *Manager) Stop(ctx context.Context) error {
	if !m.startedByUs {
		return nil
	}
	if _, err := m.run(ctx, "docker", "stop", ContainerName); err != nil {
		return types.NewAppError(types.ErrDetect, "failed to stop layout container", err)
	}
	m.startedByUs = false
	logger.Info("layout container stopped")
	return nil
}

// Restart cycles the container. Long runs restart the service
// periodically because the underlying model leaks memory across
// documents.
func (m *Manager) Restart(ctx context.Context) error {
	if _, err := m.run(ctx, "docker", "restart", ContainerName); err != nil {
		return types.NewAppError(types.ErrDetect, "failed to restart layout container", err)
	}
	m.startedByUs = true
	return m.waitHealthy(ctx)
}

type containerState int

const (
	stateMissing containerState = iota
	stateStopped
	stateRunning
)

func (m *Manager) containerState(ctx context.Context) (containerState, error) {
	output, err := m.run(ctx, "docker", "ps", "-a",
		"--filter", "name=^"+ContainerName+"$",
		"--format", "{{.State}}")
	if err != nil {
		return stateMissing, types.NewAppError(types.ErrDetect, "failed to inspect layout container", err)
	}
	switch strings.TrimSpace(output) {
	case "":
		return stateMissing, nil
	case "running":
		return stateRunning, nil
	default:
		return stateStopped, nil
	}
}

func (m *Manager) waitHealthy(ctx context.Context) error {
	deadline := time.Now().Add(m.startTimeout)
	for {
		if m.isHealthy(ctx) {
			logger.Info("layout service is up", logger.String("url", m.serviceURL))
			return nil
		}
		if time.Now().After(deadline) {
			return types.NewAppError(types.ErrDetect,
				fmt.Sprintf("layout service did not become healthy within %s", m.startTimeout), nil)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.pollInterval):
		}
	}
}

// isHealthy treats any HTTP response below 500 as alive: the service
// answers 405 or 422 on its root route once it is serving.
func (m *Manager) isHealthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.serviceURL+"/", nil)
	if err != nil {
		return false
	}
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < 500
}
