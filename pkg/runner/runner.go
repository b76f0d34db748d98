package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	runDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "arena",
		Subsystem: "runner",
		Name:      "run_duration_seconds",
		Help:      "Duration of sandboxed code runs",
		Buckets:   prometheus.DefBuckets,
	}, []string{"language"})

	runTimeouts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arena",
		Subsystem: "runner",
		Name:      "run_timeouts_total",
		Help:      "Number of runs that hit the timeout",
	}, []string{"language"})

	runFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arena",
		Subsystem: "runner",
		Name:      "run_failures_total",
		Help:      "Number of runs that failed before producing a result",
	}, []string{"language"})
)

// ErrRunnerUnavailable indicates the sandbox backend could not run the code at
// all. No execution result was produced and no submission slot is consumed.
var ErrRunnerUnavailable = errors.New("code runner unavailable")

// ErrRunnerTimeout indicates the run exceeded its time budget.
var ErrRunnerTimeout = errors.New("code run timed out")

// ErrUnsupportedLanguage indicates no sandbox image is configured for the
// requested language.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// ExecutionResult summarises a completed sandboxed run.
type ExecutionResult struct {
	Stdout           string
	Stderr           string
	ExitCode         int
	Duration         time.Duration
	MemoryUsageBytes int64
}

// Runner executes untrusted source code for a given language.
type Runner interface {
	Execute(ctx context.Context, source, language string) (ExecutionResult, error)
}

type languageConfig struct {
	Image    string
	FileName string
	Command  []string
}

var defaultLanguages = map[string]languageConfig{
	"python": {
		Image:    "python:3.11-alpine",
		FileName: "main.py",
		Command:  []string{"python", "main.py"},
	},
	"javascript": {
		Image:    "node:20-alpine",
		FileName: "main.js",
		Command:  []string{"node", "main.js"},
	},
	"go": {
		Image:    "golang:1.22-alpine",
		FileName: "main.go",
		Command:  []string{"sh", "-c", "go run main.go"},
	},
}

// Config groups runner configuration values.
type Config struct {
	Host          string
	Timeout       time.Duration
	MemoryLimitMB int64
	CPUShares     int64
	WorkspaceRoot string
	Logger        zerolog.Logger
}

// DockerRunner executes code inside disposable Docker containers with the
// network disabled and memory/CPU caps applied.
type DockerRunner struct {
	client    *client.Client
	cfg       Config
	languages map[string]languageConfig
	tracer    trace.Tracer
	logger    zerolog.Logger
}

// NewDockerRunner constructs a Docker backed runner.
func NewDockerRunner(cfg Config) (*DockerRunner, error) {
	opts := []client.Opt{client.WithAPIVersionNegotiation()}
	if cfg.Host != "" {
		opts = append(opts, client.WithHost(cfg.Host))
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}

	if cfg.WorkspaceRoot == "" {
		cfg.WorkspaceRoot = os.TempDir()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	return &DockerRunner{
		client:    cli,
		cfg:       cfg,
		languages: defaultLanguages,
		tracer:    otel.Tracer("github.com/codearena/arena-go-api/pkg/runner"),
		logger:    logger,
	}, nil
}

// Execute writes the source into a scratch workspace and runs it inside a
// sandboxed container for the requested language.
func (r *DockerRunner) Execute(parent context.Context, source, language string) (ExecutionResult, error) {
	langCfg, ok := r.languages[language]
	if !ok {
		return ExecutionResult{}, ErrUnsupportedLanguage
	}

	ctx, span := r.tracer.Start(parent, "runner.execute", trace.WithAttributes(
		attribute.String("runner.language", language),
		attribute.String("runner.image", langCfg.Image),
	))
	defer span.End()

	workspace, err := os.MkdirTemp(r.cfg.WorkspaceRoot, "run-")
	if err != nil {
		return ExecutionResult{}, fmt.Errorf("%w: create workspace: %s", ErrRunnerUnavailable, err)
	}
	defer os.RemoveAll(workspace)

	if err := os.WriteFile(filepath.Join(workspace, langCfg.FileName), []byte(source), 0600); err != nil {
		return ExecutionResult{}, fmt.Errorf("%w: write source: %s", ErrRunnerUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	hostCfg := &container.HostConfig{
		Resources: container.Resources{
			Memory:    r.cfg.MemoryLimitMB * 1024 * 1024,
			CPUShares: r.cfg.CPUShares,
		},
		NetworkMode: "none",
		Mounts: []mount.Mount{{
			Type:   mount.TypeBind,
			Source: workspace,
			Target: "/workspace",
		}},
	}

	containerCfg := &container.Config{
		Image:        langCfg.Image,
		Cmd:          langCfg.Command,
		WorkingDir:   "/workspace",
		AttachStdout: true,
		AttachStderr: true,
	}

	start := time.Now()
	result := ExecutionResult{}

	resp, err := r.client.ContainerCreate(ctx, containerCfg, hostCfg, &network.NetworkingConfig{}, nil, "")
	if err != nil {
		runFailures.WithLabelValues(language).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return result, fmt.Errorf("%w: container create: %s", ErrRunnerUnavailable, err)
	}

	containerID := resp.ID
	defer func() {
		removeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.client.ContainerRemove(removeCtx, containerID, container.RemoveOptions{Force: true}); err != nil {
			r.logger.Error().Err(err).Str("container_id", containerID).Msg("failed to remove container")
		}
	}()

	if err := r.client.ContainerStart(ctx, containerID, container.StartOptions{}); err != nil {
		runFailures.WithLabelValues(language).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return result, fmt.Errorf("%w: container start: %s", ErrRunnerUnavailable, err)
	}

	statusCh, errCh := r.client.ContainerWait(ctx, containerID, container.WaitConditionNextExit)

	var waitErr error
	select {
	case err := <-errCh:
		waitErr = err
	case status := <-statusCh:
		result.ExitCode = int(status.StatusCode)
	case <-ctx.Done():
		waitErr = ctx.Err()
	}

	result.Duration = time.Since(start)
	runDuration.WithLabelValues(language).Observe(result.Duration.Seconds())

	if waitErr != nil {
		if errors.Is(waitErr, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			runTimeouts.WithLabelValues(language).Inc()
			killCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := r.client.ContainerKill(killCtx, containerID, "KILL"); err != nil {
				r.logger.Error().Err(err).Str("container_id", containerID).Msg("failed to kill timed out container")
			}
			span.SetStatus(codes.Error, "run timed out")
			return result, fmt.Errorf("%w after %s", ErrRunnerTimeout, r.cfg.Timeout)
		}
		if !errors.Is(waitErr, context.Canceled) {
			runFailures.WithLabelValues(language).Inc()
			span.RecordError(waitErr)
			span.SetStatus(codes.Error, waitErr.Error())
			return result, fmt.Errorf("%w: container wait: %s", ErrRunnerUnavailable, waitErr)
		}
	}

	logReader, err := r.client.ContainerLogs(parent, containerID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
	})
	if err != nil {
		r.logger.Error().Err(err).Str("container_id", containerID).Msg("failed to fetch container logs")
	} else {
		defer logReader.Close()
		stdout, stderr, err := splitLogs(logReader)
		if err != nil {
			r.logger.Error().Err(err).Str("container_id", containerID).Msg("failed to read container logs")
		} else {
			result.Stdout = stdout
			result.Stderr = stderr
		}
	}

	return result, nil
}

func splitLogs(reader io.Reader) (string, string, error) {
	var stdoutBuf, stderrBuf bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdoutBuf, &stderrBuf, reader); err != nil {
		return "", "", err
	}
	return stdoutBuf.String(), stderrBuf.String(), nil
}

// Close shuts down the underlying Docker client.
func (r *DockerRunner) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}
