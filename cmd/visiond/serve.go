package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"visiond/internal/assets"
	"visiond/internal/common/fsutil"
	"visiond/internal/config"
	"visiond/internal/httpapi"
	"visiond/internal/provision"
	"visiond/internal/registry"
	"visiond/internal/supervisor"
	"visiond/pkg/types"
)

const (
	defaultAddr       = ":8090"
	defaultRuntimeDir = "~/.visiond/runtime"
)

// service adapts the supervisor to the HTTP API surface.
type service struct {
	sup       *supervisor.Supervisor
	modelsDir string
}

func (s *service) Infer(ctx context.Context, req types.InferRequest) (string, error) {
	return s.sup.Infer(ctx, supervisor.InferOptions{
		Config: supervisor.ServerConfig{
			ModelPath:      req.ModelPath,
			ProjectorPath:  req.ProjectorPath,
			ContextSize:    req.ContextSize,
			Threads:        req.Threads,
			GPULayers:      req.GPULayers,
			BatchSize:      req.BatchSize,
			MicroBatchSize: req.MicroBatchSize,
		},
		Prompt:       req.Prompt,
		SystemPrompt: req.SystemPrompt,
		ImageBase64:  req.ImageBase64,
		ImagePath:    req.ImagePath,
		MaxTokens:    req.MaxTokens,
		Temperature:  req.Temperature,
	})
}

func (s *service) ListModels() ([]types.Model, error) {
	if s.modelsDir == "" {
		return nil, nil
	}
	return registry.ScanDir(s.modelsDir)
}

func (s *service) Status() types.StatusResponse { return s.sup.Status() }
func (s *service) Ready() bool                  { return s.sup.Ready() }

// buildSupervisor wires resolver, provisioner and supervisor from config.
func buildSupervisor(cfg config.Config, log zerolog.Logger) (*supervisor.Supervisor, error) {
	runtimeDir := cfg.RuntimeDir
	if runtimeDir == "" {
		runtimeDir = defaultRuntimeDir
	}
	runtimeDir, err := fsutil.ExpandHome(runtimeDir)
	if err != nil {
		return nil, err
	}
	if err := fsutil.EnsureDir(runtimeDir); err != nil {
		return nil, err
	}

	resolver := assets.NewResolver(log)
	resolver.OverrideURL = cfg.ServerURL
	resolver.Tag = cfg.ServerTag
	resolver.DisableGPU = cfg.NoGPU

	prov := provision.NewProvisioner(resolver, runtimeDir, log)
	if prov.EnvBinary, err = fsutil.ExpandHome(cfg.ServerBin); err != nil {
		return nil, err
	}
	if prov.BundledBinary, err = fsutil.ExpandHome(cfg.BundledBin); err != nil {
		return nil, err
	}

	return supervisor.New(prov, supervisor.Options{
		StartupTimeout:   cfg.StartupTimeout(),
		RequestTimeout:   cfg.RequestTimeout(),
		KeepAlive:        cfg.KeepAlive(),
		MaxResponseBytes: cfg.MaxResponseBytes(),
	}, log), nil
}

func buildServeCmd(flags *rootFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}
			if cfg.Addr == "" {
				cfg.Addr = defaultAddr
			}
			log := newLogger(cfg.LogLevel)
			return runServe(cfg, log)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address, e.g. :8090 (overrides config)")
	return cmd
}

func runServe(cfg config.Config, log zerolog.Logger) error {
	sup, err := buildSupervisor(cfg, log)
	if err != nil {
		return err
	}

	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	httpapi.SetLogger(log)
	httpapi.SetBaseContext(baseCtx)

	mux := httpapi.NewMux(&service{sup: sup, modelsDir: cfg.ModelsDir})
	srv := &http.Server{Addr: cfg.Addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("visiond listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		return err
	}

	cancelBase()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown error")
	}
	if err := sup.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("supervisor shutdown error")
	}
	return nil
}
