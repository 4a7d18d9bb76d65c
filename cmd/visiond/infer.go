package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"visiond/internal/supervisor"
)

// inferFlags carries the one-shot inference inputs.
type inferFlags struct {
	model       string
	projector   string
	image       string
	prompt      string
	system      string
	maxTokens   int
	temperature float32
	contextSize int
	gpuLayers   int
}

func buildInferCmd(flags *rootFlags) *cobra.Command {
	f := &inferFlags{contextSize: -1, gpuLayers: -1}
	cmd := &cobra.Command{
		Use:   "infer",
		Short: "Run one inference request and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			log := newLogger(cfg.LogLevel)
			sup, err := buildSupervisor(cfg, log)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			serverCfg := supervisor.ServerConfig{
				ModelPath:     f.model,
				ProjectorPath: f.projector,
			}
			if f.contextSize >= 0 {
				serverCfg.ContextSize = &f.contextSize
			}
			if f.gpuLayers >= 0 {
				serverCfg.GPULayers = &f.gpuLayers
			}

			text, err := sup.Infer(ctx, supervisor.InferOptions{
				Config:       serverCfg,
				Prompt:       f.prompt,
				SystemPrompt: f.system,
				ImagePath:    f.image,
				MaxTokens:    f.maxTokens,
				Temperature:  f.temperature,
			})
			// Tear down the child regardless of the request outcome.
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer stopCancel()
			if serr := sup.Shutdown(stopCtx); serr != nil {
				log.Warn().Err(serr).Msg("supervisor shutdown error")
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
	cmd.Flags().StringVar(&f.model, "model", "", "Path to the primary GGUF model file")
	cmd.Flags().StringVar(&f.projector, "mmproj", "", "Path to the multimodal projector file")
	cmd.Flags().StringVar(&f.image, "image", "", "Path to an image file")
	cmd.Flags().StringVar(&f.prompt, "prompt", "", "User prompt")
	cmd.Flags().StringVar(&f.system, "system", "", "System prompt override")
	cmd.Flags().IntVar(&f.maxTokens, "max-tokens", 0, "Maximum tokens to generate (0 = default)")
	cmd.Flags().Float32Var(&f.temperature, "temperature", 0, "Sampling temperature (0 = default)")
	cmd.Flags().IntVar(&f.contextSize, "ctx", -1, "Context window size (-1 = server default)")
	cmd.Flags().IntVar(&f.gpuLayers, "ngl", -1, "GPU layers to offload (-1 = auto)")
	_ = cmd.MarkFlagRequired("model")
	return cmd
}
