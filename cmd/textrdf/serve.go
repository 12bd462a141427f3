package textrdf

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/soundprediction/go-textrdf/pkg/config"
	"github.com/soundprediction/go-textrdf/pkg/server"
)

var serverCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"server"},
	Short:   "Start the textrdf HTTP server",
	Long: `Start the textrdf HTTP server to provide REST API access to the extraction pipeline.

The server provides endpoints for:
- Extracting JSON-LD knowledge graphs from text
- Validating JSON-LD documents against schema.org expectations
- Health checks

Configuration can be provided through config files, environment variables, or command-line flags.`,
	RunE: runServer,
}

var (
	serverHost string
	serverPort int
	serverMode string
)

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().StringVar(&serverHost, "host", "localhost", "Server host")
	serverCmd.Flags().IntVar(&serverPort, "port", 8080, "Server port")
	serverCmd.Flags().StringVar(&serverMode, "mode", "debug", "Server mode (debug, release, test)")

	serverCmd.Flags().String("llm-model", "", "LLM model")
	serverCmd.Flags().String("llm-api-key", "", "LLM API key")
	serverCmd.Flags().String("llm-base-url", "", "LLM base URL")

	serverCmd.Flags().String("kb-driver", "", "Knowledge store driver (memory, neo4j)")
	serverCmd.Flags().String("kb-uri", "", "Knowledge store URI")
	serverCmd.Flags().String("kb-username", "", "Knowledge store username")
	serverCmd.Flags().String("kb-password", "", "Knowledge store password")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	overrideConfigWithFlags(cmd, cfg)

	if err := validateServerConfig(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log := buildLogger(cfg)

	extractor, _, err := buildExtractor(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize extractor: %w", err)
	}

	srv := server.New(cfg, extractor, log)
	srv.Setup()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			serverErrChan <- err
		}
	}()

	select {
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		log.Info("received signal, shutting down", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		log.Info("server stopped gracefully")
		return nil
	}
}

func overrideConfigWithFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = serverHost
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = serverPort
	}
	if cmd.Flags().Changed("mode") {
		cfg.Server.Mode = serverMode
	}

	if cmd.Flags().Changed("llm-model") {
		cfg.LLM.Model, _ = cmd.Flags().GetString("llm-model")
	}
	if cmd.Flags().Changed("llm-api-key") {
		cfg.LLM.APIKey, _ = cmd.Flags().GetString("llm-api-key")
	}
	if cmd.Flags().Changed("llm-base-url") {
		cfg.LLM.BaseURL, _ = cmd.Flags().GetString("llm-base-url")
	}

	if cmd.Flags().Changed("kb-driver") {
		cfg.KnowledgeStore.Driver, _ = cmd.Flags().GetString("kb-driver")
	}
	if cmd.Flags().Changed("kb-uri") {
		cfg.KnowledgeStore.URI, _ = cmd.Flags().GetString("kb-uri")
	}
	if cmd.Flags().Changed("kb-username") {
		cfg.KnowledgeStore.Username, _ = cmd.Flags().GetString("kb-username")
	}
	if cmd.Flags().Changed("kb-password") {
		cfg.KnowledgeStore.Password, _ = cmd.Flags().GetString("kb-password")
	}
}

func validateServerConfig(cfg *config.Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", cfg.Server.Port)
	}

	if cfg.LLM.APIKey == "" {
		return fmt.Errorf("LLM API key is required")
	}

	return nil
}
