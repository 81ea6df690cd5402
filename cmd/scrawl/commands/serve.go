package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scrawl-dev/scrawl/internal/config"
	"github.com/scrawl-dev/scrawl/internal/hub"
	"github.com/scrawl-dev/scrawl/internal/logging"
	"github.com/scrawl-dev/scrawl/internal/server"
	"github.com/scrawl-dev/scrawl/internal/token"
	"github.com/scrawl-dev/scrawl/internal/verify"
	"github.com/scrawl-dev/scrawl/pkg/canvas"
)

var serveConfigPath string

var serveCmd = &cobra.Command{
	Use:   "serve <dir>",
	Short: "Serve a canvas from a storage directory",
	Long: `Open the grid and token stores in the given storage directory and start
serving: a WebSocket listener for edit sessions and an HTTP listener for
token issuance and static web assets.

Configuration is read from --config if given, otherwise from
<dir>/scrawl.yaml when that file exists, otherwise built-in defaults.
Every setting can also be overridden through SCRAWL_-prefixed environment
variables (e.g. SCRAWL_SERVER_WS_ADDR).`,
	Args: cobra.ExactArgs(1),
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Path to the YAML config file")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	dir := args[0]

	cfgPath := serveConfigPath
	if cfgPath == "" {
		if candidate := filepath.Join(dir, "scrawl.yaml"); fileExists(candidate) {
			cfgPath = candidate
		}
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.Server.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	grid, err := canvas.Open(filepath.Join(dir, "grid"))
	if err != nil {
		return fmt.Errorf("failed to open grid data file: %w", err)
	}
	defer grid.Close()

	tokens, err := token.Open(filepath.Join(dir, "tokens"))
	if err != nil {
		return err
	}
	defer tokens.Close()

	log.Info("loaded canvas",
		zap.String("dir", dir),
		zap.Uint32("width", grid.Width()),
		zap.Uint32("height", grid.Height()),
		zap.Duration("cooldown", cfg.Canvas.Cooldown))

	srv := server.New(grid, tokens, hub.New(log),
		verify.NewHTTPVerifier(cfg.Verify.Endpoint, cfg.Verify.Groups),
		cfg.Canvas.Cooldown, log)

	wsSrv := &http.Server{Addr: cfg.Server.WSAddr, Handler: srv.WSHandler()}
	httpSrv := &http.Server{Addr: cfg.Server.HTTPAddr, Handler: srv.Router(cfg.Server.StaticDir)}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() { errCh <- listenAndServe("websocket", wsSrv, log) }()
	go func() { errCh <- listenAndServe("http", httpSrv, log) }()

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	wsSrv.Shutdown(shutdownCtx)
	httpSrv.Shutdown(shutdownCtx)

	return serveErr
}

func listenAndServe(name string, srv *http.Server, log *zap.Logger) error {
	log.Info("listener starting", zap.String("name", name), zap.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s listener failed: %w", name, err)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
