package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"juliaform/controller"
	"juliaform/core"
	"juliaform/db"
	"juliaform/form"
	"juliaform/juliaclient"
	"juliaform/logging"
	"juliaform/report"
	"juliaform/shutdown"
	"juliaform/webui"
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := godotenv.Load(); err != nil {
		// Logger isn't up yet.
		fmt.Printf("Note: no .env file loaded: %v\n", err)
	}

	cfg, err := core.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return core.ExitCodeError
	}

	logger, err := logging.NewLogger(cfg.DevMode, cfg.LogFile, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return core.ExitCodeError
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil && cfg.DevMode {
			fmt.Printf("Failed to sync logger: %v\n", syncErr)
		}
	}()

	log := logger.Zap().Named("main")
	log.Info("configuration loaded",
		zap.String("base_url", cfg.BaseURL),
		zap.Duration("request_timeout", cfg.RequestTimeout),
		zap.Bool("sanitize_markup", cfg.SanitizeMarkup),
		zap.Bool("allow_self_signed_certs", cfg.AllowSelfSignedCerts),
		zap.Bool("one_shot", cfg.IsOneShot()),
		zap.String("history_db", cfg.HistoryDB),
		zap.Bool("dev_mode", cfg.DevMode))

	client := juliaclient.NewFromConfig(cfg, logger.Zap())

	mgr := shutdown.NewManager(logger.Zap())
	mgr.Start()

	var history *db.History
	if cfg.HistoryEnabled() {
		history, err = db.OpenHistory(mgr.Context(), cfg.HistoryDB, cfg.HistoryRetention, logger.Zap())
		if err != nil {
			log.Error("opening render history failed", zap.String("path", cfg.HistoryDB), zap.Error(err))
			mgr.Shutdown()
			return core.ExitCodeError
		}
		mgr.Register("history", 20, history.Close)
	}

	var code int
	if cfg.IsOneShot() {
		var rec renderLog
		if history != nil {
			rec = history
		}
		code = runOnce(mgr.Context(), cfg, client, rec, os.Stdout, logger.Zap())
		if code != core.ExitCodeSuccess && mgr.Interrupted() {
			code = core.ExitCodeSIGINT
		}
	} else {
		code = serve(mgr, cfg, client, history, logger.Zap())
	}
	if err := mgr.Shutdown(); err != nil && code == core.ExitCodeSuccess {
		code = core.ExitCodeError
	}

	log.Info("exiting", zap.Int("code", code), zap.String("status", core.ExitCodeName(code)))
	return code
}

// renderLog receives issued requests; nil disables recording.
type renderLog interface {
	Enqueue(r db.Render) bool
}

// runOnce fills the form from the parameters file, loads constraints, makes
// one generate attempt and writes the markup to the output file.
func runOnce(ctx context.Context, cfg *core.Config, svc controller.ImageService, rec renderLog, out io.Writer, logger *zap.Logger) int {
	presets, err := form.LoadPresets(cfg.ParamsFile)
	if err != nil {
		logger.Error("reading parameters failed", zap.String("file", cfg.ParamsFile), zap.Error(err))
		fmt.Fprintf(out, "Cannot read parameters: %v\n", err)
		return core.ExitCodeError
	}

	f := form.NewJuliaForm()
	f.Fill(presets)
	ctrl := controller.New(svc, f, logger)

	res, err := ctrl.Load(ctx)
	rep := report.Run{Fields: f.Fields(), Result: res, Err: err}

	if rec != nil && res.RequestID != "" {
		r := db.Render{
			RequestID: res.RequestID,
			Outcome:   res.Outcome.String(),
			Params:    res.Snapshot,
			Duration:  res.Duration,
		}
		if err != nil {
			r.Error = err.Error()
		}
		rec.Enqueue(r)
	}

	if res.Outcome == controller.Rendered {
		if werr := os.WriteFile(cfg.OutputFile, []byte(f.Image()), 0o644); werr != nil {
			logger.Error("writing markup failed", zap.String("file", cfg.OutputFile), zap.Error(werr))
			rep.Err = werr
			report.Write(out, rep)
			return core.ExitCodeError
		}
		rep.OutputFile = cfg.OutputFile
	}
	report.Write(out, rep)

	switch {
	case errors.Is(err, context.Canceled):
		return core.ExitCodeSIGINT
	case err != nil:
		return core.ExitCodeError
	case res.Outcome == controller.Invalid:
		return core.ExitCodeInvalid
	default:
		return core.ExitCodeSuccess
	}
}

// serve runs the form server until a shutdown signal arrives.
func serve(mgr *shutdown.Manager, cfg *core.Config, svc controller.ImageService, history *db.History, logger *zap.Logger) int {
	srvCfg := webui.DefaultServerConfig(cfg.ListenAddr)
	srvCfg.Defaults = form.DefaultParams()
	if history != nil {
		srvCfg.History = history
	}
	srv := webui.NewServer(srvCfg, svc, logger)
	mgr.Register("webui", 10, srv.Shutdown)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case <-mgr.Context().Done():
		return core.ExitCodeSuccess
	case err := <-errCh:
		if err != nil {
			logger.Error("server stopped", zap.Error(err))
			return core.ExitCodeError
		}
		return core.ExitCodeSuccess
	}
}
