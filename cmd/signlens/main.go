package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/fatih/color"
	"github.com/mdobak/go-xerrors"

	"github.com/silenttalk/signlens/internal/app"
	"github.com/silenttalk/signlens/internal/config"
	"github.com/silenttalk/signlens/internal/lgr"
	"github.com/silenttalk/signlens/internal/tray"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 2
	}
	if err := parseFlags(cfg, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 2
	}

	logCloser, err := lgr.Init(lgr.Options{
		Level:  cfg.LogLevel,
		Format: logFormat(cfg),
		File:   cfg.LogFile,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		return 2
	}
	defer logCloser.Close()

	banner(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(cfg)
	if err != nil {
		lgr.Logger.Error("startup failed", slog.Any("error", xerrors.New(err.Error())))
		return 1
	}

	if !cfg.Tray {
		if err := a.Run(ctx); err != nil {
			lgr.Logger.Error("server failed", slog.Any("error", xerrors.New(err.Error())))
			return 1
		}
		return 0
	}

	// The tray needs the main goroutine, so the server runs beside it.
	t := tray.New()
	a.AddListener(t)
	t.OnWebcam(func(start bool) {
		var err error
		if start {
			err = a.Session().StartWebcam(ctx)
		} else {
			_, err = a.Session().Stop(ctx)
		}
		if err != nil {
			lgr.Logger.Warn("tray webcam toggle", slog.Any("error", err))
		}
	})
	t.OnOpen(func() { openBrowser(pageURL(cfg.HTTPAddr)) })
	t.OnQuit(stop)

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Run(ctx)
		t.Quit()
	}()
	t.Run()
	stop()

	if err := <-errCh; err != nil {
		lgr.Logger.Error("server failed", slog.Any("error", xerrors.New(err.Error())))
		return 1
	}
	return 0
}

// parseFlags overrides cfg with the flags present on the command line.
func parseFlags(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("signlens", flag.ContinueOnError)
	fs.StringVar(&cfg.HTTPAddr, "addr", cfg.HTTPAddr, "HTTP listen address")
	fs.IntVar(&cfg.CameraID, "camera", cfg.CameraID, "webcam device index")
	fs.IntVar(&cfg.SkipFactor, "skip", cfg.SkipFactor, "classify every n-th frame")
	fs.StringVar(&cfg.ModelPath, "model", cfg.ModelPath, "ONNX sign classifier")
	fs.StringVar(&cfg.LabelsPath, "labels", cfg.LabelsPath, "label index to sign JSON")
	fs.StringVar(&cfg.TranslatorBackend, "translator", cfg.TranslatorBackend, "translator backend: grpc, exec or phrasebook")
	fs.StringVar(&cfg.StoreDSN, "db", cfg.StoreDSN, "SQLite DSN, :memory: keeps nothing on disk")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	fs.BoolVar(&cfg.Tray, "tray", cfg.Tray, "show a system tray menu")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return cfg.Validate()
}

func logFormat(cfg *config.Config) string {
	if !cfg.IsDev() && cfg.LogFormat == "text" {
		return "json"
	}
	return cfg.LogFormat
}

func banner(cfg *config.Config) {
	title := color.New(color.FgCyan, color.Bold)
	dim := color.New(color.Faint)
	title.Println("SignLens - ASL to Vietnamese")
	dim.Printf("  http      %s\n", pageURL(cfg.HTTPAddr))
	dim.Printf("  model     %s\n", cfg.ModelPath)
	dim.Printf("  translate %s\n", cfg.TranslatorBackend)
	dim.Printf("  skip      every %d frames\n", cfg.SkipFactor)
}

func pageURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr + "/ASL"
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port) + "/ASL"
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		lgr.Logger.Warn("open browser", slog.String("url", url), slog.Any("error", err))
		return
	}
	go cmd.Wait()
}
