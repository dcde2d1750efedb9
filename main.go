package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"launcher/pkg/cli"
	"launcher/pkg/common"
	"launcher/pkg/config"
	"launcher/pkg/environ"
	"launcher/pkg/logging"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], environ.Capture(), os.Stdin, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, env environ.Snapshot, stdin io.Reader, stdout, stderr io.Writer) int {
	// 1. Parse cli.def
	engine, err := cli.NewEngine(cli.DefaultDSL)
	if err != nil {
		fmt.Fprintf(stderr, "INTERNAL ERROR: parsing CLI definition: %v\n", err)
		return common.ExitLauncherFailure
	}
	engine.SetOutput(stdout)

	// 2. Parse command line arguments
	pr := engine.Parse(args)
	if pr.Error != nil {
		fmt.Fprintf(stderr, "Error: %v\n", pr.Error)
		return common.ExitLauncherFailure
	}
	if pr.Help {
		engine.PrintHelp(pr.HelpArgs...)
		return 0
	}
	inv := pr.Invocation

	// 3. Configuration and logging
	cfg, err := config.Init(env, inv.GlobalString("config"))
	if err != nil {
		fmt.Fprintf(stderr, "Error: initializing config: %v\n", err)
		return common.ExitLauncherFailure
	}
	level := cfg.GetLogLevel()
	if inv.GlobalBool("verbose") {
		level = "debug"
	}
	if _, err := logging.Setup(stderr, level, cfg.GetLogFormat()); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return common.ExitLauncherFailure
	}
	slog.Debug("starting", "build", config.GetBuildInfo(), "config", cfg.GetSource(), "temp", cfg.GetTempDir())

	// 4. Execute
	cli.RegisterHandlers(engine, &cli.Session{
		Env:    env,
		Config: cfg,
		Stdin:  stdin,
		Stdout: stdout,
		Stderr: stderr,
	})
	res, err := engine.Execute(ctx, inv)
	if err != nil {
		code := common.ExitCodeFor(err)
		if common.IsInvariant(err) {
			slog.Error("aborting", "error", err)
		} else {
			slog.Error("launcher failed", "error", err, "not_found", errors.Is(err, common.ErrNotFound))
		}
		return code
	}
	return res.ExitCode
}
