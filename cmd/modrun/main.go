// Command modrun loads a module directory and an application profile,
// then drives the profile's start/run/stop sequence to completion.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/coremodule/runtime/profilereader"
	"github.com/coremodule/runtime/runtime"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("modrun", flag.ContinueOnError)
	modulesDir := fs.String("modules", "", "directory containing module subdirectories (each with a plugin.xml)")
	profilePath := fs.String("profile", "", "path to the application profile.xml")
	verbose := fs.Bool("v", false, "enable debug logging")
	bootstrapPath := fs.String("bootstrap", "modrun.bootstrap.yaml", "optional YAML file providing defaults for -modules/-profile/log level")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	boot, err := loadBootstrap(*bootstrapPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if *modulesDir == "" {
		*modulesDir = boot.ModulesDir
	}
	if *profilePath == "" {
		*profilePath = boot.Profile
	}
	if *modulesDir == "" || *profilePath == "" {
		fmt.Fprintln(os.Stderr, "usage: modrun -modules <dir> -profile <profile.xml>")
		return 2
	}

	level := slog.LevelInfo
	switch {
	case *verbose:
		level = slog.LevelDebug
	case boot.LogLevel != "":
		l, err := parseLogLevel(boot.LogLevel)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		level = l
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	rt := runtime.New(logger)
	if err := rt.AddModules(*modulesDir); err != nil {
		logger.Error("failed to load modules", "error", err)
		return 1
	}

	p, err := profilereader.Read(*profilePath)
	if err != nil {
		logger.Error("failed to read profile", "error", err)
		return 1
	}
	p.Logger = logger

	if err := p.Start(rt); err != nil {
		logger.Error("profile start failed", "error", err)
		return 1
	}

	code := p.Run(rt)

	if err := p.Stop(rt); err != nil {
		logger.Error("profile stop failed", "error", err)
		if code == 0 {
			code = 1
		}
	}

	return code
}
