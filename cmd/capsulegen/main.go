// capsulegen fits capsule colliders to the objects of OBJ or RSM models and writes capsule meshes.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-colliders/internal/config"
	"github.com/Faultbox/midgard-colliders/internal/logger"
)

func main() {
	config.ParseFlags()
	args := config.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	command := args[0]
	if command == "help" || command == "-h" || command == "--help" {
		printUsage()
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Sugar.Debugf("Config: %+v", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, command, args[1:]); err != nil {
		logger.Error("command failed", zap.String("command", command), zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, command string, args []string) error {
	switch command {
	case "fit":
		return cmdFit(ctx, cfg, args, os.Stdout)
	case "build":
		return cmdBuild(ctx, cfg, args)
	case "primitive":
		return cmdPrimitive(cfg, args)
	case "list", "ls":
		return cmdList(args, os.Stdout)
	case "config":
		return cmdConfig(cfg, args, os.Stdout)
	default:
		printUsage()
		return fmt.Errorf("unknown command: %s", command)
	}
}

func printUsage() {
	fmt.Println(`capsulegen - capsule collider generator

Usage:
  capsulegen [flags] <command> [arguments]

Commands:
  fit <model>                       Print the fitted capsule of every object as YAML
  build <model> <output.obj>        Write one capsule mesh per object
  primitive <output.obj>            Write a capsule from capsule.radius and capsule.depth
  list <archive.grf>                List the models stored in a GRF archive
  config [save [path]]              Print the effective config, or save it

Models are Wavefront OBJ files (one object per "o" or "g" group) or
Ragnarok Online RSM files (one object per node). A model inside a GRF
archive is named as <archive.grf>:<path in archive>.

Flags:
  --config <path>       Config file (default ./capsulegen.yaml, then the user config dir)
  --axis X|Y|Z          Capsule alignment axis
  --longitudes N        Segments around the axis
  --latitudes N         Segments from pole to pole (rounded up to even)
  --rings N             Extra rings along the cylinder
  --uv FIXED|ASPECT|UNIFORM
  --offset D            Grow (or shrink, if negative) every fitted radius
  --space world|local   Place meshes over their objects, or at the origin
  --workers N           Concurrent fits (0 = one per CPU)
  --triangulate         Split quads into triangles
  --debug               Debug logging

Examples:
  capsulegen fit props.obj
  capsulegen fit windmill.rsm
  capsulegen build "data.grf:data\model\windmill.rsm" windmill_collider.obj
  capsulegen --axis Y --offset 0.02 build props.obj colliders.obj
  capsulegen --longitudes 16 --latitudes 8 primitive capsule.obj`)
}
