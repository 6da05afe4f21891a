package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mapsync-dev/mapsync/internal/config"
	"github.com/mapsync-dev/mapsync/internal/errors"
	"github.com/mapsync-dev/mapsync/pkg/scene"
)

func initCmd(opts *globalOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Write a default " + config.ConfigFileName,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			if config.Exists(dir) && !force {
				return errors.Newf(errors.CategoryConfig, "%s already exists in %s", config.ConfigFileName, dir).
					WithSuggestion("Use --force to overwrite it")
			}

			level := opts.level
			if level == "" {
				level = config.DefaultLevel
			}
			cfg := defaultConfig(level)
			path := filepath.Join(dir, config.ConfigFileName)
			if err := cfg.SaveTo(path); err != nil {
				return err
			}
			success("Wrote %s", path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")
	return cmd
}

// defaultConfig returns the config written by init: defaults plus one
// selected cube, so a fresh pair of peers has something to sync.
func defaultConfig(level string) *config.Config {
	cfg := config.New()
	cfg.Level = level
	cfg.Scene.Objects = []config.ObjectSeed{{
		Name:     "Cube1",
		Class:    scene.ClassStaticMeshActor,
		Location: &[3]float32{0, 0, 100},
		Mesh:     "/Engine/BasicShapes/Cube",
		Selected: true,
	}}
	return cfg
}
