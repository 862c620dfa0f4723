package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/1broseidon/winquery/internal/config"
	"gopkg.in/yaml.v3"
)

func runConfig(args []string) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, "  winquery config validate [--path PATH]")
		fmt.Fprintln(os.Stderr, "  winquery config print [--path PATH] [--defaults]")
		fmt.Fprintln(os.Stderr, "  winquery config init [--path PATH] [--force]")
		return 2
	}

	switch args[0] {
	case "validate":
		fs := flag.NewFlagSet("validate", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/winquery/config.yaml)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if _, err := loadConfig(*path); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Println("config: ok")
		return 0

	case "print":
		fs := flag.NewFlagSet("print", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/winquery/config.yaml)")
		printDefaults := fs.Bool("defaults", false, "Print built-in defaults (no files)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}

		cfg := config.DefaultConfig()
		if !*printDefaults {
			var err error
			if cfg, err = loadConfig(*path); err != nil {
				fmt.Fprintln(os.Stderr, err)
				return 1
			}
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Print(string(data))
		return 0

	case "init":
		fs := flag.NewFlagSet("init", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/winquery/config.yaml)")
		force := fs.Bool("force", false, "Overwrite an existing file")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}

		target := *path
		if target == "" {
			var err error
			if target, err = config.DefaultConfigPath(); err != nil {
				fmt.Fprintln(os.Stderr, err)
				return 1
			}
		}
		if _, err := os.Stat(target); err == nil && !*force {
			fmt.Fprintf(os.Stderr, "%s already exists (use --force to overwrite)\n", target)
			return 1
		}
		cfg := config.DefaultConfig()
		save := func() error { return cfg.SaveTo(target) }
		if *path == "" {
			save = cfg.Save
		}
		if err := save(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Printf("wrote %s\n", target)
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown config subcommand: %s\n", args[0])
		return 2
	}
}
