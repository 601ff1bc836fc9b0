package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"smash/internal/config"
	"smash/internal/proc"
	"smash/internal/shell"
)

func main() {
	configFile := flag.String("config", defaultConfigFile(), "path to the YAML config file")
	command := flag.String("c", "", "run a single command line and exit")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	s, err := shell.New(cfg, proc.Std())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing shell: %v\n", err)
		os.Exit(1)
	}

	if *command != "" {
		s.RunCommand(*command)
		return
	}

	if err := s.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func defaultConfigFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "smash.yml"
	}
	return filepath.Join(home, ".smash.yml")
}
