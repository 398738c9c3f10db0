package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/lumoracare/lumora/pkg/config"
)

const (
	configDirName  = ".lumora"
	configFileName = "config.yaml"
)

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(configDirName, configFileName)
	}
	return filepath.Join(home, configDirName, configFileName)
}

func configCommand(argv []string, cfgPath string, streams ioStreams) error {
	set := flag.NewFlagSet("config", flag.ContinueOnError)
	set.SetOutput(streams.err)
	configFlag := set.String("config", cfgPath, "Path to config file.")
	set.Usage = func() {
		fmt.Fprintln(streams.err, "Usage: lumoractl config [flags] <init|show>")
		fmt.Fprintln(streams.err, "\nCommands:")
		fmt.Fprintln(streams.err, "  init   Create a new config file with defaults")
		fmt.Fprintln(streams.err, "  show   Print the effective configuration")
		fmt.Fprintln(streams.err, "\nFlags:")
		set.PrintDefaults()
	}
	if err := set.Parse(argv); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	cfgPath = *configFlag
	args := set.Args()
	if len(args) == 0 {
		set.Usage()
		return errors.New("config expects a subcommand")
	}
	switch args[0] {
	case "init":
		return configInit(cfgPath, streams.out)
	case "show":
		return configShow(cfgPath, streams.out)
	default:
		return fmt.Errorf("unknown config subcommand %q", args[0])
	}
}

func configInit(path string, out io.Writer) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config already exists at %s", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("check config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(config.Default())
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	fmt.Fprintf(out, "created %s\n", path)
	return nil
}

func configShow(path string, out io.Writer) error {
	cfg, err := loadConfig(path)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = out.Write(data)
	return err
}

// loadConfig reads the config file when present and falls back to defaults
// when it is not. Validation stays with the caller: read-only commands like
// `config show` must work without credentials in the environment.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		cfg := config.Default()
		cfg.Normalize()
		return cfg, nil
	}
	return config.Load(path)
}
