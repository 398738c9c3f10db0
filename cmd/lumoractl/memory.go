package main

import (
	"errors"
	"flag"
	"fmt"

	"github.com/lumoracare/lumora/pkg/memory"
)

// memoryCommand prints a patient's stored memory without opening a session
// or touching the model backend, so it works with no credentials set.
func memoryCommand(argv []string, cfgPath string, streams ioStreams) error {
	set := flag.NewFlagSet("memory", flag.ContinueOnError)
	set.SetOutput(streams.err)
	configFlag := set.String("config", cfgPath, "Path to config file.")
	patient := set.String("patient", "default", "Patient identity to inspect.")
	set.Usage = func() {
		fmt.Fprintln(streams.err, "Usage: lumoractl memory [flags]")
		fmt.Fprintln(streams.err, "\nFlags:")
		set.PrintDefaults()
	}
	if err := set.Parse(argv); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := loadConfig(*configFlag)
	if err != nil {
		return err
	}
	backend, err := memory.NewFileBackend(cfg.MemoryDir)
	if err != nil {
		return err
	}
	store := memory.NewFileStore(backend, nil)
	printMemory(streams.out, store.Load(*patient))
	return nil
}
