package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/lumoracare/lumora/pkg/companion"
	"github.com/lumoracare/lumora/pkg/memory"
)

func chatCommand(ctx context.Context, argv []string, cfgPath string, streams ioStreams) error {
	set := flag.NewFlagSet("chat", flag.ContinueOnError)
	set.SetOutput(streams.err)
	configFlag := set.String("config", cfgPath, "Path to config file.")
	patient := set.String("patient", "default", "Patient identity the session belongs to.")
	set.Usage = func() {
		fmt.Fprintln(streams.err, "Usage: lumoractl chat [flags]")
		fmt.Fprintln(streams.err, "\nFlags:")
		set.PrintDefaults()
	}
	if err := set.Parse(argv); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := validatedConfig(*configFlag)
	if err != nil {
		return err
	}
	backend, err := newModel(cfg)
	if err != nil {
		return err
	}
	store, err := newStore(cfg)
	if err != nil {
		return err
	}

	opts, err := sessionOptions(cfg)
	if err != nil {
		return err
	}
	sess := companion.NewSession(*patient, backend, store, opts...)
	if err := sess.Start(ctx); err != nil {
		// The session stays usable; the next turn surfaces its own errors.
		fmt.Fprintf(streams.err, "warning: session bootstrap failed: %v\n", err)
	}

	printHeader(streams.out)
	fmt.Fprintf(streams.out, "\nLumora: %s! I'm Lumora, your companion. How are you feeling today?\n", timeGreeting(time.Now()))

	scanner := bufio.NewScanner(streams.in)
	for {
		fmt.Fprint(streams.out, "\nYou: ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		switch strings.ToLower(input) {
		case "exit", "quit":
			fmt.Fprintln(streams.out, "\nLumora: It was lovely spending time with you. I'll be here when you need me again. Take care!")
			return nil
		case "new session":
			if err := sess.NewConversation(ctx); err != nil {
				fmt.Fprintf(streams.err, "warning: restart failed: %v\n", err)
			}
			fmt.Fprintln(streams.out, "\nLumora: I'm starting a fresh conversation, but I'll remember everything we've discussed before.")
			continue
		case "memory":
			printMemory(streams.out, sess.Record())
			continue
		case "reset memory":
			fmt.Fprint(streams.out, "\nWARNING: This will erase all stored patient memory. Type 'CONFIRM' to proceed: ")
			if !scanner.Scan() {
				return scanner.Err()
			}
			if strings.TrimSpace(scanner.Text()) != "CONFIRM" {
				fmt.Fprintln(streams.out, "\nLumora: Memory reset cancelled.")
				continue
			}
			if err := sess.ResetMemory(ctx); err != nil {
				fmt.Fprintf(streams.err, "warning: restart after reset failed: %v\n", err)
			}
			fmt.Fprintln(streams.out, "\nLumora: I've reset my memory. Let's start fresh. How are you today?")
			continue
		}

		reply, err := sess.Send(ctx, input)
		if err != nil {
			fmt.Fprintf(streams.err, "warning: could not persist memory: %v\n", err)
		}
		fmt.Fprintf(streams.out, "\nLumora: %s\n", reply)
	}
}

func printHeader(out io.Writer) {
	line := strings.Repeat("=", 60)
	fmt.Fprintln(out, "\n"+line)
	fmt.Fprintln(out, "                       LUMORA ASSISTANT")
	fmt.Fprintln(out, "           A nurturing companion for dementia care")
	fmt.Fprintln(out, line)
	fmt.Fprintln(out, "\nType your message to chat with Lumora.")
	fmt.Fprintln(out, "Special commands:")
	fmt.Fprintln(out, "  'exit' or 'quit' - End the session")
	fmt.Fprintln(out, "  'new session' - Start a new chat session (keeps memory)")
	fmt.Fprintln(out, "  'memory' - View current patient memory")
	fmt.Fprintln(out, "  'reset memory' - Clear all patient memory (use with caution)")
	fmt.Fprintln(out, strings.Repeat("-", 60))
}

func timeGreeting(now time.Time) string {
	switch hour := now.Hour(); {
	case hour >= 5 && hour < 12:
		return "Good morning"
	case hour >= 12 && hour < 18:
		return "Good afternoon"
	default:
		return "Good evening"
	}
}

func printMemory(out io.Writer, rec *memory.Record) {
	fmt.Fprintln(out, "\n----- PATIENT MEMORY -----")
	if len(rec.PersonalInfo) > 0 {
		fmt.Fprintln(out, "\nPersonal Information:")
		for _, k := range sortedKeys(rec.PersonalInfo) {
			fmt.Fprintf(out, "  - %s: %s\n", k, rec.PersonalInfo[k])
		}
	}
	if len(rec.ImportantMemories) > 0 {
		fmt.Fprintln(out, "\nImportant Memories:")
		for _, m := range rec.ImportantMemories {
			fmt.Fprintf(out, "  - %s\n", m)
		}
	}
	if len(rec.Preferences) > 0 {
		fmt.Fprintln(out, "\nPreferences:")
		for _, k := range sortedKeys(rec.Preferences) {
			fmt.Fprintf(out, "  - %s: %s\n", k, rec.Preferences[k])
		}
	}
	if len(rec.TopicsDiscussed) > 0 {
		fmt.Fprintln(out, "\nFrequently Discussed Topics:")
		for _, t := range topicsByCount(rec.TopicsDiscussed) {
			fmt.Fprintf(out, "  - %s: %d times\n", t, rec.TopicsDiscussed[t])
		}
	}
	fmt.Fprintln(out, "\n--------------------------")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// topicsByCount orders topics most-discussed first, ties alphabetical.
func topicsByCount(topics map[string]int) []string {
	keys := make([]string, 0, len(topics))
	for k := range topics {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if topics[keys[i]] != topics[keys[j]] {
			return topics[keys[i]] > topics[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}
