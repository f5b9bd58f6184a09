package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	cfgpkg "github.com/phpan/ra/internal/config"
	"github.com/phpan/ra/internal/logstore"
	"github.com/phpan/ra/internal/logstore/pebblelog"
	pebblestore "github.com/phpan/ra/internal/storage/pebble"
	logpkg "github.com/phpan/ra/pkg/log"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ra",
		Short: "ra log store CLI",
		Long:  "ra manages and inspects a durable replicated-log store directory.",
	}
	rootCmd.PersistentFlags().String("config", "", "Path to JSON config file")
	rootCmd.PersistentFlags().String("data-dir", "", "Store directory (default from config/env/OS data dir)")
	rootCmd.PersistentFlags().String("fsync", "", "Fsync mode: always|interval|never")
	rootCmd.PersistentFlags().String("log-level", os.Getenv("RA_LOG_LEVEL"), "Log level: debug|info|warn|error")
	rootCmd.PersistentFlags().String("log-format", os.Getenv("RA_LOG_FORMAT"), "Log format: text|json")

	// log
	logCmd := &cobra.Command{Use: "log", Short: "Log operations"}

	logDumpCmd := &cobra.Command{
		Use:   "dump",
		Short: "Print entries in ascending index order",
		RunE: func(cmd *cobra.Command, args []string) error {
			start, _ := cmd.Flags().GetUint64("start")
			count, _ := cmd.Flags().GetInt("count")
			store, cleanup, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer cleanup()
			for _, e := range store.Take(start, count) {
				fmt.Printf("%d\t%d\t%q\n", e.Index, e.Term, e.Data)
			}
			return nil
		},
	}
	logDumpCmd.Flags().Uint64("start", 1, "First index to read")
	logDumpCmd.Flags().Int("count", 100, "Maximum entries to print")
	logCmd.AddCommand(logDumpCmd)

	logLastCmd := &cobra.Command{
		Use:   "last",
		Short: "Print the tail position and the durable cursor",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cleanup, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer cleanup()
			if it, ok := store.LastIndexTerm(); ok {
				fmt.Printf("last index/term: %d/%d\n", it.Index, it.Term)
			} else {
				fmt.Println("last index/term: unknown")
			}
			lw := store.LastWritten()
			fmt.Printf("last written: %d/%d\n", lw.Index, lw.Term)
			fmt.Printf("next index: %d\n", store.NextIndex())
			return nil
		},
	}
	logCmd.AddCommand(logLastCmd)

	logCompactCmd := &cobra.Command{
		Use:   "compact",
		Short: "Compact the entry keyspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(cmd)
			if err != nil {
				return err
			}
			defer db.Close()
			return db.CompactRange(pebblelog.KeyEntry(0), pebblelog.KeyEntry(^uint64(0)))
		},
	}
	logCmd.AddCommand(logCompactCmd)
	rootCmd.AddCommand(logCmd)

	// meta
	metaCmd := &cobra.Command{Use: "meta", Short: "Metadata table operations"}

	metaGetCmd := &cobra.Command{
		Use:   "get KEY",
		Short: "Read a metadata value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cleanup, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer cleanup()
			v, ok := store.ReadMeta(args[0])
			if !ok {
				fmt.Println("(not set)")
				return nil
			}
			if n, isNum := logstore.Uint64(v); isNum && len(v) == 8 {
				fmt.Printf("%s = %d\n", args[0], n)
				return nil
			}
			fmt.Printf("%s = %q\n", args[0], v)
			return nil
		},
	}
	metaCmd.AddCommand(metaGetCmd)

	metaSetCmd := &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Write a metadata value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			asUint, _ := cmd.Flags().GetBool("uint64")
			store, cleanup, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer cleanup()
			value := []byte(args[1])
			if asUint {
				n, err := strconv.ParseUint(args[1], 10, 64)
				if err != nil {
					return fmt.Errorf("parse value: %w", err)
				}
				value = logstore.PutUint64(n)
			}
			if err := store.WriteMeta(args[0], value); err != nil {
				return err
			}
			return store.SyncMeta()
		},
	}
	metaSetCmd.Flags().Bool("uint64", false, "Encode VALUE as a big-endian uint64")
	metaCmd.AddCommand(metaSetCmd)
	rootCmd.AddCommand(metaCmd)

	// snapshot
	snapCmd := &cobra.Command{Use: "snapshot", Short: "Snapshot operations"}
	snapInfoCmd := &cobra.Command{
		Use:   "info",
		Short: "Print the installed snapshot position",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cleanup, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer cleanup()
			snap, ok := store.ReadSnapshot()
			if !ok {
				fmt.Println("no snapshot installed")
				return nil
			}
			fmt.Printf("snapshot index/term: %d/%d\n", snap.Index, snap.Term)
			fmt.Printf("config bytes: %d, state bytes: %d\n", len(snap.Config), len(snap.State))
			return nil
		},
	}
	snapCmd.AddCommand(snapInfoCmd)
	rootCmd.AddCommand(snapCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// resolveConfig merges config file, RA_* env and flags, flags winning.
func resolveConfig(cmd *cobra.Command) (cfgpkg.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := cfgpkg.Load(path)
	if err != nil {
		return cfgpkg.Config{}, fmt.Errorf("load config: %w", err)
	}
	cfgpkg.FromEnv(&cfg)
	if v, _ := cmd.Flags().GetString("data-dir"); v != "" {
		cfg.DataDir = v
	}
	if v, _ := cmd.Flags().GetString("fsync"); v != "" {
		cfg.Fsync = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if v, _ := cmd.Flags().GetString("log-format"); v != "" {
		cfg.LogFormat = v
	}
	if cfg.DataDir == "" {
		cfg.DataDir = cfgpkg.DefaultDataDir()
	}
	return cfg, nil
}

func newLogger(cfg cfgpkg.Config) logpkg.Logger {
	level, err := logpkg.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logpkg.InfoLevel
	}
	format, err := logpkg.ParseFormat(cfg.LogFormat)
	if err != nil {
		format = logpkg.TextFormat
	}
	return logpkg.NewLogger(logpkg.WithLevel(level), logpkg.WithFormat(format))
}

func openDB(cmd *cobra.Command) (*pebblestore.DB, error) {
	db, _, err := openDBWithConfig(cmd)
	return db, err
}

func openDBWithConfig(cmd *cobra.Command) (*pebblestore.DB, cfgpkg.Config, error) {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return nil, cfgpkg.Config{}, err
	}
	mode, err := pebblestore.ParseFsyncMode(cfg.Fsync)
	if err != nil {
		return nil, cfgpkg.Config{}, err
	}
	db, err := pebblestore.Open(pebblestore.Options{
		DataDir:       cfg.DataDir,
		Fsync:         mode,
		FsyncInterval: time.Duration(cfg.FsyncIntervalMs) * time.Millisecond,
	})
	if err != nil {
		return nil, cfgpkg.Config{}, fmt.Errorf("open store dir %s: %w", cfg.DataDir, err)
	}
	return db, cfg, nil
}

func openStore(cmd *cobra.Command) (logstore.Store, func(), error) {
	db, cfg, err := openDBWithConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	store, err := pebblelog.Open(db, pebblelog.Options{Logger: newLogger(cfg)})
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	cleanup := func() {
		_ = store.Close()
		_ = db.Close()
	}
	return store, cleanup, nil
}
