// merkletool builds, fills, verifies and compares Merkle trees over
// generated leaves.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/colorfulnotion/pushtree/common"
	log "github.com/colorfulnotion/pushtree/log"
	"github.com/colorfulnotion/pushtree/telemetry"
	"github.com/colorfulnotion/pushtree/trie"
	"github.com/colorfulnotion/pushtree/types"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)

type app struct {
	configPath   string
	logLevel     string
	debugModules string
	hashType     string
	endpoint     string
	depth        int
	zero         string
	seed         uint64
	encoding     string
	dataDir      string

	cfg    types.TreeConfig
	hasher trie.Hasher
	tc     *telemetry.Client
}

// setup loads the config file, applies explicitly set flags over it and
// starts logging and telemetry.
func (a *app) setup(cmd *cobra.Command) error {
	log.InitLogger(a.logLevel)
	log.EnableModules(a.debugModules)

	a.cfg = types.DefaultTreeConfig()
	if a.configPath != "" {
		cfg, err := types.LoadTreeConfig(a.configPath)
		if err != nil {
			return err
		}
		a.cfg = cfg
	}
	flags := cmd.Flags()
	if flags.Changed("hash") {
		a.cfg.HashType = a.hashType
	}
	if flags.Changed("depth") {
		a.cfg.Depth = a.depth
	}
	if flags.Changed("seed") {
		a.cfg.Seed = a.seed
	}
	if flags.Changed("encoding") {
		a.cfg.Encoding = a.encoding
	}
	if flags.Changed("db") {
		a.cfg.DataDir = a.dataDir
	}
	if flags.Changed("zero") {
		if !common.IsHexHash(a.zero) {
			return errors.Errorf("--zero %q is not a 32 byte hex string", a.zero)
		}
		a.cfg.Zero = common.HexToHash(a.zero)
	}
	if err := a.cfg.Validate(); err != nil {
		return err
	}
	h, err := trie.NewHasher(a.cfg.HashType)
	if err != nil {
		return err
	}
	a.hasher = h

	a.tc = telemetry.NewNoOpClient()
	if a.endpoint != "" {
		tc, err := telemetry.NewClient(cmd.Context(), a.endpoint, "merkletool")
		if err != nil {
			return err
		}
		a.tc = tc
	}
	log.Debug(log.BenchMonitoring, "Config", "config", a.cfg.String())
	return nil
}

func (a *app) teardown(cmd *cobra.Command) {
	if a.tc == nil {
		return
	}
	if err := a.tc.Shutdown(cmd.Context()); err != nil {
		log.Warn("", "Telemetry shutdown", "err", err)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:          "merkletool",
		Short:        "Batch and push Merkle tree harness",
		Version:      fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, BuildTime),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.teardown(cmd)
		},
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "YAML tree config file")
	pf.StringVar(&a.logLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")
	pf.StringVar(&a.debugModules, "debug", "", "Comma separated modules to trace (batch_mod,push_mod,registry_mod,storage_mod,gen_mod,bench_mod or all)")
	pf.StringVar(&a.hashType, "hash", types.Keccak, "Hash function (keccak, blake2b, mimc)")
	pf.StringVar(&a.endpoint, "telemetry", "", "OTLP/HTTP endpoint (host:port); empty disables tracing")
	pf.IntVar(&a.depth, "depth", types.DefaultDepth, "Push tree depth (1..32)")
	pf.StringVar(&a.zero, "zero", "", "Zero sentinel for empty push tree leaves (hex)")
	pf.Uint64Var(&a.seed, "seed", types.DefaultSeed, "Leaf generator seed")
	pf.StringVar(&a.encoding, "encoding", types.EncodingABI.String(), "Leaf encoding (abi, packed)")
	pf.StringVar(&a.dataDir, "db", "", "LevelDB directory for roots and snapshots")

	rootCmd.AddCommand(
		newGenerateCmd(a),
		newBuildCmd(a),
		newPushCmd(a),
		newVerifyCmd(a),
		newCompareCmd(a),
		newConsoleCmd(a),
	)
	return rootCmd
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
