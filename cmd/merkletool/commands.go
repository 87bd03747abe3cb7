package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/colorfulnotion/pushtree/bench"
	"github.com/colorfulnotion/pushtree/common"
	"github.com/colorfulnotion/pushtree/leafgen"
	log "github.com/colorfulnotion/pushtree/log"
	"github.com/colorfulnotion/pushtree/registry"
	"github.com/colorfulnotion/pushtree/storage"
	"github.com/colorfulnotion/pushtree/treeerrors"
	"github.com/colorfulnotion/pushtree/trie"
	"github.com/colorfulnotion/pushtree/types"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
)

func progressLogger(stage string) leafgen.Progress {
	return func(done, total int) {
		log.Info(log.GenMonitoring, stage, "done", done, "total", total)
	}
}

// loadLeaves reads a leaves JSON file, or generates count leaves from the
// configured seed when path is empty.
func (a *app) loadLeaves(path string, count int) ([]types.Leaf, error) {
	if path == "" {
		return leafgen.NewGenerator(a.cfg.Seed).Generate(count, a.cfg.ChunkSize, progressLogger("Generated leaves")), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read leaves %s", path)
	}
	var leaves []types.Leaf
	if err := json.Unmarshal(data, &leaves); err != nil {
		return nil, errors.Wrapf(err, "decode leaves %s", path)
	}
	return leaves, nil
}

func (a *app) hashLeaves(leaves []types.Leaf) ([]common.Hash, error) {
	return leafgen.HashLeaves(a.hasher, leaves, a.cfg.EncodingVersion(), a.cfg.ChunkSize, progressLogger("Hashed leaves"))
}

// openRegistry opens the configured store and a registry journaled into it.
// Both are nil when no data directory is configured.
func (a *app) openRegistry() (*storage.PersistenceStore, *registry.Registry, error) {
	if a.cfg.DataDir == "" {
		return nil, nil, nil
	}
	store, err := storage.NewPersistenceStore(a.cfg.DataDir)
	if err != nil {
		return nil, nil, err
	}
	reg := registry.New(
		registry.WithHasher(a.hasher),
		registry.WithJournal(storage.NewRootJournal(store)),
		registry.WithObserver(func(ev registry.Event) {
			log.Info(log.RegistryMonitoring, "Registry", "kind", ev.Kind.String(), "root", ev.Root.Hex(), "seq", ev.Seq)
		}),
	)
	if err := reg.Restore(); err != nil {
		store.Close()
		return nil, nil, err
	}
	return store, reg, nil
}

// persist registers the snapshot root and saves the snapshot under name.
func (a *app) persist(name string, snap *storage.TreeSnapshot) error {
	store, reg, err := a.openRegistry()
	if err != nil || store == nil {
		return err
	}
	defer store.Close()
	if err := reg.SetRoot(snap.Root); err != nil && !errors.Is(err, treeerrors.ErrRootAlreadyExists) {
		return err
	}
	return storage.SaveSnapshot(store, name, snap)
}

func writeJSON(w io.Writer, out string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if out == "" || out == "-" {
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
	return os.WriteFile(out, data, 0o644)
}

func newGenerateCmd(a *app) *cobra.Command {
	var count int
	var out string
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate deterministic leaves as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			leaves, err := a.loadLeaves("", count)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), out, leaves)
		},
	}
	cmd.Flags().IntVar(&count, "count", 16, "Number of leaves")
	cmd.Flags().StringVar(&out, "out", "", "Output file (default stdout)")
	return cmd
}

func newBuildCmd(a *app) *cobra.Command {
	var (
		count      int
		samples    int
		in         string
		out        string
		name       string
		printDepth int
	)
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build a batch tree and persist a proof snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			leaves, err := a.loadLeaves(in, count)
			if err != nil {
				return err
			}
			digests, err := a.hashLeaves(leaves)
			if err != nil {
				return err
			}
			_, span := a.tc.StartSpan(cmd.Context(), "merkletool.build", attribute.Int("leaves", len(digests)))
			mt, err := trie.BuildBatchTree(digests, trie.WithHasher(a.hasher))
			span.End()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("print") {
				fmt.Fprintln(cmd.OutOrStdout(), mt.PrintTree(printDepth))
			}
			if !cmd.Flags().Changed("samples") {
				samples = a.cfg.SampleSize
			}
			snap, err := storage.SnapshotBatch(mt, samples)
			if err != nil {
				return err
			}
			if err := a.persist(name, snap); err != nil {
				return err
			}
			if out != "" {
				if err := storage.WriteSnapshotFile(out, snap); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "root=%s depth=%d leaves=%d samples=%d\n", mt.Root().Hex(), mt.Depth(), mt.Len(), len(snap.Samples))
			return nil
		},
	}
	cmd.Flags().IntVar(&count, "count", 16, "Number of generated leaves")
	cmd.Flags().IntVar(&samples, "samples", types.DefaultSampleSize, "Proof samples kept in the snapshot")
	cmd.Flags().StringVar(&in, "in", "", "Leaves JSON file (default: generate)")
	cmd.Flags().StringVar(&out, "out", "", "Snapshot file (.json or .json.gz)")
	cmd.Flags().StringVar(&name, "name", "batch", "Snapshot name in the store")
	cmd.Flags().IntVar(&printDepth, "print", 3, "Print this many top levels of the tree")
	return cmd
}

func newPushCmd(a *app) *cobra.Command {
	var (
		count   int
		samples int
		batch   bool
		in      string
		out     string
		name    string
	)
	cmd := &cobra.Command{
		Use:   "push",
		Short: "Fill a fixed-depth push tree and persist a proof snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			leaves, err := a.loadLeaves(in, count)
			if err != nil {
				return err
			}
			digests, err := a.hashLeaves(leaves)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("samples") {
				samples = a.cfg.SampleSize
			}
			var opts []trie.Option
			opts = append(opts, trie.WithHasher(a.hasher))
			if samples > 0 {
				opts = append(opts, trie.WithLeafRetention())
			}
			tr, err := trie.NewPushTree(a.cfg.Depth, a.cfg.Zero, opts...)
			if err != nil {
				return err
			}
			_, span := a.tc.StartSpan(cmd.Context(), "merkletool.push", attribute.Int("leaves", len(digests)), attribute.Bool("batch", batch))
			if batch {
				_, _, err = tr.PushBatch(digests)
			} else {
				for i, d := range digests {
					if _, _, err = tr.Push(d); err != nil {
						err = errors.Wrapf(err, "leaf %d", i)
						break
					}
				}
			}
			span.End()
			if err != nil {
				return err
			}
			snap, err := storage.SnapshotPush(tr, samples)
			if err != nil {
				return err
			}
			if err := a.persist(name, snap); err != nil {
				return err
			}
			if out != "" {
				if err := storage.WriteSnapshotFile(out, snap); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), tr.Stats().String())
			return nil
		},
	}
	cmd.Flags().IntVar(&count, "count", 16, "Number of generated leaves")
	cmd.Flags().IntVar(&samples, "samples", types.DefaultSampleSize, "Proof samples kept in the snapshot")
	cmd.Flags().BoolVar(&batch, "batch", false, "Insert all leaves with one PushBatch call")
	cmd.Flags().StringVar(&in, "in", "", "Leaves JSON file (default: generate)")
	cmd.Flags().StringVar(&out, "out", "", "Snapshot file (.json or .json.gz)")
	cmd.Flags().StringVar(&name, "name", "push", "Snapshot name in the store")
	return cmd
}

func newVerifyCmd(a *app) *cobra.Command {
	var in, name string
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Re-verify the proof samples of a snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, reg, err := a.openRegistry()
			if err != nil {
				return err
			}
			if store != nil {
				defer store.Close()
			}
			var snap *storage.TreeSnapshot
			switch {
			case in != "":
				snap, err = storage.ReadSnapshotFile(in)
			case store != nil:
				snap, err = storage.LoadSnapshot(store, name)
			default:
				err = errors.New("verify needs --in or --db")
			}
			if err != nil {
				return err
			}
			n, err := snap.Verify()
			if err != nil {
				return err
			}
			trusted := "unknown"
			if reg != nil {
				trusted = fmt.Sprint(reg.HasRoot(snap.Root))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s tree root=%s: %d/%d samples verified, registered=%s\n", snap.Kind, snap.Root.Hex(), n, len(snap.Samples), trusted)
			return nil
		},
	}
	cmd.Flags().StringVar(&in, "in", "", "Snapshot file")
	cmd.Flags().StringVar(&name, "name", "batch", "Snapshot name in the store (with --db)")
	return cmd
}

func newCompareCmd(a *app) *cobra.Command {
	var count int
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare batch build and push fill costs",
		RunE: func(cmd *cobra.Command, args []string) error {
			leaves, err := a.loadLeaves("", count)
			if err != nil {
				return err
			}
			digests, err := a.hashLeaves(leaves)
			if err != nil {
				return err
			}
			report, err := bench.Compare(cmd.Context(), a.tc, digests, a.cfg.Depth, a.cfg.Zero, a.hasher)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), "", report)
			}
			fmt.Fprint(cmd.OutOrStdout(), report.String())
			return nil
		},
	}
	cmd.Flags().IntVar(&count, "count", 1000, "Number of generated leaves")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	return cmd
}
