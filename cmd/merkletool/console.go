package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/colorfulnotion/pushtree/common"
	"github.com/colorfulnotion/pushtree/trie"
	"github.com/dop251/goja"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// newConsoleVM binds a push tree into a JavaScript runtime:
//
//	push(hex) / pushData(str) -> {index, root}
//	root(), stats(), reset(), leaf(i), proof(i), verify(i)
func newConsoleVM(tr *trie.PushTree, out io.Writer) *goja.Runtime {
	vm := goja.New()
	throw := func(err error) {
		panic(vm.NewGoError(err))
	}
	pushed := func(index uint64, root common.Hash) goja.Value {
		return vm.ToValue(map[string]interface{}{"index": index, "root": root.Hex()})
	}

	vm.Set("push", func(leafHex string) goja.Value {
		if !common.IsHexHash(leafHex) {
			throw(errors.Errorf("leaf %q is not a 32 byte hex string", leafHex))
		}
		index, root, err := tr.Push(common.HexToHash(leafHex))
		if err != nil {
			throw(err)
		}
		return pushed(index, root)
	})
	vm.Set("pushData", func(data string) goja.Value {
		index, root, err := tr.Push(tr.Hasher().HashLeaf([]byte(data)))
		if err != nil {
			throw(err)
		}
		return pushed(index, root)
	})
	vm.Set("root", func() string {
		return tr.Root().Hex()
	})
	vm.Set("stats", func() goja.Value {
		s := tr.Stats()
		return vm.ToValue(map[string]interface{}{
			"root":        s.Root.Hex(),
			"leafCount":   s.LeafCount,
			"capacity":    s.Capacity,
			"utilization": s.UtilizationPercent,
			"full":        tr.IsFull(),
			"remaining":   tr.RemainingCapacity(),
		})
	})
	vm.Set("reset", func() string {
		return tr.Reset().Hex()
	})
	vm.Set("leaf", func(index int64) string {
		leaf, err := tr.LeafAt(uint64(index))
		if err != nil {
			throw(err)
		}
		return leaf.Hex()
	})
	vm.Set("proof", func(index int64) goja.Value {
		p, err := tr.Proof(uint64(index))
		if err != nil {
			throw(err)
		}
		siblings := make([]string, len(p.Siblings))
		for i, s := range p.Siblings {
			siblings[i] = s.Hex()
		}
		return vm.ToValue(map[string]interface{}{"index": p.Index, "siblings": siblings})
	})
	vm.Set("verify", func(index int64) bool {
		p, err := tr.Proof(uint64(index))
		if err != nil {
			throw(err)
		}
		leaf, err := tr.LeafAt(uint64(index))
		if err != nil {
			throw(err)
		}
		ok, err := trie.VerifyProof(tr.Hasher(), p, tr.Root(), leaf)
		if err != nil {
			throw(err)
		}
		return ok
	})
	vm.Set("print", func(args ...goja.Value) {
		for _, arg := range args {
			fmt.Fprintln(out, arg.Export())
		}
	})
	return vm
}

func newConsoleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Interactive JavaScript console over a push tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			tr, err := trie.NewPushTree(a.cfg.Depth, a.cfg.Zero, trie.WithHasher(a.hasher), trie.WithLeafRetention())
			if err != nil {
				return err
			}
			rl, err := readline.NewEx(&readline.Config{
				Prompt:      "> ",
				HistoryFile: filepath.Join(os.TempDir(), "merkletool_console_history.txt"),
			})
			if err != nil {
				return errors.Wrap(err, "start readline")
			}
			defer rl.Close()

			out := cmd.OutOrStdout()
			vm := newConsoleVM(tr, out)
			fmt.Fprintf(out, "push tree depth=%d capacity=%d hash=%s\n", tr.Depth(), tr.Capacity(), tr.Hasher().Name())
			fmt.Fprintln(out, "functions: push(hex) pushData(str) root() stats() reset() leaf(i) proof(i) verify(i); 'exit' quits")
			for {
				line, err := rl.Readline()
				if err != nil {
					return nil
				}
				line = strings.TrimSpace(line)
				switch line {
				case "":
					continue
				case "exit", "quit":
					return nil
				}
				value, err := vm.RunString(line)
				if err != nil {
					fmt.Fprintln(out, "error:", err)
					continue
				}
				fmt.Fprintln(out, value.Export())
			}
		},
	}
}
