// kvcli is an interactive REPL client for kvstored, modeled on the
// teacher's sloty REPL tool but driving the Dispatcher's wire protocol
// through pkg/client instead of a local file format.
//
// Usage:
//
//	kvcli <host:port>
//
// Commands (in REPL):
//
//	set <key> <value>   Store value under key
//	get <key>           Retrieve the value stored under key
//	del <key>           Delete key
//	bulk <k1> <v1> ...  Set multiple key/value pairs atomically
//	help                Show this help
//	exit / quit / q     Exit
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/peterh/liner"

	"github.com/agentkv/kvstored/pkg/client"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "kvcli: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) < 2 {
		return errors.New("usage: kvcli <host:port>")
	}

	addr := os.Args[1]

	c, err := client.DialRetry(addr, 5*time.Second, 3)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", addr, err)
	}
	defer c.Close()

	repl := &repl{client: c, addr: addr}

	return repl.run()
}

type repl struct {
	client *client.Client
	addr   string
	liner  *liner.State
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".kvcli_history")
}

func (r *repl) run() error {
	r.liner = liner.NewLiner()
	defer r.liner.Close()

	r.liner.SetCtrlCAborts(true)
	r.liner.SetCompleter(r.completer)

	if f, err := os.Open(historyFile()); err == nil {
		r.liner.ReadHistory(f)
		f.Close()
	}

	fmt.Printf("kvcli - connected to %s\n", r.addr)
	fmt.Println("Type 'help' for available commands.")
	fmt.Println()

	for {
		line, err := r.liner.Prompt("kvcli> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fmt.Println("\nBye!")

				break
			}

			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		r.liner.AppendHistory(line)

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "exit", "quit", "q":
			fmt.Println("Bye!")
			r.saveHistory()

			return nil

		case "help", "?":
			r.printHelp()

		case "set":
			r.cmdSet(args)

		case "get":
			r.cmdGet(args)

		case "del", "delete":
			r.cmdDelete(args)

		case "bulk":
			r.cmdBulk(args)

		default:
			fmt.Printf("Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}

	r.saveHistory()

	return nil
}

func (r *repl) saveHistory() {
	if path := historyFile(); path != "" {
		if f, err := os.Create(path); err == nil {
			r.liner.WriteHistory(f)
			f.Close()
		}
	}
}

func (r *repl) completer(line string) []string {
	commands := []string{"set", "get", "del", "delete", "bulk", "help", "exit", "quit", "q"}

	var completions []string

	lower := strings.ToLower(line)
	for _, cmd := range commands {
		if strings.HasPrefix(cmd, lower) {
			completions = append(completions, cmd)
		}
	}

	return completions
}

func (r *repl) printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  set <key> <value>   Store value under key")
	fmt.Println("  get <key>           Retrieve the value stored under key")
	fmt.Println("  del <key>           Delete key")
	fmt.Println("  bulk <k1> <v1> ...  Set multiple key/value pairs atomically")
	fmt.Println("  help                Show this help")
	fmt.Println("  exit / quit / q     Exit")
}

func (r *repl) cmdSet(args []string) {
	if len(args) < 2 {
		fmt.Println("Usage: set <key> <value>")

		return
	}

	if err := r.client.Set(args[0], strings.Join(args[1:], " ")); err != nil {
		fmt.Printf("Error: %v\n", err)

		return
	}

	fmt.Println("OK")
}

func (r *repl) cmdGet(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: get <key>")

		return
	}

	value, ok, err := r.client.Get(args[0])
	if err != nil {
		fmt.Printf("Error: %v\n", err)

		return
	}

	if !ok {
		fmt.Println("(not found)")

		return
	}

	fmt.Println(value)
}

func (r *repl) cmdDelete(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: del <key>")

		return
	}

	existed, err := r.client.Delete(args[0])
	if err != nil {
		fmt.Printf("Error: %v\n", err)

		return
	}

	if existed {
		fmt.Printf("OK: deleted %s\n", args[0])
	} else {
		fmt.Printf("OK: %s did not exist\n", args[0])
	}
}

func (r *repl) cmdBulk(args []string) {
	if len(args) == 0 || len(args)%2 != 0 {
		fmt.Println("Usage: bulk <k1> <v1> [<k2> <v2> ...]")

		return
	}

	items := make([]client.KV, 0, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		items = append(items, client.KV{Key: args[i], Value: args[i+1]})
	}

	if err := r.client.BulkSet(items); err != nil {
		fmt.Printf("Error: %v\n", err)

		return
	}

	fmt.Printf("OK: set %d pairs\n", len(items))
}
