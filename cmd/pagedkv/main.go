package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/chzyer/readline"

	"github.com/shubhnegi/pagedkv/storage/bufferpool"
	"github.com/shubhnegi/pagedkv/storage/config"
	"github.com/shubhnegi/pagedkv/storage/diskmanager"
	"github.com/shubhnegi/pagedkv/storage/keyspace"
	"github.com/shubhnegi/pagedkv/storage/leaf"
	"github.com/shubhnegi/pagedkv/storage/log"
)

var completer = readline.NewPrefixCompleter(
	readline.PcItem("put"),
	readline.PcItem("get"),
	readline.PcItem("del"),
	readline.PcItem("use"),
	readline.PcItem("stats"),
	readline.PcItem("keyspaces"),
	readline.PcItem("exit"),
)

const helpText = `
pagedkv - a slotted-page B-tree key/value store.

Commands:
  put <key> <value>   store a value under key in the active keyspace
  get <key>            look up key
  del <key>            remove key
  use <keyspace>       switch the active keyspace, creating it if needed
  stats                show buffer pool statistics
  keyspaces            list open keyspaces
  exit                 flush and quit
`

func main() {
	dataDir := flag.String("data", "./data", "directory holding keyspace files")
	configPath := flag.String("config", "", "optional TOML config file")
	keyspaceName := flag.String("keyspace", "default", "keyspace to open at startup")
	flag.Parse()

	cfg, err := config.Load(*configPath, *dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	level := log.LevelInfo
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = log.LevelDebug
	case "warn":
		level = log.LevelWarn
	case "error":
		level = log.LevelError
	}
	logger := log.New(log.WithLevel(level))

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		logger.Fatal("failed to create data directory %s: %v", cfg.DataDir, err)
	}

	dm := diskmanager.NewDiskManager()
	dm.SetLogger(logger)

	bp, err := bufferpool.NewBufferPool(cfg.BufferPoolCapacity, dm)
	if err != nil {
		logger.Fatal("failed to build buffer pool: %v", err)
	}
	bp.SetLogger(logger)
	defer bp.Close()

	ks, err := keyspace.NewManager(cfg.DataDir, dm, bp, cfg.MaxInternalFanout, cfg.LeafEpsilon, logger)
	if err != nil {
		logger.Fatal("failed to build keyspace manager: %v", err)
	}

	active, err := ks.GetOrCreate(*keyspaceName)
	if err != nil {
		logger.Fatal("failed to open keyspace %q: %v", *keyspaceName, err)
	}
	activeName := *keyspaceName

	var seqNum uint64

	historyFile := filepath.Join(os.TempDir(), ".pagedkv_history")
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          fmt.Sprintf("pagedkv(%s)> ", activeName),
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    completer,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error initializing readline: %s\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	for {
		rl.SetPrompt(fmt.Sprintf("pagedkv(%s)> ", activeName))

		line, readErr := rl.Readline()
		if readErr != nil {
			if readErr == readline.ErrInterrupt {
				if len(line) == 0 {
					break
				}
				continue
			} else if readErr == io.EOF {
				break
			}
			fmt.Fprintf(os.Stderr, "error reading input: %s\n", readErr)
			continue
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		cmd := strings.ToLower(fields[0])

		switch cmd {
		case "exit", "quit":
			if err := ks.CloseAll(); err != nil {
				fmt.Printf("error closing keyspaces: %v\n", err)
			}
			return

		case "help":
			fmt.Print(helpText)

		case "use":
			if len(fields) != 2 {
				fmt.Println("usage: use <keyspace>")
				continue
			}
			tree, err := ks.GetOrCreate(fields[1])
			if err != nil {
				fmt.Printf("error: %v\n", err)
				continue
			}
			active = tree
			activeName = fields[1]

		case "put":
			if len(fields) < 3 {
				fmt.Println("usage: put <key> <value>")
				continue
			}
			key := []byte(fields[1])
			value := []byte(strings.Join(fields[2:], " "))
			v := leaf.NewValue(value, false, atomic.AddUint64(&seqNum, 1))
			if err := active.Put(key, v); err != nil {
				fmt.Printf("error: %v\n", err)
				continue
			}
			fmt.Println("OK")

		case "get":
			if len(fields) != 2 {
				fmt.Println("usage: get <key>")
				continue
			}
			v, ok, err := active.Get([]byte(fields[1]))
			if err != nil {
				fmt.Printf("error: %v\n", err)
				continue
			}
			if !ok || v.Header.Tombstone {
				fmt.Println("(not found)")
				continue
			}
			fmt.Println(string(v.Payload))

		case "del":
			if len(fields) != 2 {
				fmt.Println("usage: del <key>")
				continue
			}
			if err := active.Delete([]byte(fields[1])); err != nil {
				fmt.Printf("error: %v\n", err)
				continue
			}
			fmt.Println("OK")

		case "stats":
			stats := bp.GetStats()
			fmt.Printf("pages: %d/%d pinned=%d dirty=%d hit_rate=%s\n",
				stats.TotalPages, stats.Capacity, stats.PinnedPages, stats.DirtyPages,
				strconv.FormatFloat(stats.HitRate, 'f', 4, 64))

		case "keyspaces":
			for _, name := range ks.Names() {
				fmt.Println(name)
			}

		default:
			fmt.Printf("unknown command %q, try help\n", cmd)
		}
	}

	if err := ks.CloseAll(); err != nil {
		fmt.Printf("error closing keyspaces: %v\n", err)
	}
}
