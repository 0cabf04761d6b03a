package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/quokkadb/pagecache/core/pagecache"
	"github.com/quokkadb/pagecache/pkg/logger"
)

var (
	policyName = flag.String("policy", "lru", "Replacement policy: lru or lru2")
	pageSize   = flag.Int("page-size", 4096, "Page size in bytes (power of two)")
	extraSize  = flag.Int("extra-size", 0, "Extra buffer size in bytes (0-250)")
	maxPages   = flag.Int("max-pages", 64, "Maximum number of resident pages")
	logLevel   = flag.String("log-level", "warn", "Log level (debug, info, warn, error)")
)

const helpText = `Commands:
  fetch <id> [noalloc]    fetch and pin a page; noalloc suppresses allocation on miss
  unpin <id> [discard]    release a held page; discard destroys it
  rekey <old> <new>       change a held page's id
  truncate <limit>        discard all pages with id >= limit
  resize <n>              set the maximum number of resident pages
  pages                   show resident page count and held handles
  stats                   show fetch/hit counters
  help                    show this help
  exit                    quit`

func main() {
	flag.Parse()

	zlogger, err := logger.New(logger.Config{Level: *logLevel, Format: "console", OutputFile: "stderr"})
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer zlogger.Sync()

	variant, err := pagecache.ParseVariant(*policyName)
	if err != nil {
		log.Fatalf("invalid -policy: %v", err)
	}
	engine, err := pagecache.NewCacheEngine(*pageSize, *extraSize, variant, pagecache.WithLogger(zlogger))
	if err != nil {
		log.Fatalf("failed to create cache engine: %v", err)
	}
	engine.SetMaxPages(*maxPages)
	defer engine.Close()

	rl, err := readline.New("pagecache> ")
	if err != nil {
		log.Fatalf("failed to initialize readline: %v", err)
	}
	defer rl.Close()

	fmt.Printf("page cache REPL: policy=%s page_size=%d extra_size=%d max_pages=%d\n",
		variant, *pageSize, *extraSize, *maxPages)
	fmt.Println("type 'help' for commands")

	// Handles the REPL currently holds, keyed by page id. Only pinned
	// pages have handles; unpinning or discarding relinquishes them,
	// mirroring how the host treats the cache.
	handles := make(map[pagecache.PageID]*pagecache.Page)

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "read error: %v\n", err)
			break
		}
		fields := strings.Fields(strings.TrimSpace(line))
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "exit" || fields[0] == "quit" {
			break
		}
		runCommand(engine, handles, fields)
	}
}

func runCommand(engine *pagecache.CacheEngine, handles map[pagecache.PageID]*pagecache.Page, fields []string) {
	switch fields[0] {
	case "help":
		fmt.Println(helpText)

	case "fetch":
		id, ok := parseID(fields, 1)
		if !ok {
			return
		}
		allocate := true
		if len(fields) > 2 && fields[2] == "noalloc" {
			allocate = false
		}
		before := engine.NumHits()
		p := engine.Fetch(id, allocate)
		if p == nil {
			fmt.Println("(nil) miss: not resident or all pages pinned")
			return
		}
		handles[p.ID()] = p
		if engine.NumHits() > before {
			fmt.Printf("hit: page %d pinned (%d bytes)\n", p.ID(), len(p.Data()))
		} else {
			fmt.Printf("miss: page %d pinned (%d bytes)\n", p.ID(), len(p.Data()))
		}

	case "unpin":
		id, ok := parseID(fields, 1)
		if !ok {
			return
		}
		p, held := handles[id]
		if !held {
			fmt.Printf("no handle for page %d (fetch it first)\n", id)
			return
		}
		discard := len(fields) > 2 && fields[2] == "discard"
		delete(handles, id)
		engine.Unpin(p, discard)
		fmt.Printf("unpinned page %d (discard=%t)\n", id, discard)

	case "rekey":
		oldID, ok := parseID(fields, 1)
		if !ok {
			return
		}
		newID, ok := parseID(fields, 2)
		if !ok {
			return
		}
		p, held := handles[oldID]
		if !held {
			fmt.Printf("no handle for page %d (fetch it first)\n", oldID)
			return
		}
		engine.Rekey(p, newID)
		delete(handles, oldID)
		handles[newID] = p
		fmt.Printf("rekeyed page %d -> %d\n", oldID, newID)

	case "truncate":
		limit, ok := parseID(fields, 1)
		if !ok {
			return
		}
		engine.Truncate(limit)
		// Handles into the truncated range are stale now.
		for id := range handles {
			if id >= limit {
				delete(handles, id)
			}
		}
		fmt.Printf("truncated pages >= %d, %d resident\n", limit, engine.NumPages())

	case "resize":
		if len(fields) < 2 {
			fmt.Println("usage: resize <n>")
			return
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil || n < 0 {
			fmt.Printf("invalid size %q\n", fields[1])
			return
		}
		engine.SetMaxPages(n)
		fmt.Printf("max_pages=%d, %d resident\n", n, engine.NumPages())

	case "pages":
		held := make([]string, 0, len(handles))
		for id := range handles {
			held = append(held, strconv.FormatUint(uint64(id), 10))
		}
		fmt.Printf("%d resident (max %d), holding: [%s]\n",
			engine.NumPages(), engine.MaxPages(), strings.Join(held, " "))

	case "stats":
		fetches, hits := engine.NumFetches(), engine.NumHits()
		ratio := 0.0
		if fetches > 0 {
			ratio = float64(hits) / float64(fetches)
		}
		fmt.Printf("fetches=%d hits=%d hit_ratio=%.4f\n", fetches, hits, ratio)

	default:
		fmt.Printf("unknown command %q (try 'help')\n", fields[0])
	}
}

func parseID(fields []string, idx int) (pagecache.PageID, bool) {
	if len(fields) <= idx {
		fmt.Println("missing page id")
		return 0, false
	}
	v, err := strconv.ParseUint(fields[idx], 10, 32)
	if err != nil {
		fmt.Printf("invalid page id %q\n", fields[idx])
		return 0, false
	}
	return pagecache.PageID(v), true
}
