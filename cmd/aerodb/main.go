package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"go.uber.org/zap"

	"github.com/RichardKnop/aerodb"
	"github.com/RichardKnop/aerodb/internal/pkg/logging"
	"github.com/RichardKnop/aerodb/internal/pkg/util"
)

const (
	cliName string = "aerodb"

	defaultConnStr = "aerodb.db"
	defaultSchema  = "id:int,name:string,age:int"
)

func printPrompt() {
	fmt.Print(cliName, "> ")
}

func sanitizeReplInput(input string) string {
	return strings.TrimSpace(input)
}

type metaCommand int

const (
	Unknown metaCommand = iota + 1
	Help
	Exit
	Flush
	Stats
	Tree
)

func isMetaCommand(inputBuffer string) bool {
	return len(inputBuffer) > 0 && inputBuffer[:1] == "."
}

func doMetaCommand(inputBuffer string) metaCommand {
	switch strings.ToLower(inputBuffer) {
	case "help":
		return Help
	case "exit":
		return Exit
	case "flush":
		return Flush
	case "stats":
		return Stats
	case "tree":
		return Tree
	default:
		return Unknown
	}
}

func printHelp() {
	fmt.Println("insert v1, v2, ...  - Insert a record, values in schema order")
	fmt.Println("find <key>          - Find a record by its key")
	fmt.Println("read <page> <slot>  - Read a record by its location")
	fmt.Println("list                - List records in insertion order")
	fmt.Println("scan                - List records in key order")
	fmt.Println(".stats              - Show storage statistics")
	fmt.Println(".tree               - Print the index pages")
	fmt.Println(".flush              - Write dirty pages to disk")
	fmt.Println(".help               - Show available commands")
	fmt.Println(".exit               - Flush, close and exit")
}

func main() {
	var (
		connStr   = flag.String("db", defaultConnStr, "connection string, e.g. data.db?index=data.idx&max_cached_pages=50")
		schemaStr = flag.String("schema", defaultSchema, "comma separated name:type fields, types are int and string")
	)
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger, err := logging.FromEnv("warn")
	if err != nil {
		panic(err)
	}
	defer logger.Sync() // flushes buffer, if any

	schema, err := aerodb.ParseSchema(*schemaStr)
	if err != nil {
		logger.Fatal("invalid schema", zap.Error(err))
	}
	config, err := aerodb.ParseConnectionString(*connStr)
	if err != nil {
		logger.Fatal("invalid connection string", zap.Error(err))
	}
	db, err := aerodb.OpenWithLogger(ctx, logger, config, schema)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}

	fmt.Printf("Opened %s (index %s), schema %s, key field %s\n", config.DataPath, config.IndexPath, schema, db.KeyField())
	fmt.Println("Enter .help for usage hints")

	done := make(chan struct{})
	wg := new(sync.WaitGroup)
	wg.Add(1)

	go func() {
		defer wg.Done()
		defer close(done)
		reader := bufio.NewScanner(os.Stdin)
		printPrompt()

		// REPL (Read-eval-print loop) start
		for reader.Scan() {
			if ctx.Err() != nil {
				break
			}

			inputBuffer := sanitizeReplInput(reader.Text())
			if isMetaCommand(inputBuffer) {
				switch doMetaCommand(inputBuffer[1:]) {
				case Help:
					printHelp()
				case Exit:
					return
				case Flush:
					if err := db.Flush(ctx); err != nil {
						fmt.Printf("Error flushing: %s\n", err)
					}
				case Stats:
					printStats(ctx, db)
				case Tree:
					if err := db.PrintIndex(ctx, os.Stdout); err != nil {
						fmt.Printf("Error printing index: %s\n", err)
					}
				case Unknown:
					fmt.Printf("Unrecognized meta command: %s\n", inputBuffer)
				}
			} else if inputBuffer != "" {
				if err := execute(ctx, db, inputBuffer); err != nil {
					fmt.Printf("Error: %s\n", err)
				}
			}
			printPrompt()
		}
		// Print an additional line if we encountered an EOF character
		fmt.Println()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigChan:
	case <-done:
	}

	cancel()

	if err := db.Close(context.Background()); err != nil {
		fmt.Printf("error closing database: %s\n", err)
	}
}

func execute(ctx context.Context, db *aerodb.DB, input string) error {
	command, args, _ := strings.Cut(input, " ")
	args = strings.TrimSpace(args)
	fields := db.Schema().Fields()

	switch strings.ToLower(command) {
	case "insert":
		values, err := parseValues(db.Schema(), args)
		if err != nil {
			return err
		}
		rid, err := db.InsertRecord(ctx, values...)
		if err != nil {
			return err
		}
		fmt.Printf("Inserted at %s\n", rid)
	case "find":
		key, err := strconv.ParseInt(args, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid key %q", args)
		}
		aRecord, ok, err := db.FindByKey(ctx, int32(key))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Not found")
			return nil
		}
		printRecords(fields, []aerodb.Record{aRecord})
	case "read":
		var pageID, slot uint32
		if _, err := fmt.Sscanf(args, "%d %d", &pageID, &slot); err != nil {
			return fmt.Errorf("usage: read <page> <slot>")
		}
		aRecord, err := db.ReadRecord(ctx, aerodb.RecordID{PageID: aerodb.PageID(pageID), Slot: slot})
		if err != nil {
			return err
		}
		printRecords(fields, []aerodb.Record{aRecord})
	case "list":
		records, err := db.Records(ctx)
		if err != nil {
			return err
		}
		printRecords(fields, records)
	case "scan":
		var records []aerodb.Record
		if err := db.Scan(ctx, false, func(aRecord aerodb.Record) error {
			records = append(records, aRecord)
			return nil
		}); err != nil {
			return err
		}
		printRecords(fields, records)
	default:
		return errors.New("unrecognized command, enter .help for usage hints")
	}
	return nil
}

func parseValues(schema *aerodb.TupleDesc, args string) ([]any, error) {
	parts := strings.Split(args, ",")
	if len(parts) != schema.NumFields() {
		return nil, fmt.Errorf("expected %d values, got %d", schema.NumFields(), len(parts))
	}

	values := make([]any, 0, len(parts))
	for i, part := range parts {
		part = strings.TrimSpace(part)
		aType, err := schema.Type(i)
		if err != nil {
			return nil, err
		}
		switch aType {
		case aerodb.Int32:
			n, err := strconv.ParseInt(part, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("value %d: %q is not an INT32", i+1, part)
			}
			values = append(values, int32(n))
		default:
			values = append(values, part)
		}
	}
	return values, nil
}

func printRecords(fields []aerodb.Field, records []aerodb.Record) {
	util.PrintTableHeader(os.Stdout, fields)
	for _, aRecord := range records {
		util.PrintTableRow(os.Stdout, fields, aRecord.Tuple.Values())
	}
	util.PrintTableEnd(os.Stdout, fields)
	fmt.Printf("%d record(s)\n", len(records))
}

func printStats(ctx context.Context, db *aerodb.DB) {
	stats, err := db.Stats(ctx)
	if err != nil {
		fmt.Printf("Error reading stats: %s\n", err)
		return
	}
	fmt.Printf("Records:      %d\n", stats.Records)
	fmt.Printf("Free space:   %d bytes\n", stats.FreeSpace)
	fmt.Printf("Index root:   page %d, height %d\n", stats.IndexRoot, stats.IndexHeight)
	for _, pool := range []struct {
		name  string
		stats aerodb.PoolStats
	}{
		{"Data pool", stats.DataPool},
		{"Index pool", stats.IndexPool},
	} {
		fmt.Printf("%-13s %d/%d cached, %d dirty, %d hits, %d misses, %d evictions, %d write backs\n",
			pool.name+":", pool.stats.Cached, pool.stats.Capacity, pool.stats.Dirty,
			pool.stats.Hits, pool.stats.Misses, pool.stats.Evictions, pool.stats.WriteBacks)
	}
}
