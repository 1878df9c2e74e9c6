package main

import (
	"context"
	"fmt"
	"os"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/jessevdk/go-flags"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/dropzone/pkg/entries"
	"github.com/shishobooks/dropzone/pkg/hostfs/billyfs"
)

func main() {
	log := logger.New()

	var opts struct {
		Root      string `short:"r" long:"root" default:"." description:"Directory the path is relative to"`
		BatchSize int    `short:"b" long:"batch-size" default:"100" description:"Entries per read"`
		MaxReads  int    `short:"m" long:"max-reads" default:"10000" description:"Stop after this many reads"`
		Verbose   bool   `short:"v" long:"verbose" description:"Print every entry in each batch"`
	}

	args, err := flags.Parse(&opts)
	if err != nil {
		log.Err(err).Fatal("flags parse error")
	}

	if len(args) != 1 {
		fmt.Println("go run ./cmd/scripts/debug/read-batches [-r root] [-b size] <path/to/dir>")
		os.Exit(1)
	}

	host := billyfs.New(osfs.New(opts.Root), opts.BatchSize)
	entry := host.Items(args[0])[0].Entry()
	dir, ok := entry.(entries.DirectoryEntry)
	if !ok {
		log.Fatal("not a directory", logger.Data{"path": args[0]})
	}

	ctx := log.WithContext(context.Background())
	reader := dir.CreateReader()
	total := 0
	for i := 0; i < opts.MaxReads; i++ {
		batch, err := reader.ReadEntries(ctx)
		if err != nil {
			log.Err(err).Fatal("read error")
		}
		fmt.Printf("read %d: %d entries\n", i+1, len(batch))
		if opts.Verbose {
			for _, e := range batch {
				fmt.Printf("  %-9s %s\n", e.Kind(), e.FullPath())
			}
		}
		if len(batch) == 0 {
			fmt.Printf("Total: %d entries in %d reads\n", total, i+1)
			return
		}
		total += len(batch)
	}
	log.Warn("reader never returned an empty batch", logger.Data{"reads": opts.MaxReads, "total": total})
}
