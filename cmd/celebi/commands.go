package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"celebi/pkg/celebi"
)

type cli struct {
	opts   cliOptions
	stdout io.Writer
	stderr io.Writer
	usage  *flag.FlagSet
	dbOpts []celebi.Option
}

func (c *cli) dispatch() int {
	switch {
	case c.opts.create:
		return c.requireName(c.handleCreate)
	case c.opts.destroy:
		return c.requireName(c.handleDestroy)
	case c.opts.set:
		if c.opts.key == "" {
			return c.printUsage("You must specify a key to set with -k <key>", 1)
		}
		if c.opts.value == "" {
			return c.printUsage("You must specify a value to set with -v <value>", 1)
		}
		return c.requireName(c.handleSet)
	case c.opts.get:
		if c.opts.key == "" {
			return c.printUsage("You must specify a key to get with -k <key>", 1)
		}
		return c.requireName(c.handleGet)
	case c.opts.query:
		if c.opts.bucket == "" {
			return c.printUsage("You must specify a query term, e.g. a bucket with -b <bucket>", 1)
		}
		return c.requireName(c.handleQuery)
	default:
		return c.printUsage("No command specified!", 0)
	}
}

func (c *cli) requireName(handler func() error) int {
	if c.opts.name == "" {
		return c.printUsage("You must specify a database name with -n <name>", 1)
	}
	if err := handler(); err != nil {
		fmt.Fprintf(c.stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func (c *cli) printUsage(info string, code int) int {
	if info != "" {
		fmt.Fprintf(c.stderr, "%s\n\n", info)
	}
	fmt.Fprintln(c.stderr, "Usage of celebi:")
	c.usage.PrintDefaults()
	return code
}

func (c *cli) handleCreate() error {
	db, err := celebi.CreateEmpty(c.opts.name, c.dbOpts...)
	if err != nil {
		return err
	}
	return db.Close()
}

func (c *cli) handleDestroy() error {
	db, err := celebi.Load(c.opts.name, c.dbOpts...)
	if err != nil {
		return err
	}
	return db.Destroy()
}

func (c *cli) handleSet() error {
	db, err := celebi.Load(c.opts.name, c.dbOpts...)
	if err != nil {
		return err
	}
	defer db.Close()
	return db.Set(c.opts.key, c.opts.value, celebi.InBucket(c.opts.bucket))
}

func (c *cli) handleGet() error {
	db, err := celebi.Load(c.opts.name, c.dbOpts...)
	if err != nil {
		return err
	}
	defer db.Close()

	value, err := db.Get(c.opts.key)
	if err != nil {
		return err
	}
	// Interactive output ends with a newline; piped output is the raw value.
	if isTerminal(c.stdout) {
		_, err = fmt.Fprintln(c.stdout, value)
	} else {
		_, err = io.WriteString(c.stdout, value)
	}
	return err
}

func (c *cli) handleQuery() error {
	db, err := celebi.Load(c.opts.name, c.dbOpts...)
	if err != nil {
		return err
	}
	defer db.Close()

	res, err := db.Query(celebi.NewBucketQuery(c.opts.bucket))
	if err != nil {
		return err
	}
	for _, key := range res.RecordKeys().Sorted() {
		if _, err := fmt.Fprintln(c.stdout, key); err != nil {
			return err
		}
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
