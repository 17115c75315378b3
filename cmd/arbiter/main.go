// Command arbiter is a thin CLI wrapper around the registry/driver
// library: get, put, size, and glob against any configured scheme.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/golang/glog"
	"github.com/peterbourgon/ff"

	"github.com/arbiter-go/storage/registry"
	"github.com/arbiter-go/storage/transport"
)

func run() int {
	fs := flag.NewFlagSet("arbiter", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to a JSON configuration document (see registry.Config)")
	timeout := fs.Duration("timeout", 30*time.Second, "operation timeout")
	poolSize := fs.Int("pool-size", 8, "transport pool handle count")
	retry := fs.Int("retry", 3, "per-request retry budget")
	describe := fs.Bool("describe", false, "list registered drivers as JSON and exit")
	verbose := fs.Bool("verbose", false, "log driver status lines at V(2)")

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("ARBITER"),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.JSONParser),
	); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if fs.NArg() == 0 && !*describe {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <get|put|size|glob> <path>\n", os.Args[0])
		fs.PrintDefaults()
		return 1
	}

	pool, err := transport.NewPool(*poolSize, 0, transport.DefaultOptions())
	if err != nil {
		glog.Errorf("building transport pool: %v", err)
		return 1
	}

	cfg := registry.Config{}
	if *configPath != "" {
		data, err := os.ReadFile(*configPath)
		if err != nil {
			glog.Errorf("reading config: %v", err)
			return 1
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			glog.Errorf("parsing config: %v", err)
			return 1
		}
	}

	reg, err := registry.Build(cfg, pool, *retry)
	if err != nil {
		glog.Errorf("building registry: %v", err)
		return 1
	}

	if *describe {
		out, _ := json.Marshal(reg.Describe())
		os.Stdout.Write(out)
		os.Stdout.Write([]byte("\n"))
		return 0
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	op := fs.Arg(0)
	path := fs.Arg(1)
	driver, remainder, err := reg.Resolve(path)
	if err != nil {
		glog.Errorf("resolving %s: %v", path, err)
		return 1
	}

	switch op {
	case "get":
		data, err := driver.Get(ctx, remainder)
		if err != nil {
			glog.Errorf("get %s: %v", path, err)
			return 1
		}
		os.Stdout.Write(data)
	case "put":
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			glog.Errorf("reading stdin: %v", err)
			return 1
		}
		if err := driver.Put(ctx, remainder, data); err != nil {
			glog.Errorf("put %s: %v", path, err)
			return 1
		}
	case "size":
		size, err := driver.Size(ctx, remainder)
		if err != nil {
			glog.Errorf("size %s: %v", path, err)
			return 1
		}
		fmt.Println(size)
	case "glob":
		matches, err := driver.Glob(ctx, remainder, *verbose)
		if err != nil {
			glog.Errorf("glob %s: %v", path, err)
			return 1
		}
		for _, m := range matches {
			fmt.Println(m)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown operation %q\n", op)
		return 1
	}

	return 0
}

func main() {
	os.Exit(run())
}
