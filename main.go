// Command meowpdf is the CLI entry point: argument handling, config
// loading, and the top-level panic hook that guarantees the terminal is
// restored before the process exits (spec.md §6/§7). Grounded on the
// teacher's main.go (hand-rolled arg parsing, `config.Load()` then `Run()`
// pattern, fatal errors printed to stderr with exit 1) adapted to this
// program's single-file contract.
package main

import (
	"fmt"
	"os"

	"github.com/monoamine11231/MeowPDF/app"
	"github.com/monoamine11231/MeowPDF/config"
	"github.com/monoamine11231/MeowPDF/diag"
)

const version = "0.1.0"

const usage = `usage: meowpdf <path.pdf>
  -h, --help     show this help text
  -v, --version  print the version and exit
`

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	switch args[0] {
	case "-h", "--help":
		fmt.Print(usage)
		os.Exit(0)
	case "-v", "--version":
		fmt.Println("meowpdf " + version)
		os.Exit(0)
	}

	path := args[0]
	info, err := os.Stat(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: cannot open %s: %v\n", path, err)
		os.Exit(1)
	}
	if info.IsDir() {
		fmt.Fprintf(os.Stderr, "error: %s is a directory, not a PDF file\n", path)
		os.Exit(1)
	}

	cfgPath, err := config.Path()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: locate config path: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: load config: %v\n", err)
		os.Exit(1)
	}

	a, err := app.New(cfg, path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	defer func() {
		if r := recover(); r != nil {
			a.PanicRestore()
			diag.Record("panic: %v", r)
			diag.Flush()
			panic(r)
		}
	}()

	if err := a.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		diag.Flush()
		os.Exit(1)
	}
	diag.Flush()
}
