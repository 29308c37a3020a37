// cmd/jpamb/main.go
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fewrick/jpamb/cmd/jpamb/commands"
	"github.com/fewrick/jpamb/internal/decompiled"
	"github.com/fewrick/jpamb/internal/jerrors"
	"github.com/fewrick/jpamb/internal/suite"
)

const VERSION = "0.1.0"

var (
	BuildDate = time.Now().Format("2006-01-02")
	GitCommit = "unknown"
)

var commandAliases = map[string]string{
	"r": "run",
	"a": "abstract",
	"f": "fuzz",
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		showUsage()
		return
	}

	cmd := args[0]
	if alias, ok := commandAliases[cmd]; ok {
		cmd = alias
		args[0] = alias
	}

	switch cmd {
	case "--help", "-h", "help":
		if len(args) > 1 {
			showCommandHelp(args[1])
		} else {
			showUsage()
		}
		return
	case "--version", "-v", "version":
		showVersion()
		return
	}

	dir := os.Getenv("JPAMB_DECOMPILED_DIR")
	if dir == "" {
		dir = "target/decompiled"
	}
	code := suite.New(decompiled.New(dir))

	var err error
	switch cmd {
	case "run":
		err = commands.Run(code, args[1:])
	case "abstract":
		err = commands.Abstract(code, args[1:])
	case "fuzz":
		err = commands.Fuzz(code, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "jpamb: unknown command %q\n", cmd)
		suggestCommand(cmd)
		os.Exit(2)
	}

	if err == nil {
		return
	}
	if _, ok := err.(*jerrors.UsageError); ok {
		fmt.Fprintf(os.Stderr, "jpamb: %v\n", err)
		os.Exit(2)
	}
	fmt.Fprintf(os.Stderr, "jpamb: %+v\n", err)
	os.Exit(1)
}

func showUsage() {
	fmt.Println("jpamb - assertion-hunting harness for decompiled bytecode")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  jpamb run <methodid> [args]   Run one concrete interpretation    (alias: r)")
	fmt.Println("  jpamb abstract <methodid>     Run the sign-abstract driver       (alias: a)")
	fmt.Println("  jpamb fuzz <methodid> [flags] Run the coverage-guided fuzz loop  (alias: f)")
	fmt.Println()
	fmt.Println("Help:")
	fmt.Println("  jpamb help <command>          Show detailed help for a command")
	fmt.Println("  jpamb --version                Show build version")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  jpamb run a.B.m:(II)I \"(1, 2)\"")
	fmt.Println("  jpamb abstract a.B.m:(II)I")
	fmt.Println("  jpamb fuzz a.B.m:(II)I -store sqlite://jpamb.db -dashboard :8080")
	fmt.Println()
	fmt.Println("Bytecode is read from JPAMB_DECOMPILED_DIR (default target/decompiled),")
	fmt.Println("one JSON file per class; see internal/decompiled.")
}

func showVersion() {
	fmt.Printf("jpamb %s (%s, %s)\n", VERSION, GitCommit, BuildDate)
}

func showCommandHelp(cmd string) {
	switch cmd {
	case "run":
		fmt.Println("jpamb run <methodid> [args]")
		fmt.Println()
		fmt.Println("Drives the concrete interpreter once over <methodid> with the given")
		fmt.Println("argument tuple, e.g. \"(1, 2)\". Prints the terminal outcome on line 1")
		fmt.Println("and the comma-separated visited-offset trace on line 2.")
	case "abstract":
		fmt.Println("jpamb abstract <methodid>")
		fmt.Println()
		fmt.Println("Runs the sign-abstract worklist driver over every parameter's full")
		fmt.Println("sign range and prints the resulting outcome set, one per line.")
	case "fuzz":
		fmt.Println("jpamb fuzz <methodid> [flags]")
		fmt.Println()
		fmt.Println("Runs the coverage-guided fuzz loop against <methodid>. Flags:")
		fmt.Println("  -seed, -max-iterations, -stall-limit, -budget, -numeric-range,")
		fmt.Println("  -mutation-rate, -max-string-len, -max-array-len, -store, -dashboard")
	default:
		fmt.Printf("jpamb: no help for %q\n", cmd)
	}
}

func suggestCommand(cmd string) {
	known := []string{"run", "abstract", "fuzz", "version", "help"}
	best, bestDist := "", 1<<31
	for _, k := range known {
		d := levenshtein(cmd, k)
		if d < bestDist {
			best, bestDist = k, d
		}
	}
	if bestDist <= 2 {
		fmt.Fprintf(os.Stderr, "did you mean %q?\n", best)
	}
}

func levenshtein(a, b string) int {
	la, lb := len(a), len(b)
	prev := make([]int, lb+1)
	cur := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}
	for i := 1; i <= la; i++ {
		cur[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := cur[j-1] + 1
			sub := prev[j-1] + cost
			m := del
			if ins < m {
				m = ins
			}
			if sub < m {
				m = sub
			}
			cur[j] = m
		}
		prev, cur = cur, prev
	}
	return prev[lb]
}
