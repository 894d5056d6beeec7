// Command tagcheck extracts narrator tags from a reply and reports what the
// game would apply. It exits 1 when any tag is malformed.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/jwebster45206/emerald-altar/pkg/directive"
	"github.com/jwebster45206/emerald-altar/pkg/textfilter"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("tagcheck", flag.ContinueOnError)
	fs.SetOutput(stderr)
	showText := fs.Bool("text", false, "print the reply as a player would see it")
	rating := fs.String("rating", "PG13", "content rating used when cleaning the text")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: tagcheck [flags] [file|-]\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}

	var in io.Reader = stdin
	if name := fs.Arg(0); name != "" && name != "-" {
		f, err := os.Open(name)
		if err != nil {
			fmt.Fprintf(stderr, "failed to open %s: %v\n", name, err)
			return 2
		}
		defer f.Close()
		in = f
	}

	data, err := io.ReadAll(in)
	if err != nil {
		fmt.Fprintf(stderr, "failed to read input: %v\n", err)
		return 2
	}

	res := directive.Extract(string(data))

	for i, d := range res.Directives {
		fields, err := json.Marshal(d)
		if err != nil {
			fields = []byte(fmt.Sprintf("%+v", d))
		}
		fmt.Fprintf(stdout, "%d. %s %s\n", i+1, d.Kind(), fields)
	}
	fmt.Fprintf(stdout, "directives: %d\n", len(res.Directives))
	if res.Suppressed > 0 {
		fmt.Fprintf(stdout, "suppressed: %d\n", res.Suppressed)
	}
	for _, d := range res.Defects {
		fmt.Fprintf(stdout, "defect: %v (%q)\n", d, d.Raw)
	}

	if *showText {
		clean, _ := textfilter.NewSanitizer(*rating).Clean(res.Text)
		fmt.Fprintf(stdout, "\n%s\n", clean)
	}

	if len(res.Defects) > 0 {
		return 1
	}
	return 0
}
