package cli

import (
	"strconv"
	"strings"
)

type cliOptions struct {
	workflow string
	dataset  string
	root     string
	model    string
	backend  string
	output   string
	addr     string
	runID    string
	limit    int
}

// parseArgs splits --flag=value options from positional arguments. Unknown
// flags are left in the positional list so commands can reject them.
func parseArgs(args []string) (cliOptions, []string) {
	opts := cliOptions{}
	positional := []string{}
	for _, arg := range args {
		switch {
		case strings.HasPrefix(arg, "--workflow="):
			opts.workflow = strings.TrimPrefix(arg, "--workflow=")
		case strings.HasPrefix(arg, "--dataset="):
			opts.dataset = strings.TrimPrefix(arg, "--dataset=")
		case strings.HasPrefix(arg, "--workflows="):
			opts.root = strings.TrimPrefix(arg, "--workflows=")
		case strings.HasPrefix(arg, "--model="):
			opts.model = strings.TrimPrefix(arg, "--model=")
		case strings.HasPrefix(arg, "--backend="):
			opts.backend = strings.TrimPrefix(arg, "--backend=")
		case strings.HasPrefix(arg, "--output="):
			opts.output = strings.TrimPrefix(arg, "--output=")
		case strings.HasPrefix(arg, "--addr="):
			opts.addr = strings.TrimPrefix(arg, "--addr=")
		case strings.HasPrefix(arg, "--run="):
			opts.runID = strings.TrimPrefix(arg, "--run=")
		case strings.HasPrefix(arg, "--limit="):
			if n, err := strconv.Atoi(strings.TrimPrefix(arg, "--limit=")); err == nil {
				opts.limit = n
			}
		default:
			positional = append(positional, arg)
		}
	}
	return opts, positional
}
