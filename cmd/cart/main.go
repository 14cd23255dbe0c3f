package main

import (
	"context"
	"fmt"
	"io"
	"os"
)

func main() {
	if err := execute(context.Background(), newApp(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// execute runs the CLI and releases storage whether or not the command failed.
func execute(ctx context.Context, a *app, args []string, out, errOut io.Writer) error {
	defer a.close()

	root := newRootCmd(a)
	root.SetOut(out)
	root.SetErr(errOut)
	root.SetArgs(args)

	return root.ExecuteContext(ctx)
}
