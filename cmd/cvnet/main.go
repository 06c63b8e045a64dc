// Command cvnet builds composition-vector gene similarity graphs for MCL.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shenwei356/bio/seq"
	"github.com/spf13/cobra"

	"github.com/hupe1980/cvnet"
	"github.com/hupe1980/cvnet/source"
)

// Exit codes.
const (
	exitOK         = 0
	exitUsage      = 1
	exitConfig     = 3
	exitIncomplete = 4
)

// exitError carries the process exit code of a failed command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func usageError(err error) error  { return &exitError{code: exitUsage, err: err} }
func configError(err error) error { return &exitError{code: exitConfig, err: err} }

// exitCode maps an error to the process exit code.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	switch {
	case errors.Is(err, cvnet.ErrIncomplete):
		return exitIncomplete
	case errors.Is(err, cvnet.ErrUnknownMethod),
		errors.Is(err, cvnet.ErrInvalidConfig),
		errors.Is(err, source.ErrInvalidK):
		return exitConfig
	}
	return exitUsage
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "cvnet",
		Short: "Composition-vector gene similarity networks",
		Long: `cvnet computes composition vectors of every gene of every genome,
compares all genome pairs, and writes the selected gene edges as one graph
for MCL clustering. Intermediate artifacts are cached so an interrupted or
incomplete run resumes where it stopped.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(), newDumpCmd(), newIndexCmd())
	return root
}

func main() {
	seq.ValidateSeq = false

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "cvnet:", err)
	}
	os.Exit(exitCode(err))
}
