// Command qcledger manages construction quality-control records from the
// command line.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

type localized interface {
	Localized() string
}

func main() {
	a := &app{}
	err := newRootCmd(a).Execute()
	// Failed commands skip the post-run hook.
	err = errors.Join(err, a.close(context.Background()))
	if err != nil {
		fmt.Fprintln(os.Stderr, describe(err))
		os.Exit(1)
	}
}

// describe prefers the user-facing explanation of typed ledger errors.
func describe(err error) string {
	var l localized
	if errors.As(err, &l) {
		return l.Localized()
	}
	return "Error: " + err.Error()
}
