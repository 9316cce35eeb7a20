package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
)

// terminalAuthorizer answers the orchestrator's authorization checks on
// the terminal. The credential itself lives in the context config, so
// the pre-flight check only verifies one is present; the interactive
// re-authorization pauses until the user has fixed access on the
// backend side.
type terminalAuthorizer struct {
	in            io.Reader
	out           io.Writer
	hasCredential bool
}

func (a *terminalAuthorizer) CheckAuthorization(context.Context) (bool, error) {
	return a.hasCredential, nil
}

func (a *terminalAuthorizer) RequestAuthorization(ctx context.Context) error {
	fmt.Fprintln(a.out, "The backend rejected the credential (key revoked, model not enabled, or billing off).")
	fmt.Fprint(a.out, "Fix access for this API key, then press Enter to retry: ")

	done := make(chan error, 1)
	go func() {
		_, err := bufio.NewReader(a.in).ReadString('\n')
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil && err != io.EOF {
			return fmt.Errorf("read confirmation: %w", err)
		}
		a.hasCredential = true
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
