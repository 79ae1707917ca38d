// Package execpipe pipes data through external commands.
package execpipe

import (
	"bytes"
	"fmt"
	"io"
	"os/exec"

	"github.com/goaux/stacktrace/v2"
)

// CheckPath checks if the given executable exists in the system's PATH.
// It returns an error if the executable is not found, or nil if it is.
func CheckPath(executable string) error {
	_, err := stacktrace.Trace2(exec.LookPath(executable))
	return err
}

// Run executes an external command with the given arguments, feeding r to
// its stdin and writing its stdout to w.
//
// The error, if any, includes the command name and the captured stderr.
func Run(w io.Writer, r io.Reader, name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdin = r
	cmd.Stdout = w
	stderr := new(bytes.Buffer)
	cmd.Stderr = stderr
	if err := stacktrace.Trace(cmd.Run()); err != nil {
		return fmt.Errorf("error: %s, cause=%w, stderr=%q", name, err, stderr.String())
	}
	return nil
}
