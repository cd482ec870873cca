package vm

import (
	"os"
)

// ---------------------------------------------------------------------------
// Standard ports
//
// The standard ports are process-wide singletons of the Env: constructed
// once during initialization, destroyed exactly once by Shutdown. Teardown
// is an explicit, order-guaranteed hook rather than anything
// reachability-driven: writable ports are flushed first, then all three
// are closed. Header handling is skipped; the standard streams are live
// consoles, not files with an encoding header.
// ---------------------------------------------------------------------------

func (env *Env) initStdPorts() {
	env.stdin = newPort(PortRead|PortTrustedInput, env.opts.TabWidth)
	env.stdin.stream = readerStream{os.Stdin}

	env.stdout = newPort(PortWrite, defaultTabWidth)
	env.stdout.stream = writerStream{os.Stdout}

	env.stderr = newPort(PortWrite, defaultTabWidth)
	env.stderr.stream = writerStream{os.Stderr}
}

// Stdin returns the standard input port.
func (env *Env) Stdin() *Port { return env.stdin }

// Stdout returns the standard output port.
func (env *Env) Stdout() *Port { return env.stdout }

// Stderr returns the standard error port.
func (env *Env) Stderr() *Port { return env.stderr }

// Shutdown flushes and closes the standard ports. It runs at most once;
// later calls are no-ops. The underlying OS streams stay open since the
// Env does not own them.
func (env *Env) Shutdown() {
	if env.shutdownDone {
		return
	}
	env.stdout.Flush()
	env.stderr.Flush()
	env.stdin.Close()
	env.stdout.Close()
	env.stderr.Close()
	env.shutdownDone = true
	env.log.Debug("env: shut down")
}
