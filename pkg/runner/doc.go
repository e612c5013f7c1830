/*
Package runner drives auraflow sessions from intake to a terminal stage.

It bridges the stage engine and the outside world: each run executes in its own
goroutine, every stage result is checkpointed through the session manager, and
progress is published as a lazy, finite, in-order stream of domain.Event values.
Slow or absent consumers never block the run; the stream queue is unbounded.

# Key Components

  - Runner: starts and resumes sessions.
  - Stream: the consumer side of one run.
  - Sink: renders events for a frontend (JSON lines, plain text).

# Usage

	r := runner.New(engine, session.NewManager(store))

	stream, err := r.Start(ctx, "write a function that adds two numbers")
	if err != nil {
		return err
	}
	if err := runner.Pump(stream, runner.NewTextSink(os.Stdout)); err != nil {
		return err
	}
*/
package runner
