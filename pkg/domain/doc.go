/*
Package domain contains the core domain models of the auraflow pipeline.

It defines the state threaded through the fixed stage graph, the deltas each stage
returns, the progress events emitted to callers and the error taxonomy. This package
is kept pure and free of I/O, following Hexagonal Architecture principles.

# Key Entities

  - State: the per-session record (task, artifact, verify command, failure feedback, trace).
  - Delta: the partial update a stage returns; merged into State by the runner.
  - Stage: one node of the pipeline (intake, research, generate, verify) or a terminal marker.
  - GenerationResult: the structured record parsed from oracle output.
  - ExecResult: the outcome of a sandboxed command, failures included.
  - Event: one progress record for streaming consumers.
*/
package domain
