/*
Package ports defines the driven ports (interfaces) of the auraflow pipeline.

These interfaces decouple the stage logic from external implementations, allowing
the pipeline to work with various language models, storage backends and workspaces.

# Key Interfaces

  - Oracle: one request/response exchange with a language model.
  - Sandbox: path-contained file writes and command execution.
  - StateStore: persistence of session checkpoints.
  - DistributedLocker: distributed locking for concurrent session access.
*/
package ports
