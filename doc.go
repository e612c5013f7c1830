/*
Package auraflow is an autonomous coding-agent loop built as a fixed stage pipeline.

Given a natural-language task, auraflow asks a language model for an approach,
asks it again for code plus a verification command, writes the code into a sandbox
directory, runs the command and, while the command fails, feeds the failure back
for another generation round.

# Concept

A session threads one State record through four stages:

	intake -> research -> generate -> verify -> done
	                         ^           |
	                         +-----------+  (verification failed)

Each stage returns a delta that is merged into the state and checkpointed, so an
interrupted session resumes from the stage it stopped at. Progress is published
as a stream of events that the CLI prints and the HTTP server relays over SSE.

# Layout

  - pkg/domain: State, Delta, events and error types.
  - pkg/ports: Oracle, Sandbox, StateStore and DistributedLocker interfaces.
  - pkg/adapters: oracle (gollm, eino), sandbox, memory/file/redis stores, http, mcp.
  - pkg/runner: session execution and event streams.
  - pkg/persistence/middleware: checkpoint redaction and encryption.
  - internal/runtime: the stage engine.

# Usage

	sb, _ := sandbox.New("./workspace")
	llm, _ := oracle.NewGollm(oracle.GollmConfig{Provider: "openai", Model: "gpt-4o-mini"})

	r := auraflow.New(llm, sb, memory.NewStore(), auraflow.WithMaxRepairRounds(5))

	final, err := r.Run(ctx, "write a function that adds two numbers")
*/
package auraflow
