// Package oracle provides ports.Oracle implementations backed by real language
// model clients. Two backends are available: gollm, which speaks to many
// providers through one client, and eino, which wraps any eino chat model.
//
// Adapters never retry and never interpret the returned text. Failures are
// reported as *domain.OracleUnavailableError.
package oracle
