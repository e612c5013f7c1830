/*
Package observability provides lifecycle hooks for monitoring the auraflow pipeline.

Metrics exposes Prometheus collectors fed by domain.LifecycleHooks, and
LoggingHooks writes every stage transition to a structured logger.
*/
package observability
