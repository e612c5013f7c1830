/*
Package session guards pipeline checkpoints.

A Manager wraps a ports.StateStore so that every load, save and delete of a
session id runs under a per-id mutex. The mutex entries are reference counted
and dropped when the last holder returns. With WithLocker the same critical
section also holds a distributed lock, so two processes sharing a redis store
cannot create or overwrite the same session at once.
*/
package session
