// Package es persists event sourced aggregates on top of a [kv.Store].
//
// Every aggregate is identified by a [Handle] which doubles as the backing
// store scope. Inside a scope the store keeps:
//
//	info.json                          bookkeeping, see [StoredValueInfo]
//	snapshot.json                      latest snapshot
//	snapshot-bk.json                   the snapshot before that
//	snapshot-new.json                  staging key while rotating snapshots
//	delta-<version>.json               event at version (0 is the init event)
//	command--<ts>--<seq>--<label>.json [StoredCommand], see [CommandKey]
//
// plus a single global key "version" holding the [KeyStoreVersion].
//
// # Usage
//
// The type parameters cannot be inferred from the arguments, so a domain
// package usually declares an alias and an Open wrapper:
//
//	type Store = es.Store[*Counter, Command, Incremented, Created]
//
//	store, err := es.Open[*Counter, Command, Incremented, Created](ctx, kvStore, Init,
//	    es.WithLog(log),
//	    es.WithMetrics(prometheus.NewStoreMetrics(reg)),
//	)
//
//	agg, err := store.Add(ctx, Created{ID: "ca-1"})
//	agg, err = store.Command(ctx, Command{ID: "ca-1", Op: "inc", By: 5})
//	agg, err = store.GetLatest(ctx, "ca-1")
//
// # Concurrency
//
// A single read/write lock guards the store. Add, Command, Recover and
// ArchiveOldCommands hold it exclusively, so no two commands run at the same
// time even for different handles. Reads share it. The aggregate cache has
// its own lock, held for single map operations only.
//
// Aggregates handed out by the store are shared with the cache and must be
// treated as read-only. The store never mutates an aggregate it has handed
// out; it clones and replaces the cache slot instead.
//
// # Failure policy
//
// If the command record of an already validated command cannot be written,
// the store logs and calls the exit hook (os.Exit by default) because memory
// and storage would otherwise diverge. Corrupt snapshots, commands and events
// found while reading are moved to the corrupt archive and reported as typed
// errors. [Store.Warm] fails on the first aggregate that cannot be rebuilt;
// [Store.Recover] repairs what it can and reports the rest.
package es
