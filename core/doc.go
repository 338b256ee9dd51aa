// Package core defines the shared data model of the orchestration engine:
// runs, threads, turns and the typed step events streamed while a run
// executes. Higher layers (supervisor, executor, bus, stores) all speak in
// these types; core itself has no orchestration logic.
package core
