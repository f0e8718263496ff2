// Package internal contains the core implementation packages for
// rebuildctl, the live rebuild orchestrator.
//
// # Package Organization
//
// The internal packages are organized by functional domain:
//
//   - entrypoint, sourcepath, fileindex: the registries the control loop
//     owns (deployable handlers, lintable/type-checkable source files,
//     and the file->entry-point dependency index)
//   - scheduler, ondemand: the handler build scheduler and the
//     request coordinator that blocks a caller on a specific handler's
//     next build
//   - checker: long-lived lint/type-check child processes per source path
//   - cdkstate, infra: the infrastructure rebuild/synth/deploy state
//     machine and its concrete CDK-driving callbacks
//   - status, watchset: busy-edge reporting and incremental file-watch
//     reconciliation
//   - builders, watcher: per-runtime build invocation and the debounced
//     recursive file watcher
//   - orchestrator: the single control loop wiring every registry and
//     state machine above behind one goroutine
//   - config, logging, errors, validation, version: ambient concerns
//     shared by every other package
//   - statusserver: the websocket/HTTP status server exposing
//     orchestrator state to a terminal UI or CLI client
//
// # Design Principles
//
//   - A single control goroutine owns all mutable orchestrator state;
//     collaborators report results over channels rather than mutating
//     that state directly
//   - Command construction for every child process (builders, checkers,
//     the infra driver) goes through internal/validation's allowlist
//     before exec.CommandContext runs
//   - Structured logging (internal/logging, slog-backed) carries every
//     busy-edge transition and diagnostic
package internal
