// Package uow implements a compensating unit of work.
//
// A unit of work is a list of steps, each an action paired with an optional
// rollback that undoes it. Steps are registered into three phases that always
// run in order: pre, main and post. If any action fails, every step that
// already completed is rolled back in reverse order. Rollback is best effort:
// a failing rollback is reported but does not stop the remaining ones.
//
// Overview
//
//  1. Create a Builder with NewBuilder. Options configure logging (zap),
//     tracing (OpenTelemetry), observers and the unit ordering.
//  2. Register steps:
//     - RegisterPre, Register and RegisterPost take an action and a rollback.
//     - AddPre, Add and AddPost take a prebuilt Unit, for example one from a
//     Catalog of named steps.
//     - RegisterImmediate runs an action at once, returns its result and
//     keeps its rollback in case the unit of work unwinds later.
//     - Subscribe composes other Transactional values, including other
//     Builders, into the pre and post phases.
//  3. Call Start to run the pre phase, then Commit to run everything else.
//     Commit rolls back automatically on failure unless AutoRollback(false)
//     is passed.
//
// Every status change of every unit is recorded in the builder's Journal and
// delivered to its observers.
//
// Nothing is persisted: a process that dies mid-commit leaves no record of
// what needs compensating.
package uow
