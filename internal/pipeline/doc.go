// Package pipeline runs flatparser's two processing paths.
//
// Pipeline chains transform steps over a single table.Store: each step
// receives the store produced by the previous one and the chain stops at the
// first failing step unless WithContinueOnError is set.
//
// Dispatcher is the orchestrator for scraping batches. It executes every
// task of a task.Batch on a fixed pool of worker goroutines fed from one
// queue, so each task is handed to exactly one worker exactly once. It never
// retries: failed and cancelled tasks are only visible in the outcomes and by
// their absence from the output store. Output rows appear in completion
// order, and the store is returned only after every task is terminal.
//
// Policy turns the available hardware parallelism into a worker count per
// parser category by dividing it with a configured divisor.
package pipeline
