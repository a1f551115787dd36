// Package backend implements the result-backend abstraction: a store of
// per-task status, result payload, and traceback, observed by AsyncResult
// handles in package result.
//
// Backend is the polymorphic capability; Base implements its derived
// operations (AddTask, MarkAsStarted, MarkAsDone, MarkAsFailure, Forget,
// GetState, GetResult, GetTraceback, WaitForTaskState) in terms of the two
// primitives a concrete store must provide, StoreResult and GetTaskMeta.
// redis.go and mongo.go are the two concrete stores.
package backend
