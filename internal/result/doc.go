// Package result implements AsyncResult, the cheap client-side handle over
// a task id and a shared backend.Backend used to observe task status.
package result
