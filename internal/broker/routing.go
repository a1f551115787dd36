package broker

import "path"

// Rule is one entry of an ordered routing table: task names matching
// Pattern are sent to Queue.
type Rule struct {
	Pattern string
	Queue   string
}

// Route resolves taskName to a queue by trying rules in order and falling
// back to defaultQueue when none match. Patterns use shell-glob syntax
// ("reports.*"); path.Match only treats '/' specially, so '*' already
// spans the dots in a Celery-style dotted task name.
func Route(taskName string, rules []Rule, defaultQueue string) string {
	for _, r := range rules {
		if r.Pattern == taskName {
			return r.Queue
		}
		if ok, err := path.Match(r.Pattern, taskName); err == nil && ok {
			return r.Queue
		}
	}
	return defaultQueue
}
