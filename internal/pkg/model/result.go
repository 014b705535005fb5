package model

import "github.com/samber/lo"

// Result is the outcome of polling one device during a cycle. Exactly one of
// Payload and Err is set.
type Result struct {
	Hostname string
	Topic    string
	Payload  Payload
	Err      error
}

func (r Result) OK() bool {
	return r.Err == nil
}

// CycleResult holds one Result per configured device.
type CycleResult []Result

// Succeeded returns the results that carry a payload.
func (c CycleResult) Succeeded() []Result {
	return lo.Filter(c, func(r Result, _ int) bool {
		return r.OK()
	})
}
