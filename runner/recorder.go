package runner

import (
	"context"
)

// Recorder is a Runner which only records the command lines it is asked to
// run. It stands in for the external collaborators in tests and lets them
// inject side effects and failures.
type Recorder struct {
	Calls [][]string

	// Effect, if set, is called for every command before Fail.
	Effect func(argv []string) error
	// Fail, if set, decides whether a command fails.
	Fail func(argv []string) error
}

// Run records argv.
func (r *Recorder) Run(ctx context.Context, argv []string) error {
	r.Calls = append(r.Calls, append([]string(nil), argv...))
	if r.Effect != nil {
		if err := r.Effect(argv); err != nil {
			return err
		}
	}
	if r.Fail != nil {
		return r.Fail(argv)
	}
	return nil
}

// Reset forgets all recorded calls.
func (r *Recorder) Reset() {
	r.Calls = nil
}
