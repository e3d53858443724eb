package fake

import (
	"context"
	"sync"
)

// Advisor replays scripted responses. When the script is exhausted the last
// response repeats.
type Advisor struct {
	CallRecorder
	mu        sync.Mutex
	name      string
	responses []string
	errs      []error

	EnsureModelErr func(ctx context.Context) error
}

// NewAdvisor creates an Advisor reporting name.
func NewAdvisor(name string) *Advisor {
	return &Advisor{name: name}
}

// Respond appends a raw reply to the script.
func (a *Advisor) Respond(raw string) *Advisor {
	a.mu.Lock()
	a.responses = append(a.responses, raw)
	a.errs = append(a.errs, nil)
	a.mu.Unlock()
	return a
}

// Fail appends a failure to the script.
func (a *Advisor) Fail(err error) *Advisor {
	a.mu.Lock()
	a.responses = append(a.responses, "")
	a.errs = append(a.errs, err)
	a.mu.Unlock()
	return a
}

func (a *Advisor) Name() string  { return a.name }
func (a *Advisor) Model() string { return "fake" }

func (a *Advisor) RequestTriage(ctx context.Context, prompt string) (string, error) {
	a.record("RequestTriage", prompt)
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.responses) == 0 {
		return "", nil
	}
	i := len(a.Calls("RequestTriage")) - 1
	if i >= len(a.responses) {
		i = len(a.responses) - 1
	}
	return a.responses[i], a.errs[i]
}

func (a *Advisor) EnsureModel(ctx context.Context) error {
	a.record("EnsureModel")
	if a.EnsureModelErr != nil {
		return a.EnsureModelErr(ctx)
	}
	return nil
}
