package tileroute

import (
	"context"
	"fmt"
	"strings"

	"github.com/One-com/gone/log"
	"github.com/One-com/gone/sd"

	"github.com/One-com/tileroute/runner"
)

// Activation steps.
const (
	StepValidate = "validate"
	StepReload   = "reload"
)

// ActivationError reports a failing proxy control command.
// A failed validation means reload was never attempted.
type ActivationError struct {
	Step string
	Err  error
}

func (e *ActivationError) Error() string {
	return fmt.Sprintf("proxy %s failed: %s", e.Step, e.Err)
}

func (e *ActivationError) Cause() error { return e.Err }

func (e *ActivationError) Unwrap() error { return e.Err }

// ---------------------------------------------------------------
// Control of the running reverse proxy process

type proxyControl struct {
	validate []string
	reload   []string
	runner   runner.Runner
}

// Activate validates the configuration on disk and, only if it is valid,
// reloads the proxy.
func (p *proxyControl) Activate(ctx context.Context) error {
	log.INFO("Validating proxy config", "cmd", strings.Join(p.validate, " "))
	if err := p.runner.Run(ctx, p.validate); err != nil {
		return &ActivationError{Step: StepValidate, Err: err}
	}

	log.INFO("Reloading proxy", "cmd", strings.Join(p.reload, " "))
	if err := p.runner.Run(ctx, p.reload); err != nil {
		return &ActivationError{Step: StepReload, Err: err}
	}

	sd.Notify(0, "STATUS=Proxy configuration reloaded")
	return nil
}
