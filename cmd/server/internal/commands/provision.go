package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/wolfeidau/townhall/internal/signup"
	"github.com/wolfeidau/townhall/internal/telemetry"
	"go.opentelemetry.io/otel/trace/noop"
)

type ProvisionCmd struct {
	Email        string `help:"work email address" required:""`
	Password     string `help:"account password" required:"" env:"TOWNHALL_PROVISION_PASSWORD"`
	FullName     string `help:"full name of the account holder" required:""`
	Organization string `help:"organization name" required:""`
	Department   string `help:"department within the organization" default:""`

	Backend BackendFlags `embed:""`
}

func (c *ProvisionCmd) Run(ctx context.Context, globals *Globals) error {
	setupLogger(globals)
	return c.provision(ctx, os.Stdout)
}

// provision runs one signup through the server schema and the provisioner
// and writes the result as JSON. A failed signup is returned as an error so
// the process exits non-zero.
func (c *ProvisionCmd) provision(ctx context.Context, w io.Writer) error {
	p, closeStores, err := c.Backend.provisioner(ctx, telemetry.NoopMetrics(), noop.NewTracerProvider())
	if err != nil {
		return err
	}
	defer closeStores()

	in := signup.Input{
		Email:        c.Email,
		Password:     c.Password,
		FullName:     c.FullName,
		Organization: c.Organization,
		Department:   c.Department,
	}

	var res signup.Result
	if _, err := signup.Validate(signup.ServerSchema(p.Policy()), in); err != nil {
		res = signup.Result{Success: false, Error: err.Error()}
	} else {
		res = p.CreateAccount(ctx, in)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}

	if !res.Success {
		return errors.New(res.Error)
	}
	return nil
}
