package status

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	RoleAuto   = "auto"
	RoleRouter = "router"
	RoleClient = "client"

	defaultCheckTimeout = 5 * time.Second
)

// Checker is a best effort yes/no probe of the host. Failures count as false.
type Checker interface {
	Check(ctx context.Context) bool
}

type CheckerFunc func(ctx context.Context) bool

func (f CheckerFunc) Check(ctx context.Context) bool {
	return f(ctx)
}

type runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// CommandCheck runs a command and matches its standard output. The exit status is ignored as
// long as the command ran, since systemctl reports negative answers through it.
type CommandCheck struct {
	Name    string
	Args    []string
	Match   func(stdout string) bool
	Timeout time.Duration

	run runner
}

func (c *CommandCheck) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

func (c *CommandCheck) Check(ctx context.Context) bool {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultCheckTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	run := c.run
	if run == nil {
		run = runCommand
	}

	out, err := run(ctx, c.Name, c.Args...)
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			log.Debugf("%v failed: %v", c, err)
			return false
		}
	}
	return c.Match(string(out))
}

// WifiConnected passes when iface is associated to an access point.
func WifiConnected(iface string) *CommandCheck {
	return &CommandCheck{
		Name: "iw",
		Args: []string{"dev", iface, "link"},
		Match: func(stdout string) bool {
			return strings.Contains(stdout, "Connected to")
		},
	}
}

// AccessPointActive passes when the access point service is running.
func AccessPointActive(service string) *CommandCheck {
	return &CommandCheck{
		Name: "systemctl",
		Args: []string{"is-active", service},
		Match: func(stdout string) bool {
			return strings.TrimSpace(stdout) == "active"
		},
	}
}

// RouterEnabled passes when the access point service is enabled, meaning this host is the
// router.
func RouterEnabled(service string) *CommandCheck {
	return &CommandCheck{
		Name: "systemctl",
		Args: []string{"is-enabled", service},
		Match: func(stdout string) bool {
			return strings.TrimSpace(stdout) == "enabled"
		},
	}
}

// ForRole returns the connectivity check for role. RoleAuto decides by probing whether the
// access point service is enabled.
func ForRole(ctx context.Context, role, iface, service string) (Checker, string, error) {
	return forRole(ctx, role, iface, service, nil)
}

func forRole(ctx context.Context, role, iface, service string, run runner) (Checker, string, error) {
	if role == RoleAuto || role == "" {
		probe := RouterEnabled(service)
		probe.run = run
		role = RoleClient
		if probe.Check(ctx) {
			role = RoleRouter
		}
	}

	var c *CommandCheck
	switch role {
	case RoleRouter:
		c = AccessPointActive(service)
	case RoleClient:
		c = WifiConnected(iface)
	default:
		return nil, "", fmt.Errorf("unknown role %q", role)
	}
	c.run = run
	return c, role, nil
}
