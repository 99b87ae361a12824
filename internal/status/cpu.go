package status

import (
	"context"
	"errors"

	"github.com/shirou/gopsutil/v3/cpu"
)

// CPUSampler reports CPU utilisation in percent since the previous call.
type CPUSampler interface {
	Percent(ctx context.Context) (float64, error)
}

// HostCPU samples the whole host. The first call only primes the counters.
type HostCPU struct{}

func (HostCPU) Percent(ctx context.Context) (float64, error) {
	p, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return 0, err
	}
	if len(p) == 0 {
		return 0, errors.New("no cpu statistics available")
	}
	return p[0], nil
}
