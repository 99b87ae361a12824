package status

import (
	"context"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/callebjorkell/blinkt-status/internal/animate"
	"github.com/callebjorkell/blinkt-status/internal/blinkt"
	"github.com/callebjorkell/blinkt-status/internal/gpio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reply(stdout string, err error) runner {
	return func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte(stdout), err
	}
}

func TestCommandChecks(t *testing.T) {
	tt := []struct {
		name  string
		check *CommandCheck
		run   runner
		want  bool
	}{
		{"wifi associated", WifiConnected("wlan0"), reply("Connected to 11:22:33:44:55:66 (on wlan0)\n\tSSID: home\n", nil), true},
		{"wifi not associated", WifiConnected("wlan0"), reply("Not connected.\n", nil), false},
		{"iw missing", WifiConnected("wlan0"), reply("", exec.ErrNotFound), false},
		{"ap active", AccessPointActive("hostapd"), reply("active\n", nil), true},
		{"ap inactive exits non-zero", AccessPointActive("hostapd"), reply("inactive\n", &exec.ExitError{}), false},
		{"ap activating", AccessPointActive("hostapd"), reply("activating\n", nil), false},
		{"router enabled", RouterEnabled("hostapd"), reply("enabled\n", nil), true},
		{"router disabled", RouterEnabled("hostapd"), reply("disabled\n", &exec.ExitError{}), false},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			tc.check.run = tc.run
			assert.Equal(t, tc.want, tc.check.Check(context.Background()))
		})
	}
}

func TestCommandCheckArgs(t *testing.T) {
	var got []string
	c := WifiConnected("wlan1")
	c.run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		got = append([]string{name}, args...)
		return nil, nil
	}

	c.Check(context.Background())
	assert.Equal(t, []string{"iw", "dev", "wlan1", "link"}, got)
	assert.Equal(t, "iw dev wlan1 link", c.String())
}

func TestCommandCheckTimeout(t *testing.T) {
	c := AccessPointActive("hostapd")
	c.Timeout = 10 * time.Millisecond
	c.run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		<-ctx.Done()
		return []byte("active"), ctx.Err()
	}

	start := time.Now()
	assert.False(t, c.Check(context.Background()))
	assert.True(t, time.Since(start) < time.Second)
}

func TestForRole(t *testing.T) {
	tt := []struct {
		name     string
		role     string
		run      runner
		wantRole string
		wantArgs []string
	}{
		{"router by probe", RoleAuto, reply("enabled\n", nil), RoleRouter, []string{"is-active", "hostapd"}},
		{"client by probe", RoleAuto, reply("disabled\n", &exec.ExitError{}), RoleClient, []string{"dev", "wlan0", "link"}},
		{"probe failure means client", "", reply("", exec.ErrNotFound), RoleClient, []string{"dev", "wlan0", "link"}},
		{"forced router", RoleRouter, nil, RoleRouter, []string{"is-active", "hostapd"}},
		{"forced client", RoleClient, nil, RoleClient, []string{"dev", "wlan0", "link"}},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			c, role, err := forRole(context.Background(), tc.role, "wlan0", "hostapd", tc.run)
			require.NoError(t, err)
			assert.Equal(t, tc.wantRole, role)
			assert.Equal(t, tc.wantArgs, c.(*CommandCheck).Args)
		})
	}

	_, _, err := ForRole(context.Background(), "bridge", "wlan0", "hostapd")
	assert.Error(t, err)
}

type cpuMock struct {
	mu     sync.Mutex
	values []float64
	calls  int
}

func (c *cpuMock) Percent(ctx context.Context) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := c.values[c.calls%len(c.values)]
	c.calls++
	return v, nil
}

func newTestStrip(t *testing.T) *blinkt.Dev {
	d, err := blinkt.New(gpio.NewMock(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func colors(t *testing.T, d *blinkt.Dev) []uint32 {
	out := make([]uint32, d.Len())
	for i := range out {
		r, g, b, _, err := d.Pixel(i)
		require.NoError(t, err)
		out[i] = uint32(r)<<16 | uint32(g)<<8 | uint32(b)
	}
	return out
}

func TestMonitorUpdate(t *testing.T) {
	tt := []struct {
		name      string
		connected bool
		load      float64
		want      []uint32
	}{
		{
			"idle and connected",
			true, 0,
			[]uint32{Connected, 0, 0, 0, 0, 0, 0, 0},
		},
		{
			"half load rounds to even",
			false, 50,
			[]uint32{Disconnected, 0x00ff00, 0x00ff00, 0xffff00, 0xffff00, 0, 0, 0},
		},
		{
			"full load",
			true, 100,
			[]uint32{Connected, 0x00ff00, 0x00ff00, 0xffff00, 0xffff00, 0xff6400, 0xff6400, 0xff0000},
		},
		{
			"just below one led",
			true, 7,
			[]uint32{Connected, 0, 0, 0, 0, 0, 0, 0},
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			d := newTestStrip(t)
			d.SetAll(1, 1, 1)
			m := &Monitor{
				Strip:      d,
				Check:      CheckerFunc(func(context.Context) bool { return tc.connected }),
				CPU:        &cpuMock{values: []float64{tc.load}},
				Brightness: DefaultBrightness,
			}

			require.NoError(t, m.Update(context.Background()))
			assert.Equal(t, tc.want, colors(t, d))
			assert.Equal(t, blinkt.Ready, d.State())

			_, _, _, br, err := d.Pixel(0)
			require.NoError(t, err)
			assert.Equal(t, 0.065, br)
		})
	}
}

func TestMonitorRunStopsDark(t *testing.T) {
	d := newTestStrip(t)
	cpu := &cpuMock{values: []float64{100}}
	q := &animate.Queue{}
	m := &Monitor{
		Strip:      d,
		Check:      CheckerFunc(func(context.Context) bool { return true }),
		CPU:        cpu,
		Brightness: DefaultBrightness,
		Queue:      q,
	}

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() {
		result <- m.Run(ctx, 5*time.Millisecond)
	}()

	assert.Eventually(t, func() bool {
		cpu.mu.Lock()
		defer cpu.mu.Unlock()
		return cpu.calls >= 3
	}, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-result:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
	assert.Equal(t, make([]uint32, 8), colors(t, d))
	assert.False(t, q.IsInterrupted())
}

func TestMonitorPropagatesShowErrors(t *testing.T) {
	m := gpio.NewMock()
	m.FailClaims(blinkt.DefaultDataPin, 2)
	d, err := blinkt.New(m, nil)
	require.NoError(t, err)

	mon := &Monitor{
		Strip: d,
		Check: CheckerFunc(func(context.Context) bool { return true }),
		CPU:   &cpuMock{values: []float64{0}},
	}
	assert.ErrorIs(t, mon.Run(context.Background(), time.Millisecond), gpio.ErrClaim)
}
