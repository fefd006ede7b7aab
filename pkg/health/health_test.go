package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChecker_Run(t *testing.T) {
	up := func(context.Context) ComponentHealth { return ComponentHealth{Status: StatusUp} }
	degraded := func(context.Context) ComponentHealth { return ComponentHealth{Status: StatusDegraded} }

	tests := []struct {
		name   string
		checks map[string]Check
		want   Status
	}{
		{"empty", nil, StatusUp},
		{"all up", map[string]Check{"store": up, "redis": up}, StatusUp},
		{"degraded", map[string]Check{"store": up, "kafka": degraded}, StatusDegraded},
		{"down wins", map[string]Check{
			"store":    Ping(func(context.Context) error { return errors.New("refused") }),
			"kafka":    degraded,
			"postgres": up,
		}, StatusDown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker()
			for n, ch := range tt.checks {
				c.Register(n, ch)
			}
			report := c.Run(context.Background())
			assert.Equal(t, tt.want, report.Status)
			assert.Len(t, report.Components, len(tt.checks))
		})
	}
}

func TestPing(t *testing.T) {
	got := Ping(func(context.Context) error { return errors.New("refused") })(context.Background())
	assert.Equal(t, StatusDown, got.Status)
	assert.Equal(t, "refused", got.Message)

	got = Ping(func(context.Context) error { return nil })(context.Background())
	assert.Equal(t, StatusUp, got.Status)
}

func TestReport_Names(t *testing.T) {
	r := Report{Components: map[string]ComponentHealth{"store": {}, "kafka": {}, "redis": {}}}
	assert.Equal(t, []string{"kafka", "redis", "store"}, r.Names())
}
