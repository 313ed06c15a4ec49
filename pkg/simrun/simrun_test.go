package simrun_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vzdtic/minispark/pkg/bus"
	"github.com/vzdtic/minispark/pkg/logging"
	"github.com/vzdtic/minispark/pkg/network"
	"github.com/vzdtic/minispark/pkg/simerrors"
	"github.com/vzdtic/minispark/pkg/simrun"
)

func TestRunUntilStopsAssoonAsPredicateIsTrue(t *testing.T) {
	net := network.New(network.Config{Seed: 1, MaxLatencyTicks: 3}, logging.Discard())
	b := bus.NewMessageBus(net, logging.Discard())
	runner := simrun.New(b)

	a := bus.Endpoint{Host: "a", Port: 0}
	delivered := false
	b.Register(a, func(bus.Envelope) { delivered = true })
	b.Send(bus.Message{Kind: bus.SubmitTask}, a, a)

	elapsed, err := runner.RunUntil(func() bool { return delivered }, 100)

	require.NoError(t, err)
	assert.True(t, delivered)
	assert.LessOrEqual(t, elapsed, uint64(4))
}

func TestRunUntilReturnsTimeoutWhenBudgetExhausted(t *testing.T) {
	net := network.New(network.Config{Seed: 2}, logging.Discard())
	b := bus.NewMessageBus(net, logging.Discard())
	runner := simrun.New(b)

	elapsed, err := runner.RunUntil(func() bool { return false }, 5)

	assert.ErrorIs(t, err, simerrors.ErrTimeout)
	assert.Equal(t, uint64(5), elapsed)
}

func TestRunUntilCostsZeroTicksWhenPredicateAlreadyTrue(t *testing.T) {
	net := network.New(network.Config{Seed: 3}, logging.Discard())
	b := bus.NewMessageBus(net, logging.Discard())
	runner := simrun.New(b)

	elapsed, err := runner.RunUntil(func() bool { return true }, 10)

	require.NoError(t, err)
	assert.Equal(t, uint64(0), elapsed)
	assert.Equal(t, uint64(0), b.CurrentTick())
}

func TestRunTicksAdvancesExactlyN(t *testing.T) {
	net := network.New(network.Config{Seed: 4}, logging.Discard())
	b := bus.NewMessageBus(net, logging.Discard())
	runner := simrun.New(b)

	runner.RunTicks(7)

	assert.Equal(t, uint64(7), b.CurrentTick())
}
