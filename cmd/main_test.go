package main

import (
	"net/http"
	"testing"
	"time"

	"microfin-office/internal/config"
	"microfin-office/internal/infrastructure/logging"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
)

func TestLoanPolicyFromConfig(t *testing.T) {
	logger := logging.NewLogger(config.LoggerConfig{})

	t.Run("parses configured rate", func(t *testing.T) {
		policy := loanPolicyFromConfig(config.LoanConfig{
			DefaultTermWeeks:    50,
			DefaultInterestRate: "0.10",
			OverdueThreshold:    2,
			MaxPrincipal:        50_000_000,
		}, logger)

		assert.Equal(t, 50, policy.DefaultTermWeeks)
		assert.InDelta(t, 0.10, policy.DefaultInterestRate, 1e-9)
		assert.Equal(t, 2, policy.OverdueThreshold)
	})

	t.Run("falls back on malformed rate", func(t *testing.T) {
		policy := loanPolicyFromConfig(config.LoanConfig{DefaultInterestRate: "ten percent"}, logger)
		assert.InDelta(t, 0.10, policy.DefaultInterestRate, 1e-9)
	})

	t.Run("falls back on empty rate", func(t *testing.T) {
		policy := loanPolicyFromConfig(config.LoanConfig{}, logger)
		assert.InDelta(t, 0.10, policy.DefaultInterestRate, 1e-9)
	})
}

func TestStartServer(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:         0,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
			IdleTimeout:  5 * time.Second,
		},
	}
	logger := logging.NewLogger(config.LoggerConfig{})
	router := http.NewServeMux()

	srv, serverErrors, shutdownChan := startServer(cfg, router, logger)

	assert.NotNil(t, srv, "Server should not be nil")
	assert.NotNil(t, serverErrors, "Server errors channel should not be nil")
	assert.NotNil(t, shutdownChan, "Shutdown channel should not be nil")

	assert.NoError(t, srv.Close())
}

func TestStopCronScheduler(t *testing.T) {
	logger := logging.NewLogger(config.LoggerConfig{})
	scheduler := cron.New()
	scheduler.Start()

	done := make(chan struct{})
	go func() {
		stopCronScheduler(scheduler, logger)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop in time")
	}
}
