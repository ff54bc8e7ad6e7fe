package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abhishekY2401/product-service/pkg/logger"
)

const heartbeatInterval = 30 * time.Second

type pinger interface {
	Ping(context.Context) error
}

// runner is a broker-specific receive loop feeding the orders consumer.
type runner interface {
	Run(ctx context.Context) error
}

type dependency struct {
	name string
	dep  pinger
}

type ServiceParams struct {
	Logger *logger.Logger
	Runner runner
	// Dependencies are pinged in order before consuming starts.
	DB     pinger
	Redis  pinger
	Broker pinger
}

// Service runs the order.placed consumer once its dependencies answer.
type Service struct {
	logg   *logger.Logger
	runner runner
	deps   []dependency
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Runner == nil {
		return nil, errors.New("order consumer runner is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	deps := []dependency{{name: "database", dep: params.DB}}
	if params.Redis != nil {
		deps = append(deps, dependency{name: "redis", dep: params.Redis})
	}
	if params.Broker != nil {
		deps = append(deps, dependency{name: "broker", dep: params.Broker})
	}
	return &Service{logg: params.Logger, runner: params.Runner, deps: deps}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	for _, d := range s.deps {
		if err := d.dep.Ping(ctx); err != nil {
			s.logg.Error(ctx, fmt.Sprintf("%s ping failed", d.name), err)
			return fmt.Errorf("%s ping failed: %w", d.name, err)
		}
	}
	s.logg.Info(ctx, "all worker dependencies are ready")
	return nil
}

func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.runner.Run(ctx)
	}()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "worker context canceled")
			<-errCh
			return ctx.Err()
		case err := <-errCh:
			if err != nil && !errors.Is(err, context.Canceled) {
				s.logg.Error(ctx, "order consumer stopped unexpectedly", err)
				return err
			}
			if err == nil {
				return errors.New("order consumer exited")
			}
			return err
		case <-ticker.C:
			s.logg.Debug(ctx, "worker heartbeat")
		}
	}
}
