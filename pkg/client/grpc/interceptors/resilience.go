package interceptors

import (
	"context"
	"log/slog"

	"github.com/abgdnv/storefront/pkg/config"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/retry"
	"github.com/sony/gobreaker/v2"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// transientCodes are the statuses worth retrying. They are also the only ones counted against the breaker:
// NotFound or InvalidArgument from the inventory admin API mean the upstream is healthy.
var transientCodes = []codes.Code{codes.Unavailable, codes.ResourceExhausted, codes.Aborted}

func isTransient(err error) bool {
	st, ok := status.FromError(err)
	if !ok {
		return true
	}
	for _, c := range transientCodes {
		if st.Code() == c {
			return true
		}
	}
	return false
}

// ClientChain returns the interceptors every outbound call to name goes through, outermost first:
// a per-call deadline, retries and the circuit breaker, so each retry attempt is seen by the breaker.
func ClientChain(name string, cfg config.GrpcClientConfig, logger *slog.Logger) []grpc.UnaryClientInterceptor {
	return []grpc.UnaryClientInterceptor{
		UnaryClientTimeoutInterceptor(cfg.Timeout),
		NewRetryInterceptor(cfg.Resilience.Retry),
		NewCircuitBreaker(name, cfg.Resilience.CircuitBreaker, logger),
	}
}

// NewRetryInterceptor retries transient failures with exponential backoff.
func NewRetryInterceptor(cfg config.RetryConfig) grpc.UnaryClientInterceptor {
	return retry.UnaryClientInterceptor(
		retry.WithCodes(transientCodes...),
		retry.WithMax(cfg.MaxAttempts),
		retry.WithBackoff(retry.BackoffExponential(cfg.InitialBackoff)),
	)
}

// NewCircuitBreaker guards the upstream called name. State changes are logged at warn level.
func NewCircuitBreaker(name string, cfg config.CircuitBreakerConfig, logger *slog.Logger) grpc.UnaryClientInterceptor {
	breaker := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.HalfOpenRequests,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: readyToTrip(cfg),
		IsSuccessful: func(err error) bool {
			return err == nil || !isTransient(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		_, err := breaker.Execute(func() (struct{}, error) {
			return struct{}{}, invoker(ctx, method, req, reply, cc, opts...)
		})
		return err
	}
}

// readyToTrip opens the breaker after more than ConsecutiveFailures failures in a row, or once more than
// ConsecutiveFailures calls were made and the failure rate exceeds ErrorRatePercent.
func readyToTrip(cfg config.CircuitBreakerConfig) func(gobreaker.Counts) bool {
	return func(counts gobreaker.Counts) bool {
		if counts.ConsecutiveFailures > cfg.ConsecutiveFailures {
			return true
		}
		total := counts.TotalSuccesses + counts.TotalFailures
		if total <= cfg.ConsecutiveFailures {
			return false
		}
		return float64(counts.TotalFailures)*100/float64(total) > float64(cfg.ErrorRatePercent)
	}
}
