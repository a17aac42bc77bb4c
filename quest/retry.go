package quest

import (
	"context"
	"regexp"
	"time"

	"github.com/Konsultn-Engineering/quest/async"
	"github.com/Konsultn-Engineering/quest/database"
)

const (
	DefaultTimes = 10
	DefaultWait  = 5 * time.Second
)

// Proc is a unit of work run under Retry or Transaction.
type Proc func(ctx context.Context) (*database.Result, error)

// RetryPolicy controls Quest.Retry. The zero value is not useful; build one
// with NewRetryPolicy.
type RetryPolicy struct {
	times     int
	forever   bool
	wait      time.Duration
	retryable func(error) bool
}

// RetryOption configures a RetryPolicy.
type RetryOption func(*RetryPolicy)

// NewRetryPolicy returns a policy of DefaultTimes attempts, DefaultWait apart,
// retrying every error, adjusted by opts.
func NewRetryPolicy(opts ...RetryOption) RetryPolicy {
	p := RetryPolicy{times: DefaultTimes, wait: DefaultWait}
	for _, opt := range opts {
		opt(&p)
	}
	if p.times < 1 {
		p.times = 1
	}
	return p
}

// WithTimes caps the number of attempts at k. Values below 1 mean 1.
func WithTimes(k int) RetryOption {
	return func(p *RetryPolicy) {
		p.times = k
		p.forever = false
	}
}

// Forever retries until the procedure succeeds or fails with an error that
// is not retryable.
func Forever() RetryOption {
	return func(p *RetryPolicy) {
		p.forever = true
	}
}

// WithWait sets the pause between attempts.
func WithWait(d time.Duration) RetryOption {
	return func(p *RetryPolicy) {
		if d < 0 {
			d = 0
		}
		p.wait = d
	}
}

// WithRetryable sets the predicate deciding whether an error is worth
// another attempt.
func WithRetryable(pred func(error) bool) RetryOption {
	return func(p *RetryPolicy) {
		p.retryable = pred
	}
}

// WithOKErrors retries only errors whose message matches one of patterns.
// It panics if a pattern does not compile.
func WithOKErrors(patterns ...string) RetryOption {
	res := make([]*regexp.Regexp, len(patterns))
	for i, pat := range patterns {
		res[i] = regexp.MustCompile(pat)
	}
	return WithRetryable(MatchAny(res...))
}

// MatchAny reports whether an error's message matches any of res.
func MatchAny(res ...*regexp.Regexp) func(error) bool {
	return func(err error) bool {
		msg := err.Error()
		for _, re := range res {
			if re.MatchString(msg) {
				return true
			}
		}
		return false
	}
}

// Times returns the attempt cap; it is meaningless when Unbounded is true.
func (p RetryPolicy) Times() int { return p.times }

// Unbounded reports whether the policy retries without a cap.
func (p RetryPolicy) Unbounded() bool { return p.forever }

// Wait returns the pause between attempts.
func (p RetryPolicy) Wait() time.Duration { return p.wait }

// Retryable reports whether err qualifies for another attempt.
func (p RetryPolicy) Retryable(err error) bool {
	if p.retryable == nil {
		return true
	}
	return p.retryable(err)
}

// Retry runs proc until it succeeds, fails with an error the policy does not
// retry, or runs out of attempts. The last error is returned unchanged.
func (q *Quest) Retry(ctx context.Context, policy RetryPolicy, proc Proc) (*database.Result, error) {
	remaining := max(policy.times, 1)
	for attempt := 1; ; attempt++ {
		res, err := proc(ctx)
		if err == nil {
			return res, nil
		}
		if !policy.Retryable(err) {
			return nil, err
		}
		if !policy.forever {
			remaining--
			if remaining == 0 {
				return nil, err
			}
		}

		q.reporter.Retrying(attempt, policy.wait, err)
		if _, serr := async.Await(async.Sleep(q.loop, policy.wait)); serr != nil {
			return nil, serr
		}
	}
}
