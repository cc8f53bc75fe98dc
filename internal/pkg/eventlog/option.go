package eventlog

type consumeOptions struct {
	group        string
	subscription string
	concurrency  int
	maxInFlight  int
}

// ConsumeOption configures a subscription.
type ConsumeOption func(*consumeOptions)

func newConsumeOptions(opts ...ConsumeOption) consumeOptions {
	co := consumeOptions{concurrency: 1}
	for _, opt := range opts {
		if opt != nil {
			opt(&co)
		}
	}
	if co.concurrency < 1 {
		co.concurrency = 1
	}
	if co.maxInFlight < co.concurrency {
		co.maxInFlight = co.concurrency
	}
	return co
}

// WithGroup names the consumer group: Kafka group id, NATS queue group and
// NSQ channel.
func WithGroup(group string) ConsumeOption {
	return func(o *consumeOptions) { o.group = group }
}

// WithSubscription names the Pub/Sub subscription. Defaults to
// "<topic>.<group>" with dots replaced by dashes.
func WithSubscription(name string) ConsumeOption {
	return func(o *consumeOptions) { o.subscription = name }
}

// WithConcurrency sets the number of handler goroutines.
func WithConcurrency(n int) ConsumeOption {
	return func(o *consumeOptions) { o.concurrency = n }
}

// WithMaxInFlight bounds unacked records held by the client.
func WithMaxInFlight(n int) ConsumeOption {
	return func(o *consumeOptions) { o.maxInFlight = n }
}
