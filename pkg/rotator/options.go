package rotator

type options struct {
	subjects  *Pool
	greetings *Pool
}

// Option configures a Rotator.
type Option func(*options)

// WithSubjects sets the subject pool.
func WithSubjects(p *Pool) Option {
	return func(o *options) {
		o.subjects = p
	}
}

// WithGreetings sets the greeting pool.
func WithGreetings(p *Pool) Option {
	return func(o *options) {
		o.greetings = p
	}
}
