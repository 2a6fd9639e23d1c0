package milp

type Option func(*Model) error

// WithLogger routes lp_solve's internal log lines to logger instead of
// discarding them. A *logx.Logger satisfies Logger, so solver chatter
// and driver events can share one ordered sink. builder.Build and
// builder.BuildCarryover create their models without this option, so
// lp_solve's log lines from driver solves are discarded.
func WithLogger(logger Logger) Option {
	return func(m *Model) error {
		m.logger = logger

		return nil
	}
}
