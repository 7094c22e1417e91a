package dzb

import "go.uber.org/zap"

// Option configures how a DZB is decoded and encoded.
type Option func(*options)

type options struct {
	logger      *zap.Logger
	legacyGroup bool
	rawNames    bool
}

func defaultOptions() options {
	return options{logger: zap.NewNop()}
}

// WithLogger routes debug output from the codec to l.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithLegacyGroupWrite makes Save emit groups the way earlier tooling did:
// only the room index and group_info bitfield are written and every other
// group byte is zero. No name table is emitted. Only the group records follow
// the old output; properties are still written in full.
func WithLegacyGroupWrite() Option {
	return func(o *options) {
		o.legacyGroup = true
	}
}

// WithRawNames keeps group names as the raw bytes found in the file instead
// of decoding them from Shift-JIS.
func WithRawNames() Option {
	return func(o *options) {
		o.rawNames = true
	}
}
