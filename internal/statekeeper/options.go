package statekeeper

// getConfig is the resolved form of a Get call's variadic options.
type getConfig struct {
	key *string
	seq *uint64
}

// GetOption customizes a Get call.
type GetOption func(*getConfig)

// WithKey restricts Get to a single key's value instead of the whole partition map.
func WithKey(key string) GetOption {
	return func(c *getConfig) { c.key = &key }
}

// WithSeq requests the partition's state as of a past sequence number
// instead of the current state.
func WithSeq(seq uint64) GetOption {
	return func(c *getConfig) { c.seq = &seq }
}
