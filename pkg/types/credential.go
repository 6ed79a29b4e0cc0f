package types

// HashParams tunes the argon2id key derivation used for stored credentials.
// Memory is in KiB.
type HashParams struct {
	Time    uint32 `json:"time" yaml:"time" mapstructure:"time"`
	Memory  uint32 `json:"memory" yaml:"memory" mapstructure:"memory"`
	Threads uint8  `json:"threads" yaml:"threads" mapstructure:"threads"`
}

// DefaultHashParams follows the argon2id recommendation for interactive logins.
var DefaultHashParams = HashParams{Time: 1, Memory: 64 * 1024, Threads: 4}

func (p HashParams) valid() bool {
	return p.Time > 0 && p.Memory > 0 && p.Threads > 0
}

// Identity is the authenticated view of a credential row. The hash and salt
// never leave the storage layer.
type Identity struct {
	ID     int64  `json:"id"`
	Handle string `json:"handle"`
}
