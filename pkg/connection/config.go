package connection

import (
	"fmt"
	"net/url"

	"github.com/lessonloop/lessonloop-go/internal/codec"
	"github.com/lessonloop/lessonloop-go/pkg/logger"
)

// Config carries everything a transport needs. One base URL serves both
// the snapshot request and the event channel.
type Config struct {
	BaseURL     string
	Marshaler   codec.Marshaler
	Unmarshaler codec.Unmarshaler
	Logger      logger.Logger
}

// NewConfig builds a Config for the authority at u with the default CBOR
// codec. The URL scheme should be ws or wss.
func NewConfig(u *url.URL) *Config {
	c := codec.NewCBOR()
	return &Config{
		BaseURL:     fmt.Sprintf("%s://%s", u.Scheme, u.Host),
		Marshaler:   c,
		Unmarshaler: c,
		Logger:      logger.Nop{},
	}
}
