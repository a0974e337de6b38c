package config

import (
	"sync"

	"github.com/jinzhu/configor"
)

var C struct {
	sync.Mutex
	Mode string `default:"debug"`

	Server ServerConfig
	Relay  RelayConfig
	Log    LoggerConfig
}

// ServerConfig holds the listener and trust settings of the acceptor.
type ServerConfig struct {
	BindAddr string `default:"127.0.0.1"` // loopback only for trusted operation
	Port     uint16 `default:"8025"`
	Backlog  int    `default:"10"`

	// TrustedOrigin is the single address whose connections are serviced.
	// Connections from any other source are closed without reading data.
	TrustedOrigin string `default:"127.0.0.1"`
}

// RelayConfig selects and parameterizes the relay to the SMTP service.
type RelayConfig struct {
	// ServiceURL is the SMTP service HTTP endpoint relayed requests are
	// POSTed to.
	ServiceURL string `default:"http://127.0.0.1:8026/send"`

	// Mode is "command" (pipe through an external HTTP client, the
	// default) or "http" (in-process client).
	Mode string `default:"command"`

	// Command is the external HTTP client binary used in command mode.
	Command string `default:"curl"`
}

type LoggerConfig struct {
	// LogFile receives one JSON object per connection event. Falls back
	// to stderr if it cannot be opened.
	LogFile string `default:"logs/tcp_accept.log"`
}

func Load(filename string) {
	C.Lock()
	defer C.Unlock()
	configor.Load(&C, filename)
}

// Default populates C without reading any file, struct-tag defaults only.
func Default() {
	C.Lock()
	defer C.Unlock()
	configor.Load(&C)
}
