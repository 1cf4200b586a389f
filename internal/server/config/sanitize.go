package config

import (
	"net/url"

	"github.com/yndnr/devmesh-go/internal/core/domain"
)

// Sanitize returns a copy of cfg that is safe to log. Device addresses
// lose any embedded credentials.
func Sanitize(cfg *ServerConfig) *ServerConfig {
	sanitized := *cfg
	sanitized.Devices = make([]domain.DeviceID, len(cfg.Devices))
	for i, d := range cfg.Devices {
		d.Address = maskAddress(d.Address)
		sanitized.Devices[i] = d
	}
	return &sanitized
}

func maskAddress(addr string) string {
	u, err := url.Parse(addr)
	if err != nil || u.User == nil {
		return addr
	}
	if _, hasPassword := u.User.Password(); hasPassword {
		u.User = url.UserPassword(u.User.Username(), "****")
	}
	return u.String()
}
