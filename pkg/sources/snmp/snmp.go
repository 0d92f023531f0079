// Package snmp queries a router's SNMP identity (sysName, sysUpTime) as
// supporting evidence when the loopback answers. The check is optional and
// never influences the diagnosis verdict.
package snmp

import (
	"context"
	"fmt"
	"time"

	"github.com/gosnmp/gosnmp"

	"github.com/wingedpig/rfdiag/pkg/model"
)

const (
	oidSysUpTime = ".1.3.6.1.2.1.1.3.0"
	oidSysName   = ".1.3.6.1.2.1.1.5.0"
)

// Config holds SNMP v2c session settings.
type Config struct {
	Community string
	Port      uint16
	Timeout   time.Duration
	Retries   int
}

// Checker performs identity checks against routers.
type Checker struct {
	cfg Config
}

// New creates a Checker. Zero-value fields get the usual defaults
// (community "public", port 161, 3s timeout, 1 retry).
func New(cfg Config) *Checker {
	if cfg.Community == "" {
		cfg.Community = "public"
	}
	if cfg.Port == 0 {
		cfg.Port = 161
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.Retries < 0 {
		cfg.Retries = 1
	}
	return &Checker{cfg: cfg}
}

// Check fetches sysName and sysUpTime from host over SNMP v2c.
func (c *Checker) Check(ctx context.Context, host string) (*model.RouterInfo, error) {
	sn := &gosnmp.GoSNMP{
		Target:    host,
		Port:      c.cfg.Port,
		Community: c.cfg.Community,
		Version:   gosnmp.Version2c,
		Timeout:   c.cfg.Timeout,
		Retries:   c.cfg.Retries,
		Context:   ctx,
	}

	if err := sn.Connect(); err != nil {
		return nil, fmt.Errorf("snmp connect %s: %w", host, err)
	}
	defer sn.Conn.Close()

	res, err := sn.Get([]string{oidSysName, oidSysUpTime})
	if err != nil {
		return nil, fmt.Errorf("snmp get %s: %w", host, err)
	}

	info := &model.RouterInfo{}
	for _, v := range res.Variables {
		switch v.Name {
		case oidSysName:
			if b, ok := v.Value.([]byte); ok {
				info.SysName = string(b)
			}
		case oidSysUpTime:
			// sysUpTime is TimeTicks in hundredths of a second
			info.SysUptimeS = uint32(gosnmp.ToBigInt(v.Value).Uint64() / 100)
		}
	}

	return info, nil
}
