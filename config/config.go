// Package config loads and validates the PLC configuration file: the JSON
// shape spec.md §6 defines, mirroring original_source/main.py's load_config
// plus the validation that function never did itself.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/vinayakas1997/finsbridge/fins"
)

// AddressMapping is one user-configured PLC-register-to-tag binding.
type AddressMapping struct {
	PLCRegAdd   string `json:"plc_reg_add"`
	OPCUARegAdd string `json:"opcua_reg_add"`
	DataType    string `json:"data_type"`
}

// HeartbeatTag is the reserved plc_reg_add value for the synthetic heartbeat
// entry (spec.md §6).
const HeartbeatTag = "HEARTBEAT"

// PLCConfig describes one configured PLC and its address mapping.
type PLCConfig struct {
	Name            string           `json:"plc_name"`
	IP              string           `json:"plc_ip"`
	Port            int              `json:"plc_port"`
	OPCUAURL        string           `json:"opcua_url"`
	SleepIntervalMs int              `json:"sleep_interval_ms"`
	AddressMappings []AddressMapping `json:"address_mappings"`
}

// EffectivePort returns Port if set, else the standard FINS/UDP port.
func (p PLCConfig) EffectivePort() int {
	if p.Port == 0 {
		return 9600
	}
	return p.Port
}

// EffectiveSleepInterval returns the configured poll interval, defaulting to
// 10ms (spec.md §6) when unset.
func (p PLCConfig) EffectiveSleepInterval() time.Duration {
	if p.SleepIntervalMs <= 0 {
		return 10 * time.Millisecond
	}
	return time.Duration(p.SleepIntervalMs) * time.Millisecond
}

// Config is the top-level configuration document: a list of PLCs, each
// polled by its own Poller.
type Config struct {
	PLCs []PLCConfig `json:"plcs"`
}

// readConfigBytes mirrors load_config's fallback chain over text encodings —
// the files this bridge reads have in practice been saved by various
// regional editors. Go's encoding/json operates on UTF-8 text, so only
// UTF-8 and the single-byte Latin-1 fallback are tried: Shift-JIS and CP932
// require a dedicated decoder this core does not carry (no corpus example
// imports one). Any input that is not valid UTF-8 is reinterpreted as
// Latin-1, so Shift-JIS/CP932 text is not rejected here but decoded into
// the wrong characters; see DESIGN.md.
func readConfigBytes(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if jsonValidUTF8(raw) {
		return raw, nil
	}
	return latin1ToUTF8(raw), nil
}

func jsonValidUTF8(b []byte) bool {
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c < 0x80:
			i++
		case c&0xE0 == 0xC0:
			if i+1 >= len(b) || b[i+1]&0xC0 != 0x80 {
				return false
			}
			i += 2
		case c&0xF0 == 0xE0:
			if i+2 >= len(b) || b[i+1]&0xC0 != 0x80 || b[i+2]&0xC0 != 0x80 {
				return false
			}
			i += 3
		case c&0xF8 == 0xF0:
			if i+3 >= len(b) || b[i+1]&0xC0 != 0x80 || b[i+2]&0xC0 != 0x80 || b[i+3]&0xC0 != 0x80 {
				return false
			}
			i += 4
		default:
			return false
		}
	}
	return true
}

// latin1ToUTF8 treats b as Latin-1 (one byte per rune) and re-encodes it as
// UTF-8, the one non-UTF-8 encoding load_config's fallback chain covers that
// encoding/json can be handed without a dedicated decoder.
func latin1ToUTF8(b []byte) []byte {
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return []byte(string(runes))
}

// Load reads path, decodes it as JSON, and validates it against the rules
// original_source/main.py's load_config skipped entirely: non-empty
// plc_name/plc_ip, a recognized data_type per mapping entry, and at most one
// HEARTBEAT entry per PLC.
func Load(path string) (*Config, error) {
	raw, err := readConfigBytes(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if len(cfg.PLCs) == 0 {
		return nil, fmt.Errorf("config %s: no plcs configured", path)
	}

	for i := range cfg.PLCs {
		if err := validatePLC(&cfg.PLCs[i]); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	}

	return &cfg, nil
}

func validatePLC(p *PLCConfig) error {
	if p.Name == "" {
		return fmt.Errorf("plc_name is required")
	}
	if p.IP == "" {
		return fmt.Errorf("%s: plc_ip is required", p.Name)
	}

	heartbeats := 0
	for _, m := range p.AddressMappings {
		if m.PLCRegAdd == HeartbeatTag {
			heartbeats++
			continue
		}
		if _, err := fins.ParseDataType(m.DataType); err != nil {
			return fmt.Errorf("%s: mapping %q: %w", p.Name, m.OPCUARegAdd, err)
		}
	}
	if heartbeats > 1 {
		return fmt.Errorf("%s: at most one HEARTBEAT mapping is allowed, found %d", p.Name, heartbeats)
	}

	return nil
}
