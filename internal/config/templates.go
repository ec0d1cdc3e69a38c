package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "nsd":
		return serverTemplate, nil
	case "nsctl":
		return clientTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const serverTemplate = `id = "nsd"
addr = ":9400"
protocol = "binary"
store = "pebble"
data_dir = "./data/nsd"
log_level = "info"
# write_token = "change-me"
# tls_cert_file = "./certs/nsd.crt"
# tls_key_file = "./certs/nsd.key"
cors_origins = ["http://localhost:3000"]
trusted_proxies = ["127.0.0.1", "::1"]
namespaces = ["/hypertable", "/sys"]

[limits]
max_string_bytes = 16777216
max_container_items = 1048576
max_depth = 64
`

const clientTemplate = `server = "http://localhost:9400"
protocol = "binary"
timeout = "5s"
# token = "change-me"
# ca_file = "./certs/ca.crt"
`
