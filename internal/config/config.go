package config

const (
	// DefaultPath is read when no --config flag is given and recorded as ConfigPath.
	DefaultPath = "/etc/default/decode_ceph.yaml"

	// Influx defaults
	DefaultInfluxHost     = "127.0.0.1"
	DefaultInfluxPort     = "8086"
	DefaultInfluxUser     = "root"
	DefaultInfluxPassword = "root"

	// Carbon defaults
	DefaultCarbonPort    = "2003"
	DefaultCarbonRootKey = "ceph"

	// elasticsearchURLFormat expands the bare host[:port] value of the elasticsearch key.
	elasticsearchURLFormat = "http://%s/ceph/operations"
)

// Output names accepted in the outputs list.
const (
	OutputStdout        = "stdout"
	OutputInflux        = "influx"
	OutputElasticsearch = "elasticsearch"
	OutputCarbon        = "carbon"
)

// Config holds the resolved configuration handed to the rest of the program.
// It is built once at startup and not modified afterwards.
type Config struct {
	Outputs       []string
	Stdout        *string
	Influx        *InfluxConfig
	Carbon        *CarbonConfig
	Elasticsearch *string // full document URL
	ConfigPath    string
	Verbosity     Level
}

// InfluxConfig defines the InfluxDB time-series sink.
type InfluxConfig struct {
	Host     string
	Port     string
	User     string
	Password string
}

// CarbonConfig defines the Graphite carbon sink.
type CarbonConfig struct {
	Host    string
	Port    string
	RootKey string
}

// clean returns the inert configuration used when nothing usable was parsed.
func clean() *Config {
	return &Config{
		Outputs:   []string{},
		Verbosity: LevelWarn,
	}
}
