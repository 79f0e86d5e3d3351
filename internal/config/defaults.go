package config

const (
	defaultAddr                   = ":4400"
	defaultDataDir                = "./data"
	defaultMaxBodyBytes           = 25 << 20
	defaultAllowedOrigin          = "*"
	defaultListingCacheSize       = 256
	defaultListingCacheTTLSeconds = 30
	defaultShutdownTimeoutSeconds = 5
	defaultCapacity               = 10
	defaultServerURL              = "http://localhost:4400"
	defaultClientTimeoutSeconds   = 60
	defaultLogLevel               = "info"
	defaultLogFormat              = "auto"
)

var defaultAllowedTypes = []string{"image/jpeg", "image/png"}

// Default returns a Config populated with repository defaults. Directory
// fields left empty are derived from DataDir when the config is loaded.
func Default() Config {
	return Config{
		Server: Server{
			Addr:                   defaultAddr,
			DataDir:                defaultDataDir,
			MaxBodyBytes:           defaultMaxBodyBytes,
			AllowedOrigin:          defaultAllowedOrigin,
			ListingCacheSize:       defaultListingCacheSize,
			ListingCacheTTLSeconds: defaultListingCacheTTLSeconds,
			ShutdownTimeoutSeconds: defaultShutdownTimeoutSeconds,
		},
		Collection: Collection{
			Capacity:     defaultCapacity,
			AllowedTypes: append([]string(nil), defaultAllowedTypes...),
		},
		Client: Client{
			ServerURL:      defaultServerURL,
			TimeoutSeconds: defaultClientTimeoutSeconds,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
