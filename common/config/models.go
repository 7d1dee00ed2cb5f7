package config

type GeneralConfig struct {
	LogDirectory string `yaml:"logDirectory"`
	LogLevel     string `yaml:"logLevel"`
	LogColors    bool   `yaml:"logColors"`
	JsonLogs     bool   `yaml:"jsonLogs"`
	TokenFile    string `yaml:"tokenFile"`
}

type ApiConfig struct {
	BaseUrl        string `yaml:"baseUrl"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
	PageSize       int    `yaml:"pageSize"`
}

type DownloadsConfig struct {
	NumWorkers     int `yaml:"numWorkers"`
	TimeoutSeconds int `yaml:"timeoutSeconds"`
}

type ExportsConfig struct {
	OutputDirectory string `yaml:"outputDirectory"`
}

type MetricsConfig struct {
	Enabled     bool   `yaml:"enabled"`
	BindAddress string `yaml:"bindAddress"`
	Port        int    `yaml:"port"`
}

type ArchiverConfig struct {
	General   GeneralConfig   `yaml:"archiver"`
	Api       ApiConfig       `yaml:"api"`
	Downloads DownloadsConfig `yaml:"downloads"`
	Exports   ExportsConfig   `yaml:"exports"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}
