package config

func NewDefaultConfig() *ArchiverConfig {
	return &ArchiverConfig{
		General: GeneralConfig{
			LogDirectory: "logs",
			LogLevel:     "info",
			LogColors:    false,
			JsonLogs:     false,
			TokenFile:    "",
		},
		Api: ApiConfig{
			BaseUrl:        "https://discord.com/api/v9",
			TimeoutSeconds: 30,
			PageSize:       100,
		},
		Downloads: DownloadsConfig{
			NumWorkers:     1,
			TimeoutSeconds: 30,
		},
		Exports: ExportsConfig{
			OutputDirectory: "exports",
		},
		Metrics: MetricsConfig{
			Enabled:     false,
			BindAddress: "127.0.0.1",
			Port:        9000,
		},
	}
}
