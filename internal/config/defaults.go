package config

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			Workspace: ".",
			LogLevel:  "info",
		},
		Session: SessionConfig{
			Persist:       false,
			DBPath:        "~/.xcodemcp/xcodemcp.db",
			ProjectConfig: ".xcodemcp/config.yaml",
		},
		Executor: ExecutorConfig{
			TimeoutSeconds: 1800,
			MaxOutputBytes: 1 << 20,
			Shell:          "/bin/sh",
		},
		Audit: AuditConfig{
			Enabled: false,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9464",
		},
	}
}
