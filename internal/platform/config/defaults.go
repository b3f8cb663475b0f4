package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			IP:        "0.0.0.0",
			Port:      8081,
			APIPrefix: "/api",
		},
		Log: LogConfig{
			Level: "INFO",
			Dir:   "data/logs",
			File:  "streamer.log",
		},
		Streamer: StreamerConfig{
			UnixSocket: "/run/kvmd/ustreamer.sock",
			Timeout:    2 * time.Second,
			Quality:    80,
			DesiredFPS: 40,
		},
		Snapshot: SnapshotConfig{
			Store: SnapshotStoreConfig{
				Type: "memory",
			},
		},
		OCR: OCRConfig{
			Enabled:      true,
			Binary:       "tesseract",
			TessdataDir:  "/usr/share/tessdata",
			DefaultLangs: []string{"eng"},
			Timeout:      20 * time.Second,
			Workers:      1,
		},
		Mode: ModeConfig{
			CommandTimeout: 30 * time.Second,
			Commands: map[string][]string{
				"janus": {"sudo", "systemctl", "restart", "kvmd-webrtc"},
				"mjpeg": {"sudo", "systemctl", "restart", "kvmd-ustreamer"},
			},
			Processes: map[string]string{
				"janus": "janus",
				"mjpeg": "ustreamer",
			},
		},
		Storage: StorageConfig{
			DataDir: "./data",
			DBFile:  "streamer.db",
		},
	}
}
