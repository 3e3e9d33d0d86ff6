// Copyright 2024 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cfg

import "fmt"

func isValidMySQLConfig(c *MySQLConfig) error {
	if c.Host == "" && c.Socket == "" {
		return fmt.Errorf("one of --host or --socket is required")
	}
	if c.User == "" {
		return fmt.Errorf("--user is required")
	}
	if c.Database == "" {
		return fmt.Errorf("--database is required")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("--port %d is out of range", c.Port)
	}
	return nil
}

func isValidPoolConfig(c *PoolConfig) error {
	if c.InitConns < 0 {
		return fmt.Errorf("--init-conns can't be negative")
	}
	if c.MaxIdlingConns < 0 {
		return fmt.Errorf("--max-idling-conns can't be negative")
	}
	if c.MaxOpenConns <= 0 {
		return fmt.Errorf("--max-open-conns must be positive")
	}
	if c.MaxIdlingConns > c.MaxOpenConns {
		return fmt.Errorf("--max-idling-conns (%d) can't exceed --max-open-conns (%d)", c.MaxIdlingConns, c.MaxOpenConns)
	}
	if c.InitConns > c.MaxOpenConns {
		return fmt.Errorf("--init-conns (%d) can't exceed --max-open-conns (%d)", c.InitConns, c.MaxOpenConns)
	}
	return nil
}

func isValidLoggingConfig(c *LoggingConfig) error {
	if c.Format != "text" && c.Format != "json" {
		return fmt.Errorf("--log-format must be \"text\" or \"json\", got %q", c.Format)
	}
	if c.LogRotate.MaxFileSizeMb <= 0 {
		return fmt.Errorf("log-rotate max-file-size-mb should be at least 1")
	}
	if c.LogRotate.BackupFileCount < 0 {
		return fmt.Errorf("log-rotate backup-file-count should be 0 (retain all) or positive")
	}
	return nil
}

// ValidateConfig returns a non-nil error if config is not safe to mount with.
func ValidateConfig(config *Config) error {
	if err := isValidMySQLConfig(&config.MySQL); err != nil {
		return fmt.Errorf("error validating mysql config: %w", err)
	}
	if err := isValidPoolConfig(&config.Pool); err != nil {
		return fmt.Errorf("error validating pool config: %w", err)
	}
	if err := isValidLoggingConfig(&config.Logging); err != nil {
		return fmt.Errorf("error validating logging config: %w", err)
	}
	return nil
}
