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

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the fully resolved configuration for a mysqlfs mount: CLI flags,
// layered over an optional --config-file, layered over the defaults in
// defaults.go.
type Config struct {
	MySQL   MySQLConfig   `yaml:"mysql"`
	Pool    PoolConfig    `yaml:"pool"`
	Mount   MountConfig   `yaml:"mount"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// MySQLConfig names the backing database and how to reach it. Mirrors the
// connection parameters accepted as FUSE mount options by the original
// mysqlfs binary (-ohost=, -ouser=, ...).
type MySQLConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// Socket, if set, connects over a local unix socket instead of Host:Port.
	Socket      string `yaml:"socket"`
	User        string `yaml:"user"`
	Password    string `yaml:"password"`
	Database    string `yaml:"database"`
	TablePrefix string `yaml:"table-prefix"`
	// MycnfGroup names a [group] in my.cnf to read additional client defaults
	// from. Not implemented by the pure-Go driver; kept for CLI-surface
	// compatibility and logged as a no-op if set.
	MycnfGroup string `yaml:"mycnf-group"`
}

// PoolConfig bounds the connection pool (spec §5).
type PoolConfig struct {
	InitConns      int `yaml:"init-conns"`
	MaxIdlingConns int `yaml:"max-idling-conns"`
	MaxOpenConns   int `yaml:"max-open-conns"`
}

// MountConfig carries the FUSE-level passthrough options and the
// repair-on-startup switch.
type MountConfig struct {
	Fsck               bool `yaml:"fsck"`
	Background         bool `yaml:"background"`
	AllowOther         bool `yaml:"allow-other"`
	DefaultPermissions bool `yaml:"default-permissions"`
	BigWrites          bool `yaml:"big-writes"`
}

// LoggingConfig controls where and how verbosely mysqlfs logs.
type LoggingConfig struct {
	Severity LogSeverity  `yaml:"severity"`
	Format   string       `yaml:"format"`
	Logfile  ResolvedPath `yaml:"logfile"`
	LogRotate LogRotateLoggingConfig `yaml:"log-rotate"`
}

// LogRotateLoggingConfig configures lumberjack-based rotation of --logfile.
type LogRotateLoggingConfig struct {
	MaxFileSizeMb   int  `yaml:"max-file-size-mb"`
	BackupFileCount int  `yaml:"backup-file-count"`
	Compress        bool `yaml:"compress"`
}

// MetricsConfig controls the optional Prometheus scrape endpoint.
type MetricsConfig struct {
	// Port serves /metrics on localhost when non-zero; 0 disables it.
	Port int `yaml:"port"`
}

// BindFlags registers every mysqlfs flag on flagSet and binds it into viper
// under the matching dotted config key, so a --config-file value and a CLI
// flag resolve into the same Config field.
func BindFlags(flagSet *pflag.FlagSet) error {
	var err error

	flagSet.StringP("host", "h", "", "MySQL server host.")
	if err = viper.BindPFlag("mysql.host", flagSet.Lookup("host")); err != nil {
		return err
	}

	flagSet.IntP("port", "P", 3306, "MySQL server port.")
	if err = viper.BindPFlag("mysql.port", flagSet.Lookup("port")); err != nil {
		return err
	}

	flagSet.StringP("socket", "S", "", "Path to a local MySQL unix socket; overrides host/port.")
	if err = viper.BindPFlag("mysql.socket", flagSet.Lookup("socket")); err != nil {
		return err
	}

	flagSet.StringP("user", "u", "", "MySQL user name. Required.")
	if err = viper.BindPFlag("mysql.user", flagSet.Lookup("user")); err != nil {
		return err
	}

	flagSet.String("password", "", "MySQL password. Required.")
	if err = viper.BindPFlag("mysql.password", flagSet.Lookup("password")); err != nil {
		return err
	}

	flagSet.StringP("database", "D", "", "MySQL database name. Required.")
	if err = viper.BindPFlag("mysql.database", flagSet.Lookup("database")); err != nil {
		return err
	}

	flagSet.StringP("table-prefix", "", "", "Prefix prepended to the five schema table names.")
	if err = viper.BindPFlag("mysql.table-prefix", flagSet.Lookup("table-prefix")); err != nil {
		return err
	}

	flagSet.String("mycnf-group", "mysqlfs", "Group in my.cnf to read additional client defaults from (unsupported, logged only).")
	if err = viper.BindPFlag("mysql.mycnf-group", flagSet.Lookup("mycnf-group")); err != nil {
		return err
	}

	flagSet.Int("init-conns", 1, "Connections opened eagerly when the pool starts.")
	if err = viper.BindPFlag("pool.init-conns", flagSet.Lookup("init-conns")); err != nil {
		return err
	}

	flagSet.Int("max-idling-conns", 5, "Maximum number of idle connections kept warm in the pool.")
	if err = viper.BindPFlag("pool.max-idling-conns", flagSet.Lookup("max-idling-conns")); err != nil {
		return err
	}

	flagSet.Int("max-open-conns", 64, "Hard ceiling on simultaneously open connections; acquire beyond it fails with EMFILE.")
	if err = viper.BindPFlag("pool.max-open-conns", flagSet.Lookup("max-open-conns")); err != nil {
		return err
	}

	flagSet.Bool("fsck", true, "Run consistency repair once before serving the mount.")
	if err = viper.BindPFlag("mount.fsck", flagSet.Lookup("fsck")); err != nil {
		return err
	}

	flagSet.Bool("nofsck", false, "Skip the startup consistency repair (shorthand for --fsck=false).")
	if err = viper.BindPFlag("mount.nofsck-alias", flagSet.Lookup("nofsck")); err != nil {
		return err
	}

	flagSet.Bool("background", false, "Accepted for command-line compatibility; mysqlfs does not fork and always stays in the foreground.")
	if err = viper.BindPFlag("mount.background", flagSet.Lookup("background")); err != nil {
		return err
	}

	flagSet.Bool("allow-other", false, "Allow users other than the mount owner to access the filesystem.")
	if err = viper.BindPFlag("mount.allow-other", flagSet.Lookup("allow-other")); err != nil {
		return err
	}

	flagSet.Bool("default-permissions", false, "Let the kernel enforce permission bits instead of trusting every access.")
	if err = viper.BindPFlag("mount.default-permissions", flagSet.Lookup("default-permissions")); err != nil {
		return err
	}

	flagSet.Bool("big-writes", false, "Negotiate larger than 4KB writes with the kernel, where supported.")
	if err = viper.BindPFlag("mount.big-writes", flagSet.Lookup("big-writes")); err != nil {
		return err
	}

	flagSet.String("log-severity", "INFO", "Minimum log severity: TRACE, DEBUG, INFO, WARNING, ERROR, OFF.")
	if err = viper.BindPFlag("logging.severity", flagSet.Lookup("log-severity")); err != nil {
		return err
	}

	flagSet.String("log-format", "text", "Log line encoding: text or json.")
	if err = viper.BindPFlag("logging.format", flagSet.Lookup("log-format")); err != nil {
		return err
	}

	flagSet.String("logfile", "", "Path to the log file; empty means stderr.")
	if err = viper.BindPFlag("logging.logfile", flagSet.Lookup("logfile")); err != nil {
		return err
	}

	flagSet.Int("metrics-port", 0, "Serve Prometheus /metrics on this localhost port; 0 disables it.")
	if err = viper.BindPFlag("metrics.port", flagSet.Lookup("metrics-port")); err != nil {
		return err
	}

	return nil
}
