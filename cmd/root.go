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

package cmd

import (
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vGimly/mysqlfs/cfg"
)

var (
	cfgFile       string
	bindErr       error
	configFileErr error
	unmarshalErr  error
	MountConfig   = cfg.Config{
		Pool:    cfg.GetDefaultPoolConfig(),
		Logging: cfg.GetDefaultLoggingConfig(),
	}
)

var rootCmd = &cobra.Command{
	Use:   "mysqlfs [flags] mountpoint",
	Short: "Mount a MySQL database as a POSIX filesystem",
	Long: `mysqlfs is a FUSE filesystem driver whose entire persistent state --
directory tree, inode metadata, file contents, extended attributes, and
usage statistics -- lives inside a MySQL database. Reads and writes under
the mount point are translated into SQL against the backing schema.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if bindErr != nil {
			return bindErr
		}
		if configFileErr != nil {
			return configFileErr
		}
		if unmarshalErr != nil {
			return unmarshalErr
		}
		if err := cfg.ValidateConfig(&MountConfig); err != nil {
			return err
		}
		mountPoint, err := populateArgs(args)
		if err != nil {
			return err
		}
		return runMount(cmd.Context(), mountPoint, &MountConfig)
	},
}

func populateArgs(args []string) (mountPoint string, err error) {
	if len(args) != 1 {
		return "", fmt.Errorf(
			"%s takes exactly one argument (the mount point). Run `%s --help` for more info.",
			path.Base(os.Args[0]), path.Base(os.Args[0]))
	}

	// Canonicalize the mount point, making it absolute.
	mountPoint, err = filepath.Abs(args[0])
	if err != nil {
		return "", fmt.Errorf("canonicalizing mount point: %w", err)
	}
	return mountPoint, nil
}

// Execute runs the root command, exiting the process non-zero on any
// startup failure (spec §6's CLI surface contract).
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "Path to a YAML config file layered under the flags")
	bindErr = cfg.BindFlags(rootCmd.PersistentFlags())
}

func initConfig() {
	// The --nofsck flag is a convenience alias for --fsck=false; apply it
	// after binding so it overrides whatever --fsck resolved to.
	if rootCmd.PersistentFlags().Changed("nofsck") {
		viper.Set("mount.fsck", false)
	}

	if cfgFile == "" {
		unmarshalErr = viper.Unmarshal(&MountConfig, viper.DecodeHook(cfg.DecodeHook()), yamlTags)
		return
	}

	resolved, err := filepath.Abs(cfgFile)
	if err != nil {
		configFileErr = fmt.Errorf("error while resolving config file path: %w", err)
		return
	}
	viper.SetConfigFile(resolved)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		configFileErr = fmt.Errorf("error while reading config file: %w", err)
		return
	}
	unmarshalErr = viper.Unmarshal(&MountConfig, viper.DecodeHook(cfg.DecodeHook()), yamlTags)
}

// yamlTags makes viper decode through the Config structs' yaml tags, which
// carry the hyphenated keys that BindFlags binds.
func yamlTags(dc *mapstructure.DecoderConfig) {
	dc.TagName = "yaml"
}
