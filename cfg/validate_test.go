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
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	return &Config{
		MySQL: MySQLConfig{
			Host:     "localhost",
			Port:     3306,
			User:     "root",
			Database: "mysqlfs",
		},
		Pool:    GetDefaultPoolConfig(),
		Logging: GetDefaultLoggingConfig(),
	}
}

func TestValidateConfig_Valid(t *testing.T) {
	assert.NoError(t, ValidateConfig(validConfig()))
}

func TestValidateConfig_RequiresHostOrSocket(t *testing.T) {
	c := validConfig()
	c.MySQL.Host = ""
	assert.Error(t, ValidateConfig(c))

	c.MySQL.Socket = "/tmp/mysql.sock"
	assert.NoError(t, ValidateConfig(c))
}

func TestValidateConfig_RequiresUserAndDatabase(t *testing.T) {
	c := validConfig()
	c.MySQL.User = ""
	assert.Error(t, ValidateConfig(c))

	c = validConfig()
	c.MySQL.Database = ""
	assert.Error(t, ValidateConfig(c))
}

func TestValidateConfig_PortRange(t *testing.T) {
	c := validConfig()
	c.MySQL.Port = 70000
	assert.Error(t, ValidateConfig(c))
}

func TestValidateConfig_PoolBounds(t *testing.T) {
	c := validConfig()
	c.Pool.MaxIdlingConns = 100
	c.Pool.MaxOpenConns = 10
	assert.Error(t, ValidateConfig(c))

	c = validConfig()
	c.Pool.InitConns = -1
	assert.Error(t, ValidateConfig(c))
}

func TestValidateConfig_LogFormat(t *testing.T) {
	c := validConfig()
	c.Logging.Format = "xml"
	assert.Error(t, ValidateConfig(c))
}
