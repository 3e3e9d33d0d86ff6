// Copyright 2024 Google LLC
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

// DSN builds the go-sql-driver/mysql data source name for config.MySQL.
// Socket takes precedence over Host:Port when both are set, matching the
// original mount option precedence (explicit socket wins).
func (c *MySQLConfig) DSN() string {
	addr := fmt.Sprintf("tcp(%s:%d)", c.Host, c.Port)
	if c.Socket != "" {
		addr = fmt.Sprintf("unix(%s)", c.Socket)
	}
	return fmt.Sprintf("%s:%s@%s/%s?parseTime=false&interpolateParams=false", c.User, c.Password, addr, c.Database)
}
