/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"os"
	"path/filepath"
	"time"
)

import (
	"github.com/creasty/defaults"

	"github.com/go-playground/validator/v10"

	"github.com/pkg/errors"

	"gopkg.in/yaml.v3"
)

import (
	"github.com/arana-db/trxmgr/pkg/util/file"
	"github.com/arana-db/trxmgr/pkg/util/log"
)

type (
	// Bootstrap is the root of the bootstrap yaml file.
	Bootstrap struct {
		Registry *Registry         `validate:"required" yaml:"registry" json:"registry"`
		Logging  *log.LoggingConfig `yaml:"logging" json:"logging"`
		Metric   *Metric            `yaml:"metric" json:"metric"`
		Trace    *Trace             `yaml:"trace" json:"trace"`
		Admin    *Admin             `yaml:"admin" json:"admin"`
		Cluster  *Cluster           `yaml:"cluster" json:"cluster"`
	}

	// Registry tunes the managed transaction registry.
	Registry struct {
		// Buckets is the number of independently locked partitions, must be a power of two.
		Buckets              int           `default:"16" validate:"min=1,max=1024" yaml:"buckets" json:"buckets"`
		IdleTTL              time.Duration `default:"10s" validate:"gt=0" yaml:"idle_ttl" json:"idle_ttl"`
		FollowerTTL          time.Duration `default:"3m" validate:"gt=0" yaml:"follower_ttl" json:"follower_ttl"`
		TombstoneTTL         time.Duration `default:"10m" validate:"gt=0" yaml:"tombstone_ttl" json:"tombstone_ttl"`
		StatusChangeTimeout  time.Duration `default:"3s" validate:"gt=0" yaml:"status_change_timeout" json:"status_change_timeout"`
		StatusChangeInterval time.Duration `default:"50ms" validate:"gt=0" yaml:"status_change_interval" json:"status_change_interval"`
		GCInterval           time.Duration `default:"2s" validate:"gt=0" yaml:"gc_interval" json:"gc_interval"`
	}

	Metric struct {
		Enable  bool   `yaml:"enable" json:"enable"`
		Type    string `default:"prometheus" yaml:"type" json:"type"`
		Address string `default:":9100" yaml:"address" json:"address"`
	}

	Trace struct {
		Enable  bool   `yaml:"enable" json:"enable"`
		Type    string `default:"jaeger" yaml:"type" json:"type"`
		Address string `yaml:"address" json:"address"`
	}

	Admin struct {
		Enable  bool   `default:"true" yaml:"enable" json:"enable"`
		Address string `default:":8529" yaml:"address" json:"address"`

		// Auth enables token authentication of the admin API when set.
		Auth *AdminAuth `yaml:"auth" json:"auth"`
	}

	AdminAuth struct {
		Realm    string        `default:"trxmgr" yaml:"realm" json:"realm"`
		Secret   string        `validate:"required" yaml:"secret" json:"secret"`
		Username string        `validate:"required" yaml:"username" json:"username"`
		Password string        `validate:"required" yaml:"password" json:"password"`
		Timeout  time.Duration `default:"1h" yaml:"timeout" json:"timeout"`
	}

	// Cluster configures coordinator membership, used for failure guards and fan-out.
	Cluster struct {
		Enable      bool          `yaml:"enable" json:"enable"`
		Endpoints   []string      `validate:"required_if=Enable true" yaml:"endpoints" json:"endpoints"`
		Prefix      string        `default:"/trxmgr/coordinators" yaml:"prefix" json:"prefix"`
		ServerID    string        `yaml:"server_id" json:"server_id"`
		Advertise   string        `yaml:"advertise" json:"advertise"`
		DialTimeout time.Duration `default:"5s" yaml:"dial_timeout" json:"dial_timeout"`
		LeaseTTL    int64         `default:"10" validate:"min=1" yaml:"lease_ttl" json:"lease_ttl"`
	}
)

// NewBootstrap returns a Bootstrap with every section present and defaulted.
func NewBootstrap() *Bootstrap {
	b := &Bootstrap{}
	_ = b.fill()
	return b
}

func (b *Bootstrap) fill() error {
	if b.Registry == nil {
		b.Registry = &Registry{}
	}
	if b.Logging == nil {
		b.Logging = &log.LoggingConfig{}
	}
	if b.Metric == nil {
		b.Metric = &Metric{}
	}
	if b.Trace == nil {
		b.Trace = &Trace{}
	}
	if b.Admin == nil {
		b.Admin = &Admin{}
	}
	if b.Cluster == nil {
		b.Cluster = &Cluster{}
	}
	targets := []interface{}{b.Registry, b.Logging, b.Metric, b.Trace, b.Admin, b.Cluster}
	if b.Admin.Auth != nil {
		targets = append(targets, b.Admin.Auth)
	}
	for _, it := range targets {
		if err := defaults.Set(it); err != nil {
			return errors.Wrap(err, "failed to set config defaults")
		}
	}
	return nil
}

// Load reads, defaults and validates the bootstrap file at path.
func Load(path string) (*Bootstrap, error) {
	if !file.IsYaml(path) {
		return nil, errors.Errorf("invalid config file format: %s", filepath.Ext(path))
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load config")
	}
	return Parse(content)
}

// Parse decodes a bootstrap document.
func Parse(content []byte) (*Bootstrap, error) {
	var cfg Bootstrap
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := cfg.fill(); err != nil {
		return nil, err
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate validates the input configuration.
func Validate(cfg *Bootstrap) error {
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return errors.Wrap(err, "invalid bootstrap config")
	}
	if n := cfg.Registry.Buckets; n&(n-1) != 0 {
		return errors.Errorf("invalid bootstrap config: buckets must be a power of two, got %d", n)
	}
	return nil
}
