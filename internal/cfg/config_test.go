// Copyright 2026 The Authors.
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

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidates(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidateRejectsNonPowerOfTwoPageSize(t *testing.T) {
	c := Default()
	c.VM.PageSize = 4000
	require.Error(t, c.Validate())
}

func TestValidateRejectsUnsupportedLavgPeriod(t *testing.T) {
	c := Default()
	c.Scheduler.LavgPeriodSec = 7
	require.Error(t, c.Validate())
}

func TestValidateRejectsInvertedNiceRange(t *testing.T) {
	c := Default()
	c.Scheduler.NiceMin = 20
	c.Scheduler.NiceMax = -20
	require.Error(t, c.Validate())
}

func TestBindFlagsAndResolveRoundTrip(t *testing.T) {
	v := viper.New()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	require.NoError(t, BindFlags(fs))
	require.NoError(t, v.BindPFlags(fs))
	require.NoError(t, fs.Parse([]string{"--scheduler.hz=250", "--logging.severity=debug"}))

	v.AutomaticEnv()
	for _, name := range []string{"scheduler.hz", "logging.severity"} {
		require.NoError(t, v.BindPFlag(name, fs.Lookup(name)))
	}

	cfg, err := Resolve(v)
	require.NoError(t, err)
	require.Equal(t, 250, cfg.Scheduler.HZ)
	require.Equal(t, "DEBUG", cfg.Logging.Severity)
	require.NoError(t, cfg.Validate())
}

func TestLavgPeriodDuration(t *testing.T) {
	c := Default()
	require.Equal(t, 5, int(c.LavgPeriod().Seconds()))
}
