// Copyright 2022 The MaxMQ Authors
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

package cli

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/gsalomao/maxiot/retry"
	"github.com/spf13/cobra"
)

type planOptions struct {
	policy      string
	maxDuration uint32
	initialWait uint32
	jitter      uint32
	maxDelay    uint32
	step        uint32
	horizon     uint32
}

func newCommandPlan() *cobra.Command {
	opts := planOptions{}

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show retry plan",
		Long: "Show the times, in seconds since the first attempt, at which " +
			"a retry policy retries an operation",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCommandPlan(cmd.OutOrStdout(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.policy, "policy", "exponential_backoff_with_jitter",
		"Retry policy")
	f.Uint32Var(&opts.maxDuration, "max-duration", 300,
		"Retry budget in seconds (0 means retry forever)")
	f.Uint32Var(&opts.initialWait, "initial-wait",
		retry.DefaultInitialWaitSecs, "Initial wait in seconds")
	f.Uint32Var(&opts.jitter, "jitter", retry.DefaultMaxJitterPercent,
		"Maximum jitter in percent")
	f.Uint32Var(&opts.maxDelay, "max-delay", 0,
		"Maximum wait in seconds (0 means no cap)")
	f.Uint32Var(&opts.step, "step", 1,
		"Interval in seconds between evaluations")
	f.Uint32Var(&opts.horizon, "horizon", 300,
		"Number of seconds to simulate")

	return cmd
}

func runCommandPlan(out io.Writer, opts planOptions) error {
	policy, err := retry.ParsePolicy(opts.policy)
	if err != nil {
		return fmt.Errorf("%w: %s", err, opts.policy)
	}
	if opts.step == 0 {
		return errors.New("step must be greater than 0")
	}

	start := time.Unix(0, 0)
	now := start
	clock := retry.ClockFunc(func() (time.Time, error) { return now, nil })

	ctrl := retry.New(policy, opts.maxDuration, retry.WithClock(clock))
	values := map[string]uint32{
		retry.OptionInitialWaitTime:  opts.initialWait,
		retry.OptionMaxJitterPercent: opts.jitter,
		retry.OptionMaxDelay:         opts.maxDelay,
	}
	for _, name := range []string{retry.OptionInitialWaitTime,
		retry.OptionMaxJitterPercent, retry.OptionMaxDelay} {

		if err = ctrl.SetOption(name, values[name]); err != nil {
			return err
		}
	}

	tw := tabwriter.NewWriter(out, 2, 1, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ATTEMPT\tTIME\tNEXT WAIT\tACTION")

	step := time.Duration(opts.step) * time.Second
	horizon := start.Add(time.Duration(opts.horizon) * time.Second)

	for ; !now.After(horizon); now = now.Add(step) {
		act, err := ctrl.ShouldRetry()
		if err != nil {
			return err
		}

		elapsed := now.Sub(start).Seconds()
		if act == retry.ActionStopRetrying {
			_, _ = fmt.Fprintf(tw, "-\t%.0fs\t-\t%s\n", elapsed, act)
			break
		}
		if act == retry.ActionRetryNow {
			_, _ = fmt.Fprintf(tw, "%d\t%.0fs\t%s\t%s\n", ctrl.RetryCount(),
				elapsed, ctrl.NextWait().Round(time.Millisecond), act)
		}
	}

	return tw.Flush()
}
