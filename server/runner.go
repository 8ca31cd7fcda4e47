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

package server

// Runner is responsible to run a component until it's stopped.
type Runner interface {
	// Run executes the component. It blocks until the component is stopped
	// by the Stop function, or until it fails.
	Run() error

	// Stop stops the component, unblocking the Run function.
	Stop()
}
