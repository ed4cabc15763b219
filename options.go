// Copyright 2020-2025 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package binparser

import "github.com/sirupsen/logrus"

// Option is a configuration setting for [Read] and [Write].
type Option struct{ apply func(*options) }

type options struct {
	funcs  *Registry
	prune  bool
	debug  int
	logger *logrus.Logger
}

func newOptions(opts []Option) *options {
	o := &options{
		funcs:  NewRegistry(),
		logger: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		if opt.apply != nil {
			opt.apply(o)
		}
	}
	return o
}

// WithFunctions supplies a codec registry, replacing the default one.
// Use this to register additional codec pairs or override built-ins.
func WithFunctions(registry *Registry) Option {
	return Option{func(o *options) { o.funcs = registry }}
}

// WithPrune drops unknown data fields from the output instead of queueing
// them under the unknown destination. A pruned tree no longer carries
// enough information to be written back.
//
// Reading only; [Write] ignores it.
func WithPrune(prune bool) Option {
	return Option{func(o *options) { o.prune = prune }}
}

// WithDebug sets the debugging level. Bit 0x01 dumps the internal cache
// after the walk; bit 0x02 traces individual field reads and writes. Any
// other bit is rejected.
//
// Debug output is emitted at debug level on the configured logger.
func WithDebug(level int) Option {
	return Option{func(o *options) { o.debug = level }}
}

// WithLogger routes the walk's warnings and debug output through the given
// logger instead of the standard one. Deprecation warnings of the
// deprecated codecs always go to the standard logger.
func WithLogger(logger *logrus.Logger) Option {
	return Option{func(o *options) { o.logger = logger }}
}
