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

// Command binparser converts between binary files and their YAML
// representation, driven by a structure and a types description.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	binparser "github.com/jfjlaros/bin-parser"
	"github.com/jfjlaros/bin-parser/internal/skeleton"
	"github.com/jfjlaros/bin-parser/internal/yamlcmp"
)

var (
	debugLevel int
	prune      bool
)

func main() {
	root := &cobra.Command{
		Use:           "binparser",
		Short:         "General binary file parser",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if debugLevel != 0 {
				logrus.SetLevel(logrus.DebugLevel)
			}
		},
	}
	root.PersistentFlags().IntVarP(&debugLevel, "debug", "d", 0, "debugging level (bit 0x01 cache dump, bit 0x02 field trace)")

	readCmd := &cobra.Command{
		Use:   "read INPUT STRUCTURE TYPES OUTPUT",
		Short: "Convert a binary file to YAML",
		Args:  cobra.ExactArgs(4),
		RunE: func(_ *cobra.Command, args []string) error {
			return runRead(args[0], args[1], args[2], args[3])
		},
	}
	readCmd.Flags().BoolVar(&prune, "prune", false, "remove all unknown data fields from the output")

	writeCmd := &cobra.Command{
		Use:   "write INPUT STRUCTURE TYPES OUTPUT",
		Short: "Convert a YAML file to binary",
		Args:  cobra.ExactArgs(4),
		RunE: func(_ *cobra.Command, args []string) error {
			return runWrite(args[0], args[1], args[2], args[3])
		},
	}

	var delimiter hexBytes
	skeletonCmd := &cobra.Command{
		Use:   "skeleton INPUT STRUCTURE TYPES",
		Short: "Derive a rudimentary description pair from an example file",
		Args:  cobra.ExactArgs(3),
		RunE: func(_ *cobra.Command, args []string) error {
			return runSkeleton(args[0], args[1], args[2], delimiter)
		},
	}
	skeletonCmd.Flags().VarP(&delimiter, "delimiter", "s", "delimiter byte in hex (repeat for multi byte delimiters)")

	compareCmd := &cobra.Command{
		Use:   "compare FILE1 FILE2",
		Short: "Compare two YAML files structurally",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return runCompare(args[0], args[1])
		},
	}

	root.AddCommand(readCmd, writeCmd, skeletonCmd, compareCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "binparser: %v\n", err)
		os.Exit(1)
	}
}

// loadDescriptions reads the structure and types files.
func loadDescriptions(structureFile, typesFile string) (binparser.Structure, *binparser.Types, error) {
	sf, err := os.Open(structureFile)
	if err != nil {
		return nil, nil, err
	}
	defer sf.Close()
	structure, err := binparser.LoadStructure(sf)
	if err != nil {
		return nil, nil, err
	}

	tf, err := os.Open(typesFile)
	if err != nil {
		return nil, nil, err
	}
	defer tf.Close()
	types, err := binparser.LoadTypes(tf)
	if err != nil {
		return nil, nil, err
	}
	return structure, types, nil
}

func runRead(inputFile, structureFile, typesFile, outputFile string) error {
	data, err := os.ReadFile(inputFile)
	if err != nil {
		return err
	}
	structure, types, err := loadDescriptions(structureFile, typesFile)
	if err != nil {
		return err
	}

	result, err := binparser.Read(data, structure, types,
		binparser.WithPrune(prune), binparser.WithDebug(debugLevel))
	if err != nil {
		return err
	}

	out, err := os.Create(outputFile)
	if err != nil {
		return err
	}
	defer out.Close()
	encoder := yaml.NewEncoder(out)
	encoder.SetIndent(2)
	if err := encoder.Encode(result.Parsed); err != nil {
		return err
	}
	return encoder.Close()
}

func runWrite(inputFile, structureFile, typesFile, outputFile string) error {
	source, err := os.ReadFile(inputFile)
	if err != nil {
		return err
	}
	var parsed map[string]any
	if err := yaml.Unmarshal(source, &parsed); err != nil {
		return errors.Wrap(err, "loading parsed representation")
	}
	structure, types, err := loadDescriptions(structureFile, typesFile)
	if err != nil {
		return err
	}

	data, err := binparser.Write(parsed, structure, types, binparser.WithDebug(debugLevel))
	if err != nil {
		return err
	}
	return os.WriteFile(outputFile, data, 0o644)
}

func runSkeleton(inputFile, structureFile, typesFile string, delimiter []byte) error {
	data, err := os.ReadFile(inputFile)
	if err != nil {
		return err
	}

	structure, err := yaml.Marshal(skeleton.Structure(data, delimiter))
	if err != nil {
		return err
	}
	if err := os.WriteFile(structureFile, append([]byte("---\n"), structure...), 0o644); err != nil {
		return err
	}

	types, err := yaml.Marshal(skeleton.Types(delimiter))
	if err != nil {
		return err
	}
	return os.WriteFile(typesFile, append([]byte("---\n"), types...), 0o644)
}

func runCompare(file1, file2 string) error {
	load := func(name string) (any, error) {
		data, err := os.ReadFile(name)
		if err != nil {
			return nil, err
		}
		var document any
		if err := yaml.Unmarshal(data, &document); err != nil {
			return nil, errors.Wrapf(err, "loading %s", name)
		}
		return document, nil
	}

	a, err := load(file1)
	if err != nil {
		return err
	}
	b, err := load(file2)
	if err != nil {
		return err
	}

	diffs := yamlcmp.Diff(a, b)
	for _, line := range diffs {
		fmt.Println(line)
	}
	if len(diffs) > 0 {
		return errors.Errorf("%d difference(s)", len(diffs))
	}
	return nil
}

// hexBytes collects repeated hex byte flags into a delimiter.
type hexBytes []byte

var _ pflag.Value = (*hexBytes)(nil)

func (h *hexBytes) String() string {
	return fmt.Sprintf("% x", []byte(*h))
}

func (h *hexBytes) Set(value string) error {
	n, err := strconv.ParseUint(value, 16, 8)
	if err != nil {
		return errors.Wrapf(err, "delimiter byte %q", value)
	}
	*h = append(*h, byte(n))
	return nil
}

func (h *hexBytes) Type() string {
	return "byte"
}
