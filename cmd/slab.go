/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/notargets/gosn/InputParameters"
	"github.com/notargets/gosn/solver"
	"github.com/notargets/gosn/utils"
)

var exampleSlabFile = `
########################################
Title: "Source in a scattering slab"
CoordinateSystem: slab      # or rz, spherical
Axes:
  - Min: 0
    Max: 1
    Cells: 20
Partitions: 2
Quadrature:
  Family: gl                # gll, glc for product quadratures
  NPolar: 4
  NAzimuthal: 0
ScatteringOrder: 0
Materials:
  - Name: scatterer
    SigmaT: [1.0]
    Transfer: [[[0.5]]]     # [moment][to group][from group]
  - Name: source
    SigmaT: [1.0]
    Transfer: [[[0.5]]]
    Source: [1.0]
Regions:
  - Material: 1
    Min: [0]
    Max: [0.5]
BCs:
  zmin:
    Type: reflecting
  zmax:
    Type: vacuum
Tolerance: 1.e-8
MaxIterations: 200
ReflectingSweeps: 4
########################################
`

// SlabCmd represents the slab command
var SlabCmd = &cobra.Command{
	Use:   "slab",
	Short: "Fixed source transport on an orthogonal mesh described by a YAML file",
	Long: `Reads a YAML problem file, runs Richardson source iteration with parallel
sweeps until converged and reports the particle balance.`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		var (
			sp     *InputParameters.SlabParameters
			logger *zap.Logger
		)
		inputFile := viper.GetString("input")
		if len(inputFile) == 0 {
			fmt.Printf("Example File:%s\n", exampleSlabFile)
			return fmt.Errorf("must supply an input parameters file (-I, --inputConditionsFile)")
		}
		if sp, err = readSlabParameters(inputFile); err != nil {
			return
		}
		if np := viper.GetInt("partitions"); np > 0 {
			sp.Partitions = np
		}
		if viper.GetBool("print") {
			sp.Print()
		}
		if logger, err = newLogger(); err != nil {
			return
		}
		defer func() { _ = logger.Sync() }()
		if viper.GetBool("profile") {
			defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		var res solver.Result
		if res, _, err = RunSlab(ctx, sp, logger); err != nil {
			return
		}
		if res.Status != solver.StatusConverged {
			return fmt.Errorf("%v after %d iterations, change %.3e", res.Status, res.Iterations, res.Change)
		}
		return
	},
}

func init() {
	rootCmd.AddCommand(SlabCmd)
	SlabCmd.Flags().StringP("inputConditionsFile", "I", "", "YAML file for problem parameters like:\n\t- mesh axes and partitions\n\t- quadrature, materials and boundaries")
	SlabCmd.Flags().IntP("partitions", "p", 0, "number of mesh partitions, overrides the input file when positive")
	SlabCmd.Flags().Bool("profile", false, "write a CPU profile to the working directory")
	SlabCmd.Flags().Bool("print", true, "print the input parameters")
	_ = viper.BindPFlag("input", SlabCmd.Flags().Lookup("inputConditionsFile"))
	_ = viper.BindPFlag("partitions", SlabCmd.Flags().Lookup("partitions"))
	_ = viper.BindPFlag("profile", SlabCmd.Flags().Lookup("profile"))
	_ = viper.BindPFlag("print", SlabCmd.Flags().Lookup("print"))
}

func readSlabParameters(path string) (sp *InputParameters.SlabParameters, err error) {
	var data []byte
	if path, err = expandPath(path); err != nil {
		return
	}
	if data, err = os.ReadFile(path); err != nil {
		return
	}
	sp = &InputParameters.SlabParameters{}
	if err = sp.Parse(data); err != nil {
		return nil, err
	}
	return
}

// RunSlab assembles the problem, iterates it and logs the balance of the
// last iterate
func RunSlab(ctx context.Context, sp *InputParameters.SlabParameters, logger *zap.Logger) (res solver.Result, b solver.Balance, err error) {
	var pb *solver.Problem
	if pb, err = sp.Problem(logger); err != nil {
		return
	}
	r := sp.Richardson(pb, logger)
	if res, err = r.Run(ctx, sp.MaxIterations, nil); err != nil {
		return
	}
	logger.Info("source iteration finished",
		zap.String("title", sp.Title),
		zap.Stringer("status", res.Status),
		zap.Int("iterations", res.Iterations),
		zap.Float64("change", res.Change))
	b = pb.Balance(r.PhiOld, r.Psi)
	b.Log(logger)
	logger.Debug("memory", zap.String("usage", utils.GetMemUsage()))
	return
}
