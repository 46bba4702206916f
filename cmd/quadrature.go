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
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gosn/quadrature"
	"github.com/notargets/gosn/types"
)

// QuadratureCmd represents the quadrature command
var QuadratureCmd = &cobra.Command{
	Use:   "quadrature",
	Short: "Print the directions, polar levels and moment operators of an angular quadrature",
	Long: `Builds an angular quadrature through the registry and prints its
directions, the curvilinear diamond difference and streaming factors of each
polar level, and optionally the moment-to-discrete and discrete-to-moment
operators.`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		var (
			spec   quadrature.Spec
			family string
			system string
		)
		flags := cmd.Flags()
		family, _ = flags.GetString("family")
		system, _ = flags.GetString("system")
		spec.Dimension, _ = flags.GetInt("dimension")
		spec.ScatteringOrder, _ = flags.GetInt("order")
		spec.NPolar, _ = flags.GetInt("npolar")
		spec.NAzimuthal, _ = flags.GetInt("nazimuthal")
		spec.PolarSymmetry, _ = flags.GetBool("polarSymmetry")
		showOps, _ := flags.GetBool("operators")
		if spec.Family, err = quadrature.ParseFamily(family); err != nil {
			return
		}
		if spec.CoordinateSystem, err = types.ParseCoordinateSystem(system); err != nil {
			return
		}
		logger, err := newLogger()
		if err != nil {
			return
		}
		defer func() { _ = logger.Sync() }()
		reg := quadrature.NewRegistry(logger)
		h, err := reg.Register(spec)
		if err != nil {
			return
		}
		q, _ := reg.Get(h)
		op, _ := reg.Operators(h)
		PrintQuadrature(cmd.OutOrStdout(), q, op, showOps)
		return
	},
}

func init() {
	rootCmd.AddCommand(QuadratureCmd)
	QuadratureCmd.Flags().StringP("family", "f", "gl", "quadrature family: gl, gll, glc")
	QuadratureCmd.Flags().StringP("system", "s", "cartesian", "coordinate system: cartesian, rz, spherical")
	QuadratureCmd.Flags().IntP("dimension", "d", 1, "spatial dimension of the operators")
	QuadratureCmd.Flags().IntP("order", "l", 0, "scattering order")
	QuadratureCmd.Flags().IntP("npolar", "n", 2, "number of polar angles (per hemisphere for gl)")
	QuadratureCmd.Flags().IntP("nazimuthal", "a", 0, "number of azimuthal angles")
	QuadratureCmd.Flags().Bool("polarSymmetry", false, "keep only upward directions (2D Cartesian)")
	QuadratureCmd.Flags().Bool("operators", false, "print the M2D and D2M operators")
}

func PrintQuadrature(w io.Writer, q *quadrature.Quadrature, op *quadrature.Operators, showOps bool) {
	fmt.Fprintf(w, "%s (%v), %d directions, weight sum %.12f\n",
		q.Name, q.System, q.NumDirections(), q.WeightSum())
	fmt.Fprintf(w, "%5s %14s %14s %14s %14s %12s %12s\n",
		"d", "weight", "Omega.x", "Omega.y", "Omega.z", "phi", "theta")
	for _, dir := range q.Directions {
		fmt.Fprintf(w, "%5d %14.8e %14.8f %14.8f %14.8f %12.8f %12.8f\n",
			dir.Index, dir.Weight, dir.Omega.X, dir.Omega.Y, dir.Omega.Z, dir.Phi, dir.Theta)
	}
	if q.System.IsCurvilinear() {
		for l, pl := range q.Levels {
			fmt.Fprintf(w, "level %d\n", l)
			for p, d := range pl.Directions {
				fmt.Fprintf(w, "%5d %14.8f %14.8f\n", d, pl.DiamondDifference[p], pl.StreamingOperator[p])
			}
		}
	}
	if op == nil {
		return
	}
	fmt.Fprintf(w, "moments (scattering order %d, dimension %d):", op.ScatteringOrder, op.Dimension)
	for _, mi := range op.MomentMap {
		fmt.Fprintf(w, " (%d,%d)", mi.Ell, mi.M)
	}
	fmt.Fprintln(w)
	if showOps {
		fmt.Fprintf(w, "M2D = %v\n", mat.Formatted(op.M2D, mat.Prefix("      "), mat.Squeeze()))
		fmt.Fprintf(w, "D2M = %v\n", mat.Formatted(op.D2M, mat.Prefix("      "), mat.Squeeze()))
	}
}
