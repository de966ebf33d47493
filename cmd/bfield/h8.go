package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/geal-ai/bfieldmap"
)

var h8Offset []float64

var h8Cmd = &cobra.Command{
	Use:   "h8 <file> <x> <y> <z>",
	Short: "Print the field of an H8 test-beam map at a point",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		xyz, err := parseXYZ(args[1:])
		if err != nil {
			return err
		}
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		m, err := bfieldmap.ReadH8Map(f)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		if len(h8Offset) > 0 {
			if len(h8Offset) != 3 {
				return fmt.Errorf("--offset needs 3 values, got %d", len(h8Offset))
			}
			for i := range m.NGrid() {
				m.Grid(i).SetOffset([3]float64{h8Offset[0], h8Offset[1], h8Offset[2]})
			}
		}
		log.Debug().Int("grids", m.NGrid()).Msg("h8 map loaded")

		var deriv [9]float64
		b := toTesla(m.GetB(xyz, &deriv))
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "B = (%.6f, %.6f, %.6f) T\n", b[0], b[1], b[2])
		for i := range 3 {
			fmt.Fprintf(out, "grad B%c = (%.6g, %.6g, %.6g) T/m\n", "xyz"[i],
				deriv[3*i]/bfieldmap.Tesla*bfieldmap.Meter,
				deriv[3*i+1]/bfieldmap.Tesla*bfieldmap.Meter,
				deriv[3*i+2]/bfieldmap.Tesla*bfieldmap.Meter)
		}
		return nil
	},
}

func init() {
	h8Cmd.Flags().Float64SliceVar(&h8Offset, "offset", nil, "grid offset x,y,z in mm")
}
