package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/geal-ai/bfieldmap"
)

var infoCmd = &cobra.Command{
	Use:   "info <map>",
	Short: "Print the zone table of a map",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := openMap(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(tw, "id\tz [mm]\tr [mm]\tphi [deg]\tgrid\tconductors\tscale [T]\t")
		samples, conds := 0, 0
		for _, z := range m.Zones() {
			fmt.Fprintf(tw, "%d\t%.1f..%.1f\t%.1f..%.1f\t%.2f..%.2f\t%dx%dx%d\t%d\t%.3g\t\n",
				z.ID(),
				z.Min(bfieldmap.AxisZ), z.Max(bfieldmap.AxisZ),
				z.Min(bfieldmap.AxisR), z.Max(bfieldmap.AxisR),
				z.Min(bfieldmap.AxisPhi)/bfieldmap.Degree, z.Max(bfieldmap.AxisPhi)/bfieldmap.Degree,
				z.NMesh(bfieldmap.AxisZ), z.NMesh(bfieldmap.AxisR), z.NMesh(bfieldmap.AxisPhi),
				z.NConductor(), z.Scale()/bfieldmap.Tesla)
			samples += z.NField()
			conds += z.NConductor()
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "\n%d zones, %d samples, %d conductors\n",
			m.NZone(), samples, conds)
		return err
	},
}
