package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/geal-ai/bfieldmap"
)

var (
	appendMesh string
	appendID   int
	appendBS   float64
)

var convertCmd = &cobra.Command{
	Use:   "convert <in> <out>",
	Short: "Convert a map to the binary record format (.bfm) or a SQLite store (.db)",
	Long: `convert reads a map in any supported format and writes it as a binary
record file, or as a SQLite store when <out> ends in .db.

With --append-mesh, a float-sampled mesh is quantized with --bscale and
appended as a new zone with id --zone-id before writing. Zones appended
later take precedence where they overlap existing ones.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		m, err := openMap(ctx, args[0])
		if err != nil {
			return err
		}
		if appendMesh != "" {
			if m, err = appendZone(m); err != nil {
				return err
			}
		}
		if err := writeMap(ctx, m, args[1]); err != nil {
			return err
		}
		log.Info().Str("path", args[1]).Int("zones", m.NZone()).Msg("field map written")
		return nil
	},
}

func init() {
	convertCmd.Flags().StringVar(&appendMesh, "append-mesh", "", "float mesh file to append as a new zone")
	convertCmd.Flags().IntVar(&appendID, "zone-id", 7000, "id of the appended zone")
	convertCmd.Flags().Float64Var(&appendBS, "bscale", 1e-7, "field scale of the appended zone, kT per count")
}

// appendZone returns a new map holding m's zones plus the quantized mesh.
func appendZone(m *bfieldmap.Map) (*bfieldmap.Map, error) {
	f, err := os.Open(appendMesh)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	mesh, err := bfieldmap.ReadFloatMesh(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", appendMesh, err)
	}
	zone, err := bfieldmap.QuantizeZone(appendID, mesh, appendBS)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", appendMesh, err)
	}

	recs := m.Records()
	out := bfieldmap.New(mapOptions()...)
	out.AppendZone(zone)
	recs = append(recs, out.Records()...)
	log.Info().Int("zone", appendID).Int("samples", zone.NField()).Msg("zone appended")
	return bfieldmap.FromRecords(recs, mapOptions()...)
}
