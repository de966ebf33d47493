package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/geal-ai/bfieldmap"
)

var queryJSON bool

var queryCmd = &cobra.Command{
	Use:   "query <map> [x y z]",
	Short: "Print the field at a point, or at each x y z line read from stdin",
	Example: `  bfield query bfieldmap.data 0 0 0
  bfield query --json toroid.bfm 5000 0 8000
  printf '0 0 0\n6000 0 0\n' | bfield query bfieldmap.data`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 && len(args) != 4 {
			return fmt.Errorf("need a map and optionally x y z, got %d arguments", len(args))
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := openMap(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		q := m.NewQuery()
		out := cmd.OutOrStdout()
		if len(args) == 4 {
			xyz, err := parseXYZ(args[1:])
			if err != nil {
				return err
			}
			return printField(out, q, xyz)
		}

		sc := bufio.NewScanner(cmd.InOrStdin())
		line := 0
		for sc.Scan() {
			line++
			fields := strings.Fields(sc.Text())
			if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
				continue
			}
			if len(fields) != 3 {
				return fmt.Errorf("stdin line %d: want x y z, got %q", line, sc.Text())
			}
			xyz, err := parseXYZ(fields)
			if err != nil {
				return fmt.Errorf("stdin line %d: %w", line, err)
			}
			if err := printField(out, q, xyz); err != nil {
				return err
			}
		}
		return sc.Err()
	},
}

func init() {
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "print one JSON object per point")
}

// jsonField is one query result in JSON output.
type jsonField struct {
	X     float64    `json:"x"`
	Y     float64    `json:"y"`
	Z     float64    `json:"z"`
	B     [3]float64 `json:"b"` // tesla
	Total float64    `json:"total"`
	Zone  *int       `json:"zone,omitempty"`
}

func printField(w io.Writer, q *bfieldmap.Query, xyz [3]float64) error {
	b := toTesla(q.GetB(xyz, nil))
	total := math.Sqrt(b[0]*b[0] + b[1]*b[1] + b[2]*b[2])
	if queryJSON {
		out := jsonField{X: xyz[0], Y: xyz[1], Z: xyz[2], B: b, Total: total}
		if z := q.Zone(); z != nil {
			id := z.ID()
			out.Zone = &id
		}
		return json.NewEncoder(w).Encode(out)
	}
	_, err := fmt.Fprintf(w, "%10.2f %10.2f %10.2f  %12.6f %12.6f %12.6f  %12.6f T\n",
		xyz[0], xyz[1], xyz[2], b[0], b[1], b[2], total)
	return err
}

func parseXYZ(args []string) ([3]float64, error) {
	var xyz [3]float64
	for i, a := range args[:3] {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return xyz, fmt.Errorf("invalid coordinate %q: %w", a, err)
		}
		xyz[i] = v
	}
	return xyz, nil
}
