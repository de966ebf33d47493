package main

import (
	"fmt"
	"math"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/geal-ai/bfieldmap"
)

var compareCmd = &cobra.Command{
	Use:   "compare <mapA> <mapB>",
	Short: "Report the relative field difference of two maps over an x-y plane",
	Long: `compare samples both maps on a square grid in the x-y plane at
compare.z, spanning ±compare.extent mm with compare.points points per side,
and reports the largest and mean of |B_A - B_B| / |B_A|.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openMap(ctx, args[0])
		if err != nil {
			return err
		}
		b, err := openMap(ctx, args[1])
		if err != nil {
			return err
		}
		d := compareMaps(a, b, cfg.Compare.Points, cfg.Compare.Extent, cfg.Compare.Z)
		_, err = fmt.Fprintf(cmd.OutOrStdout(),
			"points %d  max %.3e at (%.1f, %.1f, %.1f)  mean %.3e\n",
			d.n, d.max, d.at[0], d.at[1], d.at[2], d.mean())
		return err
	},
}

// diff accumulates relative field differences.
type diff struct {
	n   int
	sum float64
	max float64
	at  [3]float64
}

func (d *diff) add(xyz [3]float64, ba, bb [3]float64) {
	na := math.Sqrt(ba[0]*ba[0] + ba[1]*ba[1] + ba[2]*ba[2])
	if na == 0 {
		return
	}
	dx, dy, dz := ba[0]-bb[0], ba[1]-bb[1], ba[2]-bb[2]
	rel := math.Sqrt(dx*dx+dy*dy+dz*dz) / na
	d.n++
	d.sum += rel
	if rel > d.max {
		d.max, d.at = rel, xyz
	}
}

func (d *diff) merge(o diff) {
	d.n += o.n
	d.sum += o.sum
	if o.max > d.max {
		d.max, d.at = o.max, o.at
	}
}

func (d *diff) mean() float64 {
	if d.n == 0 {
		return 0
	}
	return d.sum / float64(d.n)
}

// compareMaps scans an n x n grid. Rows are shared out between goroutines,
// each with its own pair of queries.
func compareMaps(a, b *bfieldmap.Map, n int, extent, z float64) diff {
	step := 2 * extent / float64(n-1)
	rows := make([]diff, n)

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range n {
		g.Go(func() error {
			qa, qb := a.NewQuery(), b.NewQuery()
			y := -extent + float64(i)*step
			for j := range n {
				xyz := [3]float64{-extent + float64(j)*step, y, z}
				rows[i].add(xyz, qa.GetB(xyz, nil), qb.GetB(xyz, nil))
			}
			return nil
		})
	}
	_ = g.Wait()

	var total diff
	for _, r := range rows {
		total.merge(r)
	}
	log.Debug().Int("rows", n).Int("points", total.n).Msg("compare scan done")
	return total
}
