package main

import (
	"fmt"
	"io"

	"gonum.org/v1/gonum/stat"

	"github.com/zdelv/qoi-parser/qoi"
)

type channelStats struct {
	Name      string
	Mean, Std float64
}

// pixelStats returns the mean and standard deviation of every channel.
func pixelStats(pixels []qoi.Pixel) [4]channelStats {
	var ch [4][]float64
	for i := range ch {
		ch[i] = make([]float64, len(pixels))
	}
	for i, p := range pixels {
		ch[0][i] = float64(p.R)
		ch[1][i] = float64(p.G)
		ch[2][i] = float64(p.B)
		ch[3][i] = float64(p.A)
	}

	out := [4]channelStats{{Name: "r"}, {Name: "g"}, {Name: "b"}, {Name: "a"}}
	if len(pixels) == 0 {
		return out
	}
	for i := range out {
		out[i].Mean, out[i].Std = stat.MeanStdDev(ch[i], nil)
	}
	return out
}

func printStats(w io.Writer, pixels []qoi.Pixel) {
	for _, s := range pixelStats(pixels) {
		fmt.Fprintf(w, "%s: mean %.3f, std %.3f\n", s.Name, s.Mean, s.Std)
	}
}
