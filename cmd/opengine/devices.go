package main

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/born-ml/opengine/internal/backend/gpu"
	"github.com/born-ml/opengine/internal/backend/simd"
	"github.com/spf13/cobra"
)

func newDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "Show host SIMD features and GPU runtime availability",
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			f32, f64 := simd.Lanes()
			features := strings.Join(simd.Features(), " ")
			if features == "" {
				features = "none"
			}

			fmt.Fprintf(w, "Platform:       %s/%s (%d CPUs)\n", runtime.GOOS, runtime.GOARCH, runtime.NumCPU())
			fmt.Fprintf(w, "Configured:     %s\n", activeCfg.Runtime.Device)
			fmt.Fprintf(w, "SIMD features:  %s\n", features)
			fmt.Fprintf(w, "SIMD lanes:     float32=%d float64=%d\n", f32, f64)
			for _, name := range []string{gpu.RuntimeSoftware, gpu.RuntimeWebGPU} {
				status := "unavailable"
				if gpu.Available(name) {
					status = "available"
				}
				fmt.Fprintf(w, "GPU %-11s %s\n", name+":", status)
			}
			return nil
		},
	}
}
