// Webrtxc is the host-side preprocessing driver: it rewrites ray-tracing
// GLSL shaders and builds flattened BLAS/TLAS node arrays from YAML job
// descriptions, producing the artifacts the runtime uploads to the GPU.
//
// Run "webrtxc help" for a list of commands.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/codedhead/webrtx/shader"
)

func main() {
	root := &cobra.Command{
		Use:           "webrtxc",
		Short:         "preprocess ray-tracing shaders and acceleration structures",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	var verbose bool
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if verbose {
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			})))
		}
	}
	root.AddCommand(processCmd(), blasCmd(), tlasCmd())
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "webrtxc:", err)
		os.Exit(1)
	}
}

func processCmd() *cobra.Command {
	var jobPath string
	cmd := &cobra.Command{
		Use:   "process --job job.yaml",
		Short: "rewrite the ray-tracing shaders listed in a job file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(jobPath)
		},
	}
	cmd.Flags().StringVar(&jobPath, "job", "", "YAML job file listing shaders to rewrite")
	cmd.MarkFlagRequired("job")
	return cmd
}

func blasCmd() *cobra.Command {
	var scenePath, outPath string
	cmd := &cobra.Command{
		Use:   "blas --scene scene.yaml --out nodes.bin",
		Short: "build a bottom-level acceleration structure",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(scenePath, outPath, false)
		},
	}
	cmd.Flags().StringVar(&scenePath, "scene", "", "YAML scene description")
	cmd.Flags().StringVar(&outPath, "out", "", "output file for the serialized node array")
	cmd.MarkFlagRequired("scene")
	cmd.MarkFlagRequired("out")
	return cmd
}

func tlasCmd() *cobra.Command {
	var scenePath, outPath string
	cmd := &cobra.Command{
		Use:   "tlas --scene scene.yaml --out nodes.bin",
		Short: "build a top-level acceleration structure",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(scenePath, outPath, true)
		},
	}
	cmd.Flags().StringVar(&scenePath, "scene", "", "YAML scene description")
	cmd.Flags().StringVar(&outPath, "out", "", "output file for the serialized node array")
	cmd.MarkFlagRequired("scene")
	cmd.MarkFlagRequired("out")
	return cmd
}

func builtinNames(builtins []shader.BuiltIn) []string {
	names := make([]string, len(builtins))
	for i, b := range builtins {
		names[i] = b.Name()
	}
	return names
}
