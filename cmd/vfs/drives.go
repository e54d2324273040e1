package main

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/rstms/vfs/image"
	"github.com/rstms/vfs/metrics"
	"github.com/rstms/vfs/observer"
)

var (
	formatLabel string
	dumpMetrics bool
)

var formatCmd = &cobra.Command{
	Use:   "format DRIVE",
	Short: "create an empty filesystem on a drive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := image.CreateImage(session, args[0], formatLabel); err != nil {
			return Fatal(err)
		}
		return nil
	},
}

var labelCmd = &cobra.Command{
	Use:   "label DRIVE [LABEL]",
	Short: "show or set the volume label",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 2 {
			if err := session.SetLabel(args[0], args[1]); err != nil {
				return Fatal(err)
			}
			return nil
		}
		label, err := session.Label(args[0])
		if err != nil {
			return Fatal(err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), label)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import DRIVE HOSTDIR",
	Short: "copy a host directory tree onto a drive",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		i, err := image.OpenImage(session, args[0])
		if err != nil {
			return Fatal(err)
		}
		if err := i.Import(afero.NewOsFs(), args[1]); err != nil {
			return Fatal(err)
		}
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export DRIVE HOSTDIR",
	Short: "copy the contents of a drive to a host directory",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		i, err := image.OpenImage(session, args[0])
		if err != nil {
			return Fatal(err)
		}
		if err := i.Export(afero.NewOsFs(), args[1]); err != nil {
			return Fatal(err)
		}
		return nil
	},
}

var rewriteCmd = &cobra.Command{
	Use:   "rewrite SRC DST",
	Short: "reformat drive DST and copy the contents of drive SRC onto it",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := image.OpenImage(session, args[0])
		if err != nil {
			return Fatal(err)
		}
		if _, err := image.RewriteImage(session, args[1], src); err != nil {
			return Fatal(err)
		}
		return nil
	},
}

var dfCmd = &cobra.Command{
	Use:   "df",
	Short: "report capacity of the mounted drives",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		if dumpMetrics {
			if err := metrics.Write(w, registry); err != nil {
				return Fatal(err)
			}
			return nil
		}
		for _, d := range session.Drives() {
			if !d.Mounted() {
				fmt.Fprintf(w, "%-6s %-9s %s\n", d.Prefix, d.Kind(), "not mounted")
				continue
			}
			size, err := session.FsSize(d.Prefix)
			if err != nil {
				return Fatal(err)
			}
			free, err := session.FsFree(d.Prefix)
			if err != nil {
				return Fatal(err)
			}
			busy := ""
			if session.CheckBusy(d.Prefix) {
				busy = " busy"
			}
			fmt.Fprintf(w, "%-6s %-9s %10s %10s free%s\n", d.Prefix, d.Kind(), observer.Size(size), observer.Size(free), busy)
		}
		return nil
	},
}

func init() {
	formatCmd.Flags().StringVarP(&formatLabel, "label", "l", "", "volume label")
	dfCmd.Flags().BoolVar(&dumpMetrics, "metrics", false, "print drive metrics in the Prometheus text format")
	rootCmd.AddCommand(formatCmd, labelCmd, importCmd, exportCmd, rewriteCmd, dfCmd)
}
