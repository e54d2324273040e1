package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/rstms/vfs"
)

var pattern string

func printInfo(w io.Writer, info vfs.Info) {
	modified := "-"
	if !info.Modified.IsZero() {
		modified = info.Modified.Format(time.DateTime)
	}
	fmt.Fprintf(w, "%s %10d %19s %08x %s\n", info.Attr, info.Size, modified, info.Inode, info.Name)
}

var dirCmd = &cobra.Command{
	Use:   "dir [PATH]",
	Short: "list a directory, or the drives when PATH is empty",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) > 0 {
			path = args[0]
		}
		dir, info, err := session.FindFirst(path, pattern)
		if vfs.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return Fatal(err)
		}
		defer dir.Close()
		for {
			printInfo(cmd.OutOrStdout(), info)
			info, err = dir.FindNext()
			if vfs.IsNotFound(err) {
				return nil
			}
			if err != nil {
				return Fatal(err)
			}
		}
	},
}

var statCmd = &cobra.Command{
	Use:   "stat PATH",
	Short: "show the attributes of a file, directory or drive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := session.Stat(args[0])
		if err != nil {
			return Fatal(err)
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "name:     %s\n", info.Name)
		fmt.Fprintf(w, "attr:     %s\n", info.Attr)
		fmt.Fprintf(w, "size:     %d\n", info.Size)
		fmt.Fprintf(w, "blocks:   %d x %d\n", info.Blocks, info.BlockSize)
		fmt.Fprintf(w, "created:  %s\n", info.Created.Format(time.DateTime))
		fmt.Fprintf(w, "modified: %s\n", info.Modified.Format(time.DateTime))
		fmt.Fprintf(w, "inode:    %d:%08x\n", info.Device, info.Inode)
		return nil
	},
}

var crcCmd = &cobra.Command{
	Use:   "crc PATH",
	Short: "print the checksum of a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sum, err := session.CRC(args[0])
		if err != nil {
			return Fatal(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%08X %s\n", sum, args[0])
		return nil
	},
}

var cpCmd = &cobra.Command{
	Use:   "cp SRC DST",
	Short: "copy a file, possibly to another drive",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := session.Copy(args[0], args[1]); err != nil {
			return Fatal(err)
		}
		return nil
	},
}

var mvCmd = &cobra.Command{
	Use:   "mv SRC DST",
	Short: "move a file, possibly to another drive",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := session.Move(args[0], args[1]); err != nil {
			return Fatal(err)
		}
		return nil
	},
}

var renCmd = &cobra.Command{
	Use:   "ren OLD NEW",
	Short: "rename within a drive",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := session.Rename(args[0], args[1]); err != nil {
			return Fatal(err)
		}
		return nil
	},
}

var mkdirCmd = &cobra.Command{
	Use:   "mkdir PATH",
	Short: "create a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := session.Mkdir(args[0]); err != nil {
			return Fatal(err)
		}
		return nil
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm PATH...",
	Short: "remove files or empty directories",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, path := range args {
			if err := session.Remove(path); err != nil {
				return Fatal(err)
			}
		}
		return nil
	},
}

var catCmd = &cobra.Command{
	Use:   "cat PATH",
	Short: "write a file to stdout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := session.Open(args[0], vfs.Read)
		if err != nil {
			return Fatal(err)
		}
		defer f.Close()
		if _, err := io.Copy(cmd.OutOrStdout(), f); err != nil {
			return Fatal(err)
		}
		return nil
	},
}

func init() {
	dirCmd.Flags().StringVarP(&pattern, "pattern", "p", "*", "wildcard filter")
	rootCmd.AddCommand(dirCmd, statCmd, crcCmd, cpCmd, mvCmd, renCmd, mkdirCmd, rmCmd, catCmd)
}
