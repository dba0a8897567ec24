package main

import (
	"github.com/spf13/cobra"
)

var watchOutputPath string

var watchCmd = &cobra.Command{
	Use:   "watch <path>",
	Short: "Extract once, then re-extract Python files as they change",
	Long: `Runs a full extraction over <path>, then watches the tree and re-extracts
files whose content changed. With --db the store is kept in sync, including
removal of deleted files.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchOutputPath, "output", "o", "", "Write rows to this file instead of stdout")
}

func runWatch(cmd *cobra.Command, args []string) (err error) {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	outPath := s.cfg.Output.Path
	if watchOutputPath != "" {
		outPath = watchOutputPath
	}
	w, closeOut, err := openOutput(cmd, s.cfg, outPath)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeOut(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return s.app.Watch(commandContext(cmd), args[0], w)
}
