package main

import (
	"fmt"
	"os"

	"pycount/internal/data/store"

	"github.com/spf13/cobra"
)

var topLimit int

var topCmd = &cobra.Command{
	Use:   "top <db>",
	Short: "Show the most frequent identifiers in a pycount database",
	Args:  cobra.ExactArgs(1),
	RunE:  runTop,
}

func init() {
	topCmd.Flags().IntVarP(&topLimit, "limit", "n", 20, "Number of names to show (0 = all)")
}

func runTop(cmd *cobra.Command, args []string) error {
	path := args[0]
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("database %q: %w", path, err)
	}

	s, err := store.Open(path)
	if err != nil {
		return err
	}
	defer s.Close()

	counts, err := s.CountByName(commandContext(cmd), topLimit)
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), renderTop(counts))
	return nil
}
