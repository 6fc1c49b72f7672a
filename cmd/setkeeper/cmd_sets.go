package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var setsCmd = &cobra.Command{
	Use:   "sets",
	Short: "Inspect and maintain the account's sets",
}

var setsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every set, sorted by title",
	RunE:  runSetsList,
}

var setsShowCmd = &cobra.Command{
	Use:   "show <set-id>",
	Short: "List the members of one set, in set order",
	Args:  cobra.ExactArgs(1),
	RunE:  runSetsShow,
}

var setsDescribeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Refresh the managed description block on every generated set",
	Long: `Walks the account's sets and refreshes the managed description block
on those whose title follows a generated key template. Hand-named sets are
never touched.`,
	RunE: runSetsDescribe,
}

func init() {
	setsCmd.AddCommand(setsListCmd, setsShowCmd, setsDescribeCmd)
}

func runSetsList(cmd *cobra.Command, args []string) error {
	eng, cleanup, err := buildEngine()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := commandContext()
	defer cancel()

	cols, err := eng.ListCollections(ctx)
	if err != nil {
		return err
	}

	if len(cols) == 0 {
		fmt.Println("No sets found.")
		return nil
	}
	for _, col := range cols {
		fmt.Printf("%-20s %6d  %s\n", col.ID, col.ItemCount, col.Title)
	}
	fmt.Printf("Total: %d sets\n", len(cols))
	return nil
}

func runSetsShow(cmd *cobra.Command, args []string) error {
	eng, cleanup, err := buildEngine()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := commandContext()
	defer cancel()

	items, err := eng.CollectionItems(ctx, args[0])
	if err != nil {
		return err
	}

	for _, it := range items {
		fmt.Printf("%-20s %s\n", it.ID, it.Title)
	}
	fmt.Printf("Total: %d photos\n", len(items))
	return nil
}

func runSetsDescribe(cmd *cobra.Command, args []string) error {
	eng, cleanup, err := buildEngine()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := commandContext()
	defer cancel()

	sum, err := eng.DescribeCollections(ctx)
	if sum != nil {
		fmt.Println(sum.String())
	}
	return err
}
