package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	tagsAddFilter   filterFlags
	tagsPruneFilter filterFlags
)

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "Bulk tag maintenance",
}

var tagsAddCmd = &cobra.Command{
	Use:   "add <tag> [tag...]",
	Short: "Add tags to every item matching the filter",
	Long: `Adds the given tags to every matching item. The service ignores
duplicate adds, so the command is safe to rerun.

Example:
  setkeeper tags add ioc151:list=151 --tag birds --taken-after 2024-01-01`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTagsAdd,
}

var tagsPruneCmd = &cobra.Command{
	Use:   "prune <pattern>",
	Short: "Remove tags matching a regular expression",
	Long: `Removes every tag instance whose raw form matches the pattern from
the matching items. The pattern is validated before any remote call.

Example:
  setkeeper tags prune '^ioc150:' --tag ioc150:list=150`,
	Args: cobra.ExactArgs(1),
	RunE: runTagsPrune,
}

func init() {
	tagsAddFilter.register(tagsAddCmd)
	tagsPruneFilter.register(tagsPruneCmd)
	tagsCmd.AddCommand(tagsAddCmd, tagsPruneCmd)
}

func runTagsAdd(cmd *cobra.Command, args []string) error {
	filter, err := tagsAddFilter.parse()
	if err != nil {
		return err
	}

	eng, cleanup, err := buildEngine()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := commandContext()
	defer cancel()

	sum, err := eng.BulkTag(ctx, filter, args)
	if sum != nil {
		fmt.Println(sum.String())
	}
	return err
}

func runTagsPrune(cmd *cobra.Command, args []string) error {
	filter, err := tagsPruneFilter.parse()
	if err != nil {
		return err
	}

	eng, cleanup, err := buildEngine()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := commandContext()
	defer cancel()

	sum, err := eng.PruneTags(ctx, filter, args[0])
	if sum != nil {
		fmt.Println(sum.String())
	}
	return err
}
