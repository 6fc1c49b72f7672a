package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var describeFilter filterFlags

var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Refresh the managed description block on matching items",
	Long: `For every matching item, derives one line per recognized category
(country, order, family, species, date) from the sets the item belongs to and
merges them into the item's managed description block. Text outside the block
is preserved; items whose sets match no category are skipped.`,
	RunE: runDescribe,
}

func init() {
	describeFilter.register(describeCmd)
}

func runDescribe(cmd *cobra.Command, args []string) error {
	filter, err := describeFilter.parse()
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

	sum, err := eng.DescribeItems(ctx, filter)
	if sum != nil {
		fmt.Println(sum.String())
	}
	return err
}
