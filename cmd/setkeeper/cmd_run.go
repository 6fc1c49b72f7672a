package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"setkeeper/internal/reconcile"
)

var (
	runFilter       filterFlags
	runGroupBy      []string
	runMinUniqueSeq int
	runMergeDescs   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Reconcile sets against machine-tag grouping keys",
	Long: `Searches the account, derives a grouping key per item from its machine
tags, creates any missing set, and adds every item to its set.

Grouping modes:
  order   - "A0 - <hex> - <ORDER NAME>" from ordernum/order machine tags
  family  - "A1 - <code> - <Family name>" from familycode/family machine tags
  date    - "B0 - YYYY/MM/DD" from the capture date

With --min-unique-seq N, a date only qualifies for a set when at least N
distinct sequence values were captured that day.

Examples:
  setkeeper run --group-by order,family
  setkeeper run --group-by date --min-unique-seq 5 --tag ioc151:list=151`,
	RunE: runReconcile,
}

func init() {
	runFilter.register(runCmd)
	runCmd.Flags().StringSliceVar(&runGroupBy, "group-by", []string{"date"}, "Grouping modes: date, order, family (repeatable)")
	runCmd.Flags().IntVar(&runMinUniqueSeq, "min-unique-seq", 0, "Minimum distinct sequence values for a date to qualify (0: no threshold)")
	runCmd.Flags().BoolVar(&runMergeDescs, "merge-descriptions", false, "Refresh the managed description block on touched sets")
}

func runReconcile(cmd *cobra.Command, args []string) error {
	filter, err := runFilter.parse()
	if err != nil {
		return err
	}

	modes := make([]reconcile.GroupBy, 0, len(runGroupBy))
	for _, s := range runGroupBy {
		mode, err := reconcile.ParseGroupBy(s)
		if err != nil {
			return err
		}
		modes = append(modes, mode)
	}

	eng, cleanup, err := buildEngine()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := commandContext()
	defer cancel()

	sum, err := eng.Run(ctx, reconcile.RunRequest{
		Filter:            filter,
		GroupBy:           modes,
		MinUniqueSeq:      runMinUniqueSeq,
		MergeDescriptions: runMergeDescs,
	})
	if sum != nil {
		fmt.Println(sum.String())
	}
	return err
}
