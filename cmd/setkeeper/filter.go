package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"setkeeper/internal/remote"
)

// filterFlags is the search scope shared by every command that walks items.
type filterFlags struct {
	tags           []string
	tagMode        string
	text           string
	takenAfter     string
	takenBefore    string
	uploadedAfter  string
	uploadedBefore string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.tags, "tag", nil, "Only items carrying this tag (repeatable)")
	cmd.Flags().StringVar(&f.tagMode, "tag-mode", "any", "How multiple --tag values combine: any or all")
	cmd.Flags().StringVar(&f.text, "text", "", "Full-text search filter")
	cmd.Flags().StringVar(&f.takenAfter, "taken-after", "", "Only items taken on or after this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.takenBefore, "taken-before", "", "Only items taken on or before this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.uploadedAfter, "uploaded-after", "", "Only items uploaded on or after this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.uploadedBefore, "uploaded-before", "", "Only items uploaded on or before this date (YYYY-MM-DD)")
}

func (f *filterFlags) parse() (remote.SearchFilter, error) {
	filter := remote.SearchFilter{
		Tags: f.tags,
		Text: f.text,
	}

	switch f.tagMode {
	case "any":
		filter.TagMode = remote.TagModeAny
	case "all":
		filter.TagMode = remote.TagModeAll
	default:
		return remote.SearchFilter{}, fmt.Errorf("invalid --tag-mode %q (want any or all)", f.tagMode)
	}

	if f.takenAfter != "" {
		t, err := time.Parse("2006-01-02", f.takenAfter)
		if err != nil {
			return remote.SearchFilter{}, fmt.Errorf("invalid --taken-after: %w", err)
		}
		filter.TakenAfter = t
	}
	if f.takenBefore != "" {
		t, err := time.Parse("2006-01-02", f.takenBefore)
		if err != nil {
			return remote.SearchFilter{}, fmt.Errorf("invalid --taken-before: %w", err)
		}
		filter.TakenBefore = t
	}
	if f.uploadedAfter != "" {
		t, err := time.Parse("2006-01-02", f.uploadedAfter)
		if err != nil {
			return remote.SearchFilter{}, fmt.Errorf("invalid --uploaded-after: %w", err)
		}
		filter.UploadedAfter = t
	}
	if f.uploadedBefore != "" {
		t, err := time.Parse("2006-01-02", f.uploadedBefore)
		if err != nil {
			return remote.SearchFilter{}, fmt.Errorf("invalid --uploaded-before: %w", err)
		}
		filter.UploadedBefore = t
	}
	return filter, nil
}
