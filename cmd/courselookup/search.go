package main

import (
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/oarkflow/json"
	"github.com/spf13/cobra"

	"github.com/oarkflow/courselookup"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run one query against the dataset and print the results as JSON.",
	Example: heredoc.Doc(`
		courselookup search "obj prog"
		courselookup search comp --courses 10 --condition "subject = 'COMP'"
		courselookup search witte --dataset ./courses.json
	`),
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

var searchCondition string

func init() {
	f := searchCmd.Flags()
	f.Int("courses", courselookup.DefaultCourseCap, "course result cap")
	f.Int("instructors", courselookup.DefaultInstructorCap, "instructor result cap")
	f.StringVar(&searchCondition, "condition", "", "SQL-like condition applied to courses")
}

func runSearch(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	store, err := newStore(logger)
	if err != nil {
		return err
	}
	snap := store.Get(cmd.Context())
	if snap.LoadError != nil {
		return snap.LoadError
	}

	manager := courselookup.NewManager(store,
		courselookup.WithManagerCaps(appCfg.Caps()),
		courselookup.WithManagerLogger(logger),
	)
	res, err := manager.Search(cmd.Context(), courselookup.Request{
		Query:     strings.Join(args, " "),
		Condition: searchCondition,
	})
	if err != nil {
		return err
	}
	return json.NewEncoder(cmd.OutOrStdout()).Encode(res)
}
