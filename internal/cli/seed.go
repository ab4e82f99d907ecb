package cli

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/spf13/cobra"

	"notes/internal/auth"
	"notes/internal/errs"
	"notes/internal/models"
	"notes/internal/store"
)

type sampleNote struct {
	title string
	text  string
}

var sampleNotes = []sampleNote{
	{"Morning meeting", "Had a productive morning meeting"},
	{"Quarterly report", "Finished the quarterly report"},
	{"Pull requests", "Reviewed pull requests"},
	{"Production bug", "Fixed a critical bug in production"},
	{"Standup", "Standup notes: discussed blockers"},
	{"Team lunch", "Lunch with the team"},
	{"Feature ideas", "Brainstormed new feature ideas"},
	{"Docs", "Updated documentation"},
	{"Staging deploy", "Deployed new version to staging"},
	{"Code review", "Code review session"},
	{"Performance", "Worked on performance optimization"},
	{"Customer feedback", "Customer feedback review"},
	{"Sprint planning", "Sprint planning completed"},
	{"Groceries", "Milk, eggs, bread and coffee"},
	{"Weekend", "Hike if the weather holds"},
}

var sampleCategories = []string{"Work", "Home", "Ideas"}

// SeedOptions holds flags for the seed command.
type SeedOptions struct {
	*RootOptions
	Name     string
	Email    string
	Password string
	Notes    int
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create a demo user with categories and notes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(opts.RootOptions)
			if err != nil {
				return err
			}
			defer st.Close()

			inserted, err := seed(cmd.Context(), st, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Inserted %d notes for %s\n", inserted, opts.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "demo", "demo user name")
	cmd.Flags().StringVar(&opts.Email, "email", "demo@example.com", "demo user email")
	cmd.Flags().StringVar(&opts.Password, "password", "password", "demo user password")
	cmd.Flags().IntVar(&opts.Notes, "notes", 10, "number of notes to create")

	return cmd
}

// seed creates the demo user unless it exists, makes sure it has the
// sample categories and adds opts.Notes random notes.
func seed(ctx context.Context, st store.Store, opts *SeedOptions) (int, error) {
	identity, err := auth.NewIdentity(st, 0)
	if err != nil {
		return 0, err
	}

	user, err := identity.Register(ctx, &models.RegisterInput{
		Name:           opts.Name,
		Email:          opts.Email,
		Password:       opts.Password,
		RepeatPassword: opts.Password,
	})
	if errors.Is(err, errs.ErrDuplicate) {
		user, err = st.GetUserByEmail(ctx, opts.Email)
	}
	if err != nil {
		return 0, fmt.Errorf("could not create demo user: %w", err)
	}

	existing, err := st.ListCategories(ctx, user.ID)
	if err != nil {
		return 0, err
	}
	have := make(map[string]int, len(existing))
	for _, c := range existing {
		have[c.Name] = c.ID
	}
	var categoryIDs []int
	for _, name := range sampleCategories {
		id, ok := have[name]
		if !ok {
			c, err := st.CreateCategory(ctx, user.ID, name)
			if err != nil {
				return 0, err
			}
			id = c.ID
		}
		categoryIDs = append(categoryIDs, id)
	}

	inserted := 0
	for i := 0; i < opts.Notes; i++ {
		sample := sampleNotes[rand.IntN(len(sampleNotes))]
		// each category is attached to about a third of the notes
		var ids []int
		for _, id := range categoryIDs {
			if rand.IntN(3) == 0 {
				ids = append(ids, id)
			}
		}
		if _, err := st.CreateNote(ctx, user.ID, sample.title, sample.text, "", ids); err != nil {
			opts.Logger.Warn("error inserting note", "error", err)
			continue
		}
		inserted++
	}
	return inserted, nil
}
