package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/estimate-cli/internal/model"
)

// lookupEnv opens only what lookups need: the store (for the refresh
// token) and the ScopeStack client.
func lookupEnv(cmd *cobra.Command) (*appEnv, error) {
	if err := cfg.Validate("summary"); err != nil {
		return nil, err
	}
	return initEnv(cmd.Context())
}

var clientsCmd = &cobra.Command{
	Use:   "clients <search>",
	Short: "Search active clients by name",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := lookupEnv(cmd)
		if err != nil {
			return err
		}
		defer env.Close()

		clients, err := env.Resolver.SearchClients(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		if len(clients) == 0 {
			fmt.Fprintln(os.Stderr, "No clients found.")
			return nil
		}
		formatClients(cmd.OutOrStdout(), clients)
		return nil
	},
}

var executivesCmd = &cobra.Command{
	Use:   "executives <search>",
	Short: "Search sales executives by name",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := lookupEnv(cmd)
		if err != nil {
			return err
		}
		defer env.Close()

		execs, err := env.Resolver.SearchExecutives(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		if len(execs) == 0 {
			fmt.Fprintln(os.Stderr, "No sales executives found.")
			return nil
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "ID\tNAME\tEMAIL")
		for _, e := range execs {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", e.ID, e.Name, e.Email)
		}
		return w.Flush()
	},
}

var questionnairesCmd = &cobra.Command{
	Use:   "questionnaires [id]",
	Short: "List active questionnaires, or show one with its questions",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := lookupEnv(cmd)
		if err != nil {
			return err
		}
		defer env.Close()
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		if vars, _ := cmd.Flags().GetBool("variables"); vars {
			variables, err := env.Client.ListProjectVariables(ctx)
			if err != nil {
				return err
			}
			formatVariables(out, variables)
			return nil
		}

		if len(args) == 1 {
			q, err := env.Client.GetQuestionnaire(ctx, args[0])
			if err != nil {
				return err
			}
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(q)
			}
			formatQuestions(out, q.ActiveQuestions())
			return nil
		}

		tag, _ := cmd.Flags().GetString("tag")
		if tag == "" {
			tag = cfg.ScopeStack.QuestionnaireTag
		}
		list, err := env.Client.ListQuestionnaires(ctx, tag)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "ID\tNAME")
		for _, q := range list {
			_, _ = fmt.Fprintf(w, "%s\t%s\n", q.ID, q.Name)
		}
		return w.Flush()
	},
}

var recommendationsCmd = &cobra.Command{
	Use:   "recommendations <survey-id>",
	Short: "List the recommendations calculated for a survey",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := lookupEnv(cmd)
		if err != nil {
			return err
		}
		defer env.Close()

		recs, err := env.Client.ListSurveyRecommendations(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			fmt.Fprintln(os.Stderr, "No recommendations.")
			return nil
		}
		formatRecommendations(cmd.OutOrStdout(), recs)
		return nil
	},
}

func init() {
	questionnairesCmd.Flags().String("tag", "", "only questionnaires with this tag")
	questionnairesCmd.Flags().Bool("variables", false, "list the account's project variables instead")
	questionnairesCmd.Flags().Bool("json", false, "print the questionnaire as JSON")

	rootCmd.AddCommand(clientsCmd)
	rootCmd.AddCommand(executivesCmd)
	rootCmd.AddCommand(questionnairesCmd)
	rootCmd.AddCommand(recommendationsCmd)
}

func formatClients(out io.Writer, clients []model.Client) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tCONTACTS")
	for _, c := range clients {
		names := make([]string, 0, len(c.Contacts))
		for _, ct := range c.Contacts {
			names = append(names, ct.Name)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", c.ID, c.Name, strings.Join(names, ", "))
	}
	_ = w.Flush()
}

func formatQuestions(out io.Writer, questions []model.Question) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SLUG\tTYPE\tREQUIRED\tQUESTION")
	for _, q := range questions {
		req := ""
		if q.Required {
			req = "yes"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", q.Slug, q.InputType(), req, q.Question)
	}
	_ = w.Flush()
}

func formatVariables(out io.Writer, variables []model.ProjectVariable) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tLABEL\tCONTEXT\tREQUIRED")
	for _, v := range variables {
		req := ""
		if v.Required {
			req = "yes"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", v.Name, v.Label, v.Context, req)
	}
	_ = w.Flush()
}

func formatRecommendations(out io.Writer, recs []model.Recommendation) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTYPE\tNAME\tQUANTITY")
	for _, r := range recs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%g\n", r.ID, r.Type, r.Name, r.Quantity)
	}
	_ = w.Flush()
}
